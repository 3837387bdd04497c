// Package packager turns a finished session output directory into the
// artifact served by the download endpoint.
//
// Zip packs the directory into a deflate archive placed next to it. Report
// returns the report.json already written by the runner, for sessions that
// asked for JSON output only.
package packager
