// Package orchestrator implements the diagnostic session engine.
//
// The manager is the facade used by every transport. It:
//   - Validates requests and resolves task ids against the catalog
//   - Registers sessions in the SessionStore and schedules their runners on the worker pool
//   - Starts one progress sampler per session that publishes to the event bus
//   - Accepts cooperative cancellation, observed at task boundaries
//
// A Runner owns its session: it runs tasks sequentially, records collector
// failures without stopping, writes report.json and hands the directory to
// the packager for the requested output format.
package orchestrator
