// Package catalog is the static registry of diagnostic tasks.
//
// Each entry binds a TaskDescriptor to the collector that implements it. The
// declaration order of entries is the default execution order of a session.
package catalog
