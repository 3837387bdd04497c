// Package ports declares the contracts between the orchestrator core and its
// adapters: collectors, packagers, progress delivery and metrics.
package ports
