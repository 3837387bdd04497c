// Package domain holds the data model shared by the orchestrator, its adapters
// and the API layers: task descriptors, diagnostic sessions, progress updates,
// the final report and the error taxonomy.
package domain
