// Package grpc serves the standard gRPC health protocol for the diagnostics
// daemon. The serving status follows the worker pool health so that
// orchestrators and probes such as grpc_health_probe can gate traffic.
package grpc
