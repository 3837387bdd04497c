// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Host information and the task catalog
//   - Starting, polling and cancelling diagnostic sessions
//   - Downloading a completed session's artifact
//   - Health checks
//   - Prometheus metrics
//
// Every /api/v1 response body is an APIResponse.
package http
