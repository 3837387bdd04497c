// Package websocket provides real-time progress streaming via WebSocket.
//
// Clients connect to /api/v1/diagnostics/:id/ws and receive one JSON
// progress update per sampling tick. The last message always carries a
// terminal status; the server then closes the connection.
package websocket
