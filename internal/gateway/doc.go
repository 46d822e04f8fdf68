// Package gateway orchestrates the nasohub server components.
//
// # Overview
//
// The gateway package is the central coordinator of the relay server. It
// owns the chat transport, the dialogue pipeline, the ledger, the relay
// bus, and the HTTP server that serves the dispatch API and the dashboard
// WebSocket endpoint.
//
// # HTTP API
//
// Endpoints registered in gateway.go and implemented in api.go and ws.go:
//
//   - POST /send-message - Dispatch a text to a phone number
//   - GET /chats - List registered chats in first-sighting order
//   - GET /chats/{id}/messages - Ordered message history for a chat
//   - GET /reports - Captured support reports
//   - GET /ws - Dashboard subscriber WebSocket
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (503 until the transport syncs)
//
// # WebSocket Protocol
//
// Frames are JSON objects with an event name and a payload:
//
//	{"event": "chats",   "data": [ ... ]}       server, on connect
//	{"event": "newChat", "data": { ... }}       server, first sighting
//	{"event": "message", "data": {"from": "...", "body": "...", "type": "user"}}
//
// Subscribers send getMessages, sendMessage, and sendFile frames; the
// server answers getMessages with a messages frame and delegates the two
// send events to the transport best-effort.
//
// # Lifecycle
//
// Start the gateway:
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx)
//
// Run blocks until ctx is canceled, then performs a graceful shutdown with
// a five second budget.
package gateway
