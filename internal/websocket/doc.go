// Package websocket pushes snapshot lifecycle events to browser clients.
//
// A single Hub fans out JSON messages of the form
//
//	{"type": "snapshot:reloaded", "data": {...}, "timestamp": "...", "trace_id": "..."}
//
// to every connected Client. Clients are read-only: incoming frames other
// than heartbeats are ignored.
package websocket
