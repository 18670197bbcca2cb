// Package ws streams flushed state batches to view-layer clients over
// WebSocket.
//
// Each client connection registers one flush observer on the runtime
// instance: every scheduler flush produces at most one "batch" message
// carrying the post-batch values of the keys that changed. Clients may
// write back with "set" messages; those writes coalesce with everything
// else in the next tick.
package ws
