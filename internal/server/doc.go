// Package server exposes one runtime instance over HTTP and WebSocket.
//
// The view layer reads and writes state through /values, groups writes
// through /transaction, registers derived expressions through /computed and
// subscribes to flushed batches on /stream. The compiler collaborator
// loads modules through /load and invokes exports through /call. The
// persistence collaborator fetches opaque snapshots from /snapshot.
// Prometheus metrics are served on /metrics.
package server
