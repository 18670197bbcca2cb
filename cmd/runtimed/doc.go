// Package main is the entry point for the Sprout runtime daemon.
//
// The daemon hosts one runtime instance: a reactive store, the execution
// bridge for a compiled module and the expression evaluator, fronted by a
// REST API and a WebSocket state stream.
//
// Architecture:
//
//	Editor / host app → HTTP + WebSocket → Runtime instance
//	                                         → Reactive store (batched notifications)
//	                                         → Execution bridge (sandboxed module memory)
//
// The server provides:
//   - REST API for state access, transactions and computed keys
//   - Module loading with a memory layout table
//   - WebSocket streaming of flushed state batches
//   - Prometheus metrics exposition
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags for preloading a module
//
// Usage:
//
//	# Bare runtime
//	./runtimed
//
//	# Preload a compiled module and its layout table
//	./runtimed -module app.wasm -layout layout.json
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
