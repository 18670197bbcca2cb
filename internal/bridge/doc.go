// Package bridge keeps the reactive store and a sandboxed module's linear
// memory in sync.
//
// A bridge is created per runtime instance and moves through
// Unloaded -> Loading -> Ready -> Disposed, with Loading -> Failed on a
// load error (terminal; retrying needs a fresh instance).
//
// Load instantiates the compiled module, validates the compiler-provided
// layout table against the exported memory region, seeds the store from the
// initial state, and starts a poll loop. Each poll cycle decodes every
// bound region and writes changed values into the store; store-side writes
// to bound keys are pushed back into memory by a watcher when their batch
// flushes. Shadow values of the last synced state keep the two directions
// from echoing into each other.
//
// Polling is a portable fallback for sandboxes without a write
// notification hook. Hosts that do get change events can call Sync
// directly and configure a long poll interval.
package bridge
