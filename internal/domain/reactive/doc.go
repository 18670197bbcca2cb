// Package reactive implements the state store at the heart of the runtime.
//
// A Store is a keyed mapping from identifier to a timestamped value snapshot.
// Writes that do not change a value are discarded. Effective writes mark the
// key pending and arm a coalescing batch scheduler: at most one notification
// per key per tick reaches subscribed watchers, carrying the post-batch value.
//
// Components:
//   - Store: typed key/value mapping with no-op write detection
//   - Watchers: per-key callbacks, delivered in registration order
//   - Scheduler: timer-driven tick (default 16ms, one frame at 60Hz)
//   - Computed: derived keys re-evaluated when a dependency batch fires
//   - Transactions: group writes into a single forced flush
//   - List/Map: copy-on-write collection adapters over a single key
//
// Error isolation: a panic inside a watcher or a computed derivation is
// caught, logged through the injected logger, and counted; delivery to the
// remaining callbacks continues and the store stays consistent.
//
// Concurrency: the store is guarded by a single mutex, so writes may arrive
// from any goroutine (HTTP handlers, the bridge poll loop, the scheduler).
// Watcher callbacks run without the lock held and may freely call back into
// the store.
//
// Example Usage:
//
//	store := reactive.NewStore(reactive.Options{Logger: logger})
//	defer store.Dispose()
//	unsub := store.Watch("counter", func(key string, v any) { render(v) })
//	store.Set("counter", 1)
package reactive
