// Package runtime composes the reactive store, the execution bridge and
// the expression evaluator into one Instance per loaded module.
//
// An Instance is an explicit handle, not a singleton: callers construct as
// many as they need (multi-preview) and pass the handle to collaborators.
// The view layer drives GetValue/SetValue/Watch/Transaction/Computed, the
// compiler collaborator drives Load and CallFunction, and the persistence
// collaborator consumes Snapshot as an opaque blob.
//
// Dispose cancels the pending scheduler tick, clears registrations and
// releases the sandbox before returning; afterwards every operation is a
// safe no-op.
package runtime
