// Package expr evaluates derivation expressions in a hardened goja VM.
//
// The compiler collaborator emits derived state as source expressions
// ("price * quantity", "first + ' ' + last"). The evaluator exposes only
// the dependency values as globals; module/process globals and timers are
// stripped, and execution is interrupted after a configurable timeout.
package expr
