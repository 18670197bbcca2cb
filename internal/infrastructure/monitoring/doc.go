// Package monitoring provides Prometheus metrics for the reactive runtime.
//
// Each Metrics value owns a private registry, so multiple runtime instances
// in one process (multi-preview) export independent metric sets and tests
// never trip duplicate-registration panics.
//
// All Record* helpers are nil-receiver safe: components accept an optional
// *Metrics and call through unconditionally.
package monitoring
