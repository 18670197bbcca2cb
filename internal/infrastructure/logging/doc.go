// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// There is no package-level logger. Every component of the runtime takes a
// *Logger at construction time so tests can inject a silent or observing
// sink instead of capturing process-wide output.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Runtime starting", zap.String("instance", id))
//	logger.Error("Module load failed", zap.Error(err))
package logging
