// Package logging provides structured logging for EdgeGate components.
//
// It wraps the standard library slog package with project defaults:
// JSON output to stderr, module/version context on every record,
// LOG_LEVEL environment configuration, and source location tracking for
// debug logs.
//
// Usage:
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("egc", version)
//	    slog.Info("compiling", "files", files)
//	}
//
// Supported levels (case-insensitive): DEBUG, INFO (default), WARN, ERROR.
package logging
