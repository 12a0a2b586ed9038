// Package logging provides structured logging for gridctl.
//
// It wraps log/slog with project defaults: JSON output to stderr, module and
// version context on every record, source locations at debug level, and
// LOG_LEVEL environment based configuration.
//
// Set the default logger early in main:
//
//	logging.SetDefaultStructuredLoggerWithLevel("gridctl", version, logLevel)
//	slog.Info("starting", "namespace", ns)
package logging
