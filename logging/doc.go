// Package logging provides a minimal logging interface and adapters for Switchboard.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine and agents use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - NewFileLogger / NewStderrLogger matching the two process modes:
//     interactive CLI sessions log to a file so stdout stays clean, while the
//     web server logs to stderr only
//
// Usage:
//
//	logger, closer, err := logging.NewFileLogger("./logs", "", logging.LogLevelInfo)
//	defer closer.Close()
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
