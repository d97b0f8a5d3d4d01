// Package logging provides structured logging for the supervisor.
//
// This package wraps Go's standard log/slog package so that the supervisor,
// the daemon's tailed output and the HTTP collaborators all log with the
// same default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level names shared with the daemon (KAPACITOR_LOGGING_LEVEL)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error, critical
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting daemon", "host", host)
//	logger.Error("readiness wait failed", "error", err)
package logging
