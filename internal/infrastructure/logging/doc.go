// Package logging provides structured logging for the theatre controller.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and honours the configured level and format:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("dispatcher running", "queued", n)
//
// Never log secrets such as the movie database key or broker password.
package logging
