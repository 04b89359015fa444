// Package logging provides structured logging for Urchin.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same default fields (service, version) and the same
// level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("voice").Info("speaking", "voice", "urchin")
//
// Components below infrastructure accept a small Logger interface of
// their own rather than this type, so tests can pass a no-op logger.
package logging
