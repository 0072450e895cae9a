// Package logging provides structured logging for ProfileHub built on log/slog.
//
// The Logger wrapper adds service/version default fields and level parsing
// from configuration. Components derive child loggers with With():
//
//	log := logging.New(cfg.Logging, version)
//	apiLog := log.With("component", "api")
//
// Output is JSON by default (machine-ingestible) with a text option for
// local development.
package logging
