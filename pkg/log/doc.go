// Package log provides the logging abstraction used by appkeeper components.
//
// Library code never talks to a concrete logging library. It receives a
// Logger and attaches structured fields:
//
//	logger.Info("dropping table", log.String("table", name))
//
// The CLI wires a zerolog-backed Logger:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//
// Tests and embedders that want silence use NewNoopLogger.
package log
