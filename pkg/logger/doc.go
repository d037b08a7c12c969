// Package logger builds the slog loggers used by treeserve servers and the CLI.
//
// Loggers are JSON by default and carry context extractors: functions called
// on every record to add request-scoped attributes such as the request ID or
// the matched route.
//
//	log := logger.NewWithOptions(logger.Options{Level: logger.ParseLevel("debug")},
//		middlewares.RequestIDExtractor(),
//	)
//
// NewWithSentry additionally forwards warnings and errors to Sentry. With an
// empty DSN it behaves like NewWithOptions, so the same code path works in
// development.
//
// NewNope returns a logger that discards everything; it is the server default.
package logger
