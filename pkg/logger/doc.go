// Package logger builds the service's slog loggers.
//
// It adds three things on top of log/slog: attributes carried in a
// context.Context and injected on every record, a bounded in-memory
// recorder that keeps recent output for the debug page, and optional
// Sentry reporting.
//
// # Basic Usage
//
//	rec := logger.NewRecorder(1000, slog.LevelDebug)
//	log := logger.New(
//		logger.WithLevel(slog.LevelInfo),
//		logger.WithFormat(logger.FormatJSON),
//		logger.WithRecorder(rec),
//	)
//
//	ctx = logger.ContextWith(ctx, slog.String("channel_id", id))
//	log.InfoContext(ctx, "starting request") // includes channel_id
//
// # Context Extractors
//
// A ContextExtractor pulls one attribute out of a context on every log
// call. Attributes stored with ContextWith are always extracted; custom
// extractors are added with WithExtractors.
//
// # Sentry
//
// WithSentry fans records out to Sentry: errors become issues and warnings
// are kept as breadcrumb logs. An empty DSN disables Sentry silently.
package logger
