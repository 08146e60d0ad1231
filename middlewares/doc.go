// Package middlewares provides net/http middleware for the HTTP bridge.
//
// # Request ID
//
// RequestID reuses an upstream ID from the request headers or generates a
// UUID, stores it in the request context and echoes it in X-Request-ID.
// RequestIDExtractor adds it to every log record:
//
//	log := logger.New(logger.WithExtractors(middlewares.RequestIDExtractor()))
//	r.Use(middlewares.RequestID())
//
// # Recover
//
// Recover turns a panic into a logged error and a 500 response.
//
// # Timeout
//
// Timeout bounds the request context. Channels opened with that context are
// cancelled with the binding-aborted status when it expires.
package middlewares
