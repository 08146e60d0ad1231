// Package health provides liveness and readiness HTTP handlers.
//
// Readiness runs every named [CheckFunc] concurrently under a shared
// timeout and reports the aggregate:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"redis": redis.Healthcheck(client),
//		"s3":    bucket.Ping,
//	}, health.WithLogger(log)))
//
// Responses are plain text ("OK" / "Service Unavailable") unless the
// client asks for JSON with ?format=json or an Accept header.
package health
