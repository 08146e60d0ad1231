// Package redis opens the go-redis client shared by the page store and the
// readiness check.
//
// Connections are validated with PING at startup and retried with a
// linear backoff:
//
//	client, err := redis.Open(ctx, cfg.Redis.URL,
//		redis.WithPool(20, 4),
//		redis.WithRetry(5, time.Second),
//		redis.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// [Healthcheck] adapts the client for pkg/health and [Shutdown] for the
// server's shutdown hooks. Both redis:// and rediss:// (TLS) URLs are
// accepted; connections identify themselves as [DefaultClientName].
package redis
