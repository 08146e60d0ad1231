package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peterckelly/zotero/pkg/logger"
)

// DefaultClientName is sent with CLIENT SETNAME on every pooled connection.
const DefaultClientName = "zotero-protocol"

// Option configures how Open dials the server.
type Option func(*dialer)

type dialer struct {
	logger   *slog.Logger
	tune     []func(*redis.Options)
	attempts int
	backoff  time.Duration
}

// WithPool sizes the connection pool. Non-positive values keep the
// go-redis defaults.
func WithPool(size, minIdle int) Option {
	return func(d *dialer) {
		d.tune = append(d.tune, func(o *redis.Options) {
			if size > 0 {
				o.PoolSize = size
			}
			if minIdle > 0 {
				o.MinIdleConns = minIdle
			}
		})
	}
}

// WithDialTimeout bounds each connection attempt.
func WithDialTimeout(timeout time.Duration) Option {
	return func(d *dialer) {
		d.tune = append(d.tune, func(o *redis.Options) {
			if timeout > 0 {
				o.DialTimeout = timeout
			}
		})
	}
}

// WithClientName overrides DefaultClientName.
func WithClientName(name string) Option {
	return func(d *dialer) {
		d.tune = append(d.tune, func(o *redis.Options) { o.ClientName = name })
	}
}

// WithRetry sets how many times the startup PING is attempted. The n-th
// retry waits n*backoff. Default: 3 attempts, 2 seconds.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *dialer) {
		d.attempts = attempts
		d.backoff = backoff
	}
}

// WithLogger logs failed attempts at Warn.
func WithLogger(l *slog.Logger) Option {
	return func(d *dialer) {
		if l != nil {
			d.logger = l
		}
	}
}

// Open parses a redis:// or rediss:// URL, applies the options and returns
// a client that answered PING.
func Open(ctx context.Context, url string, opts ...Option) (redis.UniversalClient, error) {
	ro, err := parse(url)
	if err != nil {
		return nil, err
	}

	d := &dialer{logger: logger.NewNope(), attempts: 3, backoff: 2 * time.Second}
	for _, opt := range opts {
		opt(d)
	}
	for _, tune := range d.tune {
		tune(ro)
	}

	return d.dial(ctx, ro)
}

func parse(url string) (*redis.Options, error) {
	switch {
	case url == "":
		return nil, ErrNoURL
	case !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://"):
		return nil, ErrBadURL
	}
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrBadURL, err)
	}
	if ro.ClientName == "" {
		ro.ClientName = DefaultClientName
	}
	return ro, nil
}

func (d *dialer) dial(ctx context.Context, ro *redis.Options) (redis.UniversalClient, error) {
	attempts := max(d.attempts, 1)

	var err error
	for n := 1; ; n++ {
		client := redis.NewClient(ro)
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		d.logger.WarnContext(ctx, "redis ping failed",
			slog.String("addr", ro.Addr),
			slog.Int("attempt", n),
			slog.Int("of", attempts),
			slog.Any("error", err),
		)
		if n == attempts {
			return nil, errors.Join(ErrUnreachable, err)
		}

		t := time.NewTimer(time.Duration(n) * d.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Join(ErrUnreachable, ctx.Err())
		case <-t.C:
		}
	}
}

// Healthcheck returns a pkg/health check that pings the client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrPing
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrPing, err)
		}
		return nil
	}
}

// Shutdown returns a server shutdown hook that closes the client.
func Shutdown(client io.Closer) func(context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}
