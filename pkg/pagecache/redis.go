package pagecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores pages in Redis as JSON under "{prefix}:{uri}".
type Redis struct {
	client redis.UniversalClient
	opts   *redisOptions
}

// NewRedis creates a Redis-backed store. The client lifecycle belongs to
// the caller (see pkg/redis).
//
//	client := redis.MustOpen(ctx, os.Getenv("REDIS_URL"))
//	pages := pagecache.NewRedis(client, pagecache.WithPrefix("connector"))
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	o := defaultRedisOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Redis{client: client, opts: o}
}

// Get returns the page for uri.
func (r *Redis) Get(ctx context.Context, uri string) (Page, error) {
	data, err := r.client.Get(ctx, r.key(uri)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return Page{}, errors.Join(ErrUnmarshal, err)
	}
	return page, nil
}

// Put stores page. Negative TTLs persist until deleted.
func (r *Redis) Put(ctx context.Context, page Page, ttl time.Duration) error {
	if page.URI == "" {
		return ErrEmptyURI
	}
	if page.StoredAt.IsZero() {
		page.StoredAt = time.Now()
	}

	data, err := json.Marshal(page)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}

	if ttl == 0 {
		ttl = r.opts.defaultTTL
	}
	// Redis reads 0 as no expiration.
	return r.client.Set(ctx, r.key(page.URI), data, max(ttl, 0)).Err()
}

// Delete removes the page for uri.
func (r *Redis) Delete(ctx context.Context, uri string) error {
	return r.client.Del(ctx, r.key(uri)).Err()
}

// Has reports whether a page exists for uri.
func (r *Redis) Has(ctx context.Context, uri string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(uri)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close is a no-op; the client is closed by its owner.
func (r *Redis) Close() error {
	return nil
}

func (r *Redis) key(uri string) string {
	if r.opts.prefix == "" {
		return uri
	}
	return r.opts.prefix + ":" + uri
}

var _ Store = (*Redis)(nil)
