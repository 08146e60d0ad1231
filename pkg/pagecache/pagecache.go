package pagecache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Page is a stored document.
type Page struct {
	StoredAt    time.Time `json:"stored_at"`
	URI         string    `json:"uri"`
	Body        string    `json:"body"`
	ContentType string    `json:"content_type,omitempty"`
}

// Store keeps pages by URI.
type Store interface {
	// Get returns the page for uri or ErrNotFound.
	Get(ctx context.Context, uri string) (Page, error)

	// Put stores page under page.URI.
	Put(ctx context.Context, page Page, ttl time.Duration) error

	// Delete removes the page for uri. Missing pages are not an error.
	Delete(ctx context.Context, uri string) error

	// Has reports whether a live page exists for uri.
	Has(ctx context.Context, uri string) (bool, error)

	// Close releases background resources.
	Close() error
}

var loads singleflight.Group

// Load returns the page for uri from s, or calls fn on a miss and stores
// its result with ttl. Concurrent misses for the same uri share one call.
// A failed fn is not cached.
func Load(ctx context.Context, s Store, uri string, ttl time.Duration, fn func(ctx context.Context) (Page, error)) (Page, error) {
	if page, err := s.Get(ctx, uri); err == nil {
		return page, nil
	}

	v, err, _ := loads.Do(uri, func() (any, error) {
		page, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if page.URI == "" {
			page.URI = uri
		}
		if page.StoredAt.IsZero() {
			page.StoredAt = time.Now()
		}
		// Best-effort store.
		_ = s.Put(ctx, page, ttl)
		return page, nil
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}
