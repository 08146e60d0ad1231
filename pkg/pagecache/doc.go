// Package pagecache stores rendered pages keyed by their URI.
//
// It backs two things: pages injected out-of-band for the connector
// extension, and the content of proxied URIs. Both backends implement
// [Store]:
//
//   - [Memory]: LRU with TTL expiry, for a single process
//   - [Redis]: shared between instances, pages stored as JSON
//
// TTL semantics for Put:
//   - Positive duration: page expires after this duration
//   - Zero: use the store's default TTL
//   - Negative: page never expires
//
// # Loading through the cache
//
// [Load] returns a cached page or calls the loader once per URI even when
// many goroutines miss at the same time:
//
//	page, err := pagecache.Load(ctx, store, uri, time.Minute,
//	    func(ctx context.Context) (pagecache.Page, error) {
//	        return fetch(ctx, uri)
//	    })
package pagecache
