package pagecache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/pkg/pagecache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemory(t *testing.T, opts ...pagecache.MemoryOption) *pagecache.Memory {
	t.Helper()
	m := pagecache.NewMemory(append([]pagecache.MemoryOption{pagecache.WithCleanupInterval(0)}, opts...)...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// --- Memory: Get/Put ---

func TestMemory_GetPut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing page", func(t *testing.T) {
		t.Parallel()
		_, err := newMemory(t).Get(ctx, "http://example.com/")
		require.ErrorIs(t, err, pagecache.ErrNotFound)
	})

	t.Run("stores and returns page", func(t *testing.T) {
		t.Parallel()
		m := newMemory(t)
		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "http://example.com/", Body: "<html/>"}, 0))

		page, err := m.Get(ctx, "http://example.com/")
		require.NoError(t, err)
		require.Equal(t, "<html/>", page.Body)
		require.False(t, page.StoredAt.IsZero())
	})

	t.Run("overwrites existing page", func(t *testing.T) {
		t.Parallel()
		m := newMemory(t)
		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "u", Body: "one"}, 0))
		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "u", Body: "two"}, 0))

		page, err := m.Get(ctx, "u")
		require.NoError(t, err)
		require.Equal(t, "two", page.Body)
		require.Equal(t, 1, m.Len())
	})

	t.Run("rejects empty uri", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, newMemory(t).Put(ctx, pagecache.Page{Body: "x"}, 0), pagecache.ErrEmptyURI)
	})
}

// --- Memory: expiry ---

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expires after ttl", func(t *testing.T) {
		t.Parallel()
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		m := newMemory(t, pagecache.WithClock(clock.Now))

		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "u", Body: "x"}, time.Minute))
		ok, err := m.Has(ctx, "u")
		require.NoError(t, err)
		require.True(t, ok)

		clock.Advance(2 * time.Minute)
		ok, err = m.Has(ctx, "u")
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, 0, m.Len())
	})

	t.Run("negative ttl never expires", func(t *testing.T) {
		t.Parallel()
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		m := newMemory(t, pagecache.WithClock(clock.Now), pagecache.WithDefaultTTL(time.Second))

		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "u"}, -1))
		clock.Advance(24 * time.Hour)
		_, err := m.Get(ctx, "u")
		require.NoError(t, err)
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		t.Parallel()
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		m := newMemory(t, pagecache.WithClock(clock.Now), pagecache.WithDefaultTTL(time.Second))

		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "u"}, 0))
		clock.Advance(2 * time.Second)
		_, err := m.Get(ctx, "u")
		require.ErrorIs(t, err, pagecache.ErrNotFound)
	})
}

// --- Memory: capacity ---

func TestMemory_Capacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newMemory(t, pagecache.WithCapacity(2))

	require.NoError(t, m.Put(ctx, pagecache.Page{URI: "a"}, 0))
	require.NoError(t, m.Put(ctx, pagecache.Page{URI: "b"}, 0))

	// touch a so b is the least recently used
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, pagecache.Page{URI: "c"}, 0))
	require.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, "b")
	require.ErrorIs(t, err, pagecache.ErrNotFound)
	_, err = m.Get(ctx, "a")
	require.NoError(t, err)
}

// --- Memory: lifecycle ---

func TestMemory_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := pagecache.NewMemory(pagecache.WithCleanupInterval(time.Millisecond))

	require.NoError(t, m.Put(ctx, pagecache.Page{URI: "u"}, 0))
	require.NoError(t, m.Delete(ctx, "u"))
	require.NoError(t, m.Delete(ctx, "missing"))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Put(ctx, pagecache.Page{URI: "u"}, 0), pagecache.ErrClosed)
	require.ErrorIs(t, m.Delete(ctx, "u"), pagecache.ErrClosed)
}

// --- Load ---

func TestLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("miss calls loader and stores", func(t *testing.T) {
		t.Parallel()
		m := newMemory(t)
		page, err := pagecache.Load(ctx, m, "zotero://report/a.css", time.Minute, func(context.Context) (pagecache.Page, error) {
			return pagecache.Page{Body: "body{}"}, nil
		})
		require.NoError(t, err)
		require.Equal(t, "zotero://report/a.css", page.URI)

		stored, err := m.Get(ctx, "zotero://report/a.css")
		require.NoError(t, err)
		require.Equal(t, "body{}", stored.Body)
	})

	t.Run("hit skips loader", func(t *testing.T) {
		t.Parallel()
		m := newMemory(t)
		require.NoError(t, m.Put(ctx, pagecache.Page{URI: "hit", Body: "cached"}, 0))

		page, err := pagecache.Load(ctx, m, "hit", 0, func(context.Context) (pagecache.Page, error) {
			t.Fatal("loader called on hit")
			return pagecache.Page{}, nil
		})
		require.NoError(t, err)
		require.Equal(t, "cached", page.Body)
	})

	t.Run("error not cached", func(t *testing.T) {
		t.Parallel()
		m := newMemory(t)
		boom := errors.New("boom")
		_, err := pagecache.Load(ctx, m, "fail", 0, func(context.Context) (pagecache.Page, error) {
			return pagecache.Page{}, boom
		})
		require.ErrorIs(t, err, boom)

		ok, _ := m.Has(ctx, "fail")
		require.False(t, ok)
	})

	t.Run("concurrent misses share one load", func(t *testing.T) {
		t.Parallel()
		m := newMemory(t)
		var calls atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				page, err := pagecache.Load(ctx, m, "shared", 0, func(context.Context) (pagecache.Page, error) {
					calls.Add(1)
					<-release
					return pagecache.Page{Body: "once"}, nil
				})
				assert.NoError(t, err)
				assert.Equal(t, "once", page.Body)
			}()
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
		require.LessOrEqual(t, calls.Load(), int32(8))
		require.GreaterOrEqual(t, calls.Load(), int32(1))
	})
}
