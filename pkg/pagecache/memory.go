package pagecache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	expiresAt time.Time // zero = never expires
	page      Page
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process page store with TTL expiry and optional LRU
// eviction once a capacity is reached.
type Memory struct {
	items  map[string]*list.Element
	lru    *list.List
	opts   *memoryOptions
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewMemory creates an in-memory store.
//
//	pages := pagecache.NewMemory(
//	    pagecache.WithDefaultTTL(10*time.Minute),
//	    pagecache.WithCapacity(512),
//	)
//	defer pages.Close()
func NewMemory(opts ...MemoryOption) *Memory {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory{
		items: make(map[string]*list.Element),
		lru:   list.New(),
		opts:  o,
		done:  make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go m.janitor()
	}
	return m
}

// Get returns the page for uri and marks it recently used.
func (m *Memory) Get(_ context.Context, uri string) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[uri]
	if !ok {
		return Page{}, ErrNotFound
	}
	e := elem.Value.(*entry)
	if e.expired(m.opts.now()) {
		m.remove(elem)
		return Page{}, ErrNotFound
	}
	m.lru.MoveToFront(elem)
	return e.page, nil
}

// Put stores page under page.URI.
func (m *Memory) Put(_ context.Context, page Page, ttl time.Duration) error {
	if page.URI == "" {
		return ErrEmptyURI
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	now := m.opts.now()
	if ttl == 0 {
		ttl = m.opts.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	if page.StoredAt.IsZero() {
		page.StoredAt = now
	}

	if elem, ok := m.items[page.URI]; ok {
		e := elem.Value.(*entry)
		e.page = page
		e.expiresAt = expiresAt
		m.lru.MoveToFront(elem)
		return nil
	}

	if m.opts.capacity > 0 && len(m.items) >= m.opts.capacity {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest)
		}
	}

	m.items[page.URI] = m.lru.PushFront(&entry{page: page, expiresAt: expiresAt})
	return nil
}

// Delete removes the page for uri.
func (m *Memory) Delete(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if elem, ok := m.items[uri]; ok {
		m.remove(elem)
	}
	return nil
}

// Has reports whether a live page exists for uri.
func (m *Memory) Has(ctx context.Context, uri string) (bool, error) {
	_, err := m.Get(ctx, uri)
	return err == nil, nil
}

// Len returns the number of stored pages, including expired ones not yet
// collected.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the janitor. Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).expired(now) {
			m.remove(elem)
		}
		elem = prev
	}
}

// remove deletes elem. Caller must hold the mutex.
func (m *Memory) remove(elem *list.Element) {
	m.lru.Remove(elem)
	delete(m.items, elem.Value.(*entry).page.URI)
}

var _ Store = (*Memory)(nil)
