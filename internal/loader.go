package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Loader opens the content at a URL.
type Loader interface {
	Load(ctx context.Context, u *url.URL) (io.ReadCloser, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, u *url.URL) (io.ReadCloser, error)

func (f LoaderFunc) Load(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	return f(ctx, u)
}

// LoaderMux routes loads by URL scheme. The zero value is not usable; use
// NewLoaderMux, which registers the file scheme.
type LoaderMux struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewLoaderMux returns a mux serving file:// URLs from the local disk.
func NewLoaderMux() *LoaderMux {
	m := &LoaderMux{loaders: make(map[string]Loader)}
	m.Handle("file", FileLoader{})
	return m
}

// Handle registers l for scheme, replacing any previous loader.
func (m *LoaderMux) Handle(scheme string, l Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaders[strings.ToLower(scheme)] = l
}

// Schemes lists the registered schemes.
func (m *LoaderMux) Schemes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.loaders))
	for s := range m.loaders {
		out = append(out, s)
	}
	return out
}

func (m *LoaderMux) Load(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil URL", ErrUnsupportedScheme)
	}
	m.mu.RLock()
	l, ok := m.loaders[strings.ToLower(u.Scheme)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	return l.Load(ctx, u)
}

// FileLoader opens file:// URLs. If Root is set, paths are resolved inside
// it and may not escape it.
type FileLoader struct {
	Root string
}

func (f FileLoader) Load(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	p := filepath.FromSlash(u.Path)
	if f.Root != "" {
		p = filepath.Join(f.Root, filepath.Clean("/"+p))
	}
	return os.Open(p)
}

// ChannelLoader loads a URL by opening a channel from factory and
// collecting its body. A non-OK stop status is an error.
func ChannelLoader(factory ChannelFactory) Loader {
	return LoaderFunc(func(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
		ch, err := factory.NewChannel(ctx, u)
		if err != nil {
			return nil, err
		}
		var l BufferListener
		if err := ch.Open(ctx, &l); err != nil {
			return nil, err
		}
		body, _, err := l.Result()
		if err != nil {
			return nil, fmt.Errorf("zotero: load %s: %w", u, err)
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	})
}

// readAll loads u through l and reads it fully.
func readAll(ctx context.Context, l Loader, u *url.URL) ([]byte, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	rc, err := l.Load(ctx, u)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
