package internal

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/peterckelly/zotero/pkg/pagecache"
)

// Option configures a Handler.
type Option func(*Handler)

// WithHost sets the collaborator that serves chrome:// URIs, grants the
// privileged principal and backs aborted channels.
func WithHost(host ChannelFactory) Option {
	return func(h *Handler) {
		if host != nil {
			h.host = host
		}
	}
}

// WithLogger sets the dispatcher and channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithLoader replaces the default loader. The default serves file://,
// chrome:// through the host and zotero:// through the handler itself.
func WithLoader(l Loader) Option {
	return func(h *Handler) {
		if l != nil {
			h.loader = l
		}
	}
}

// WithProxyCache caches proxied pages in store for ttl.
func WithProxyCache(store pagecache.Store, ttl time.Duration) Option {
	return func(h *Handler) {
		h.pages = store
		h.proxyTTL = ttl
	}
}

// WithMetrics records dispatcher metrics.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithTracer sets the tracer for dispatch and open spans. Default: the
// global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) {
		if t != nil {
			h.tracer = t
		}
	}
}
