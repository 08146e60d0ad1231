package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

// Scheme is the URI scheme the handler serves.
const Scheme = "zotero"

const tracerName = "github.com/peterckelly/zotero"

var errNoPrincipal = errors.New("zotero: host channel has no owner")

// ExtensionInfo describes a registered extension.
type ExtensionInfo struct {
	Prefix     string
	Name       string
	Privileged bool
}

type registration struct {
	ExtensionInfo
	ext ChannelFactory
}

// RegisterOption configures one registration.
type RegisterOption func(*registration)

// WithPrivilegedContext marks an extension whose channels run with the
// host's privileged principal.
func WithPrivilegedContext() RegisterOption {
	return func(r *registration) { r.Privileged = true }
}

// WithName overrides the name used in logs and metrics.
func WithName(name string) RegisterOption {
	return func(r *registration) {
		if name != "" {
			r.Name = name
		}
	}
}

// Handler dispatches zotero:// URIs to registered extensions by prefix.
// URIs no extension claims are passed to the host as chrome:// URIs.
type Handler struct {
	mu         sync.RWMutex
	exts       []registration
	principals principalCache

	host     ChannelFactory
	logger   *slog.Logger
	loader   Loader
	pages    pagecache.Store
	proxyTTL time.Duration
	metrics  *Metrics
	tracer   trace.Tracer
}

// NewHandler creates a dispatcher with no extensions.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{}
	env := defaultChannelEnv()
	h.logger = env.logger
	h.tracer = env.tracer
	for _, opt := range opts {
		opt(h)
	}
	if h.loader == nil {
		mux := NewLoaderMux()
		if h.host != nil {
			mux.Handle("chrome", ChannelLoader(h.host))
		}
		mux.Handle(Scheme, ChannelLoader(h))
		h.loader = mux
	}
	return h
}

// Register appends ext under prefix, e.g. "zotero://data". Matching is
// case-insensitive and tries prefixes in registration order, so more
// specific prefixes must be registered first.
func (h *Handler) Register(prefix string, ext ChannelFactory, opts ...RegisterOption) error {
	if ext == nil {
		return ErrNilExtension
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return ErrInvalidPrefix
	}

	r := registration{ExtensionInfo: ExtensionInfo{Prefix: prefix, Name: extensionName(prefix)}, ext: ext}
	for _, opt := range opts {
		opt(&r)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.exts {
		if e.Prefix == prefix {
			return fmt.Errorf("%w: %s", ErrDuplicatePrefix, prefix)
		}
	}
	h.exts = append(h.exts, r)
	return nil
}

// Extensions lists registrations in dispatch order.
func (h *Handler) Extensions() []ExtensionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ExtensionInfo, len(h.exts))
	for i, e := range h.exts {
		out[i] = e.ExtensionInfo
	}
	return out
}

// Loader returns the loader bound to dispatched channels.
func (h *Handler) Loader() Loader { return h.loader }

// Principal returns the cached privileged principal, or nil if no
// privileged extension has been dispatched yet.
func (h *Handler) Principal() Principal {
	return h.principals.cached()
}

// NewChannel resolves u to a channel. Extension failures never escape:
// an extension error or panic yields a channel that stops with
// StatusFailure, and a nil channel yields an aborted one. The only error
// is ErrNoInterface, for URIs neither an extension nor the host can serve.
func (h *Handler) NewChannel(ctx context.Context, u *url.URL) (Channel, error) {
	if u == nil {
		return nil, ErrNoInterface
	}
	raw := u.String()
	ctx, span := h.tracer.Start(ctx, "zotero.dispatch",
		trace.WithAttributes(attribute.String("zotero.uri", raw)))
	defer span.End()

	reg, ok := h.match(strings.ToLower(raw))
	if !ok {
		ch, err := h.delegate(ctx, u, raw)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return ch, err
	}

	span.SetAttributes(attribute.String("zotero.extension", reg.Name))
	ctx = logger.ContextWith(ctx, slog.String("extension", reg.Name))
	h.logger.DebugContext(ctx, "dispatching request", slog.String("uri", raw))

	var principal Principal
	if reg.Privileged {
		p, err := h.principals.get(ctx, h.acquirePrincipal)
		if err != nil {
			h.logger.ErrorContext(ctx, "privileged principal unavailable", slog.String("error", err.Error()))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			ch := newCancelledChannel(u, StatusFailure)
			h.bind(ch, reg.Name)
			return ch, nil
		}
		principal = p
	}

	ch, err := h.invoke(ctx, reg, u)
	switch {
	case err != nil:
		h.logger.ErrorContext(ctx, "extension failed", slog.String("error", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ch = newCancelledChannel(u, StatusFailure)
	case ch == nil:
		h.logger.DebugContext(ctx, "extension returned no channel")
		ch = h.abortedChannel(ctx)
	}

	if principal != nil {
		ch.SetOwner(principal)
	}
	if ch.OriginalURI() == nil {
		ch.SetOriginalURI(u)
	}
	h.bind(ch, reg.Name)
	return ch, nil
}

func (h *Handler) match(lower string) (registration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.exts {
		if strings.HasPrefix(lower, e.Prefix) {
			return e, true
		}
	}
	return registration{}, false
}

func (h *Handler) invoke(ctx context.Context, reg registration, u *url.URL) (ch Channel, err error) {
	defer func() {
		if r := recover(); r != nil {
			ch, err = nil, fmt.Errorf("%w: extension %s panic: %v", ErrFailure, reg.Name, r)
		}
	}()
	return reg.ext.NewChannel(ctx, u)
}

// delegate passes an unclaimed URI to the host with its scheme replaced
// by chrome.
func (h *Handler) delegate(ctx context.Context, u *url.URL, raw string) (Channel, error) {
	if h.host == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoInterface, raw)
	}
	i := strings.Index(raw, ":")
	if i < 0 {
		return nil, fmt.Errorf("%w: no scheme in %q", ErrNoInterface, raw)
	}
	target := u
	if !strings.HasPrefix(strings.ToLower(raw), "chrome") {
		t, err := url.Parse("chrome" + raw[i:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoInterface, err)
		}
		target = t
	}

	ch, err := h.host.NewChannel(ctx, target)
	if err != nil {
		h.logger.ErrorContext(ctx, "host rejected request",
			slog.String("uri", target.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrNoInterface, err)
	}
	h.bind(ch, "chrome")
	return ch, nil
}

// abortedChannel opens and cancels the host's dummy location, or builds an
// inert channel when there is no host.
func (h *Handler) abortedChannel(ctx context.Context) Channel {
	if h.host != nil {
		ch, err := h.host.NewChannel(ctx, dummyChromeURL)
		if err == nil && ch != nil {
			ch.Cancel(StatusBindingAborted)
			return ch
		}
		h.logger.DebugContext(ctx, "host dummy channel unavailable", slog.Any("error", err))
	}
	return newCancelledChannel(dummyChromeURL, StatusBindingAborted)
}

func (h *Handler) acquirePrincipal(ctx context.Context) (Principal, error) {
	h.metrics.principalAcquired()
	if h.host == nil {
		return internalPrincipal, nil
	}
	ch, err := h.host.NewChannel(ctx, dummyChromeURL)
	if err != nil {
		return nil, err
	}
	defer ch.Cancel(StatusBindingAborted)
	owner := ch.Owner()
	if owner == nil {
		return nil, errNoPrincipal
	}
	h.logger.DebugContext(ctx, "privileged principal acquired", slog.String("origin", owner.PrincipalOrigin()))
	return owner, nil
}

func (h *Handler) bind(ch Channel, ext string) {
	b, ok := ch.(binder)
	if !ok {
		return
	}
	b.bind(channelEnv{
		logger:    h.logger.With(slog.String("extension", ext)),
		loader:    h.loader,
		pages:     h.pages,
		proxyTTL:  h.proxyTTL,
		metrics:   h.metrics,
		tracer:    h.tracer,
		extension: ext,
	})
}

// principalCache holds the privileged principal for the process lifetime.
// A failed acquisition is not cached.
type principalCache struct {
	mu        sync.Mutex
	principal Principal
}

func (c *principalCache) get(ctx context.Context, acquire func(context.Context) (Principal, error)) (Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal != nil {
		return c.principal, nil
	}
	p, err := acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.principal = p
	return p, nil
}

func (c *principalCache) cached() Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// extensionName turns "zotero://data" into "data".
func extensionName(prefix string) string {
	_, rest, ok := strings.Cut(prefix, "://")
	if !ok {
		return prefix
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return prefix
	}
	return rest
}
