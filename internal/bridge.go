package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peterckelly/zotero/middlewares"
	"github.com/peterckelly/zotero/pkg/health"
	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

// MaxConnectorPageSize bounds pages injected through PUT /_connector.
const MaxConnectorPageSize = 8 << 20

// Bridge serves zotero:// content over HTTP: GET /{extension}/{path}
// dispatches zotero://{extension}/{path}.
type Bridge struct {
	factory      ChannelFactory
	logger       *slog.Logger
	pages        pagecache.Store
	connectorTTL time.Duration
	checks       health.Checks
	gatherer     prometheus.Gatherer
	timeout      time.Duration
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithConnectorStore enables PUT and DELETE /_connector, storing injected
// pages in store for ttl.
func WithConnectorStore(store pagecache.Store, ttl time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.pages = store
		b.connectorTTL = ttl
	}
}

// WithHealthChecks sets the readiness checks.
func WithHealthChecks(checks health.Checks) BridgeOption {
	return func(b *Bridge) { b.checks = checks }
}

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) BridgeOption {
	return func(b *Bridge) { b.gatherer = g }
}

// WithRequestTimeout bounds every content request.
func WithRequestTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.timeout = d }
}

// NewBridge creates a bridge dispatching through factory.
func NewBridge(factory ChannelFactory, opts ...BridgeOption) *Bridge {
	b := &Bridge{factory: factory, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Routes returns the bridge's HTTP handler.
func (b *Bridge) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares.RequestID(), middlewares.Recover(b.logger))

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(b.checks, health.WithLogger(b.logger)))
	if b.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(b.gatherer, promhttp.HandlerOpts{}))
	}
	if b.pages != nil {
		r.Put("/_connector", b.putPage)
		r.Delete("/_connector", b.deletePage)
	}

	r.Group(func(r chi.Router) {
		if b.timeout > 0 {
			r.Use(middlewares.Timeout(b.timeout))
		}
		r.Get("/{extension}/*", b.serve)
		r.Get("/{extension}", b.serve)
	})
	return r
}

func (b *Bridge) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := bridgeURI(r, chi.URLParam(r, "extension"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ch, err := b.factory.NewChannel(ctx, u)
	if err != nil {
		if errors.Is(err, ErrNoInterface) {
			http.NotFound(w, r)
			return
		}
		b.logger.ErrorContext(ctx, "dispatch failed", slog.String("uri", u.String()), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rl := &responseListener{w: w}
	if err := ch.Open(ctx, rl); err != nil {
		b.logger.ErrorContext(ctx, "channel failed", slog.String("uri", u.String()), slog.String("error", err.Error()))
	}
	rl.finish()
}

// bridgeURI rebuilds zotero://ext/rest?query from the escaped request path.
func bridgeURI(r *http.Request, ext string) (*url.URL, error) {
	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/"+url.PathEscape(ext))
	raw := Scheme + "://" + ext + rest
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("zotero: bad request path: %w", err)
	}
	return u, nil
}

func (b *Bridge) putPage(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		http.Error(w, "missing uri", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxConnectorPageSize+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > MaxConnectorPageSize {
		http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return
	}

	page := pagecache.Page{URI: uri, Body: string(body), ContentType: defaultContentType, StoredAt: time.Now()}
	if err := b.pages.Put(r.Context(), page, b.connectorTTL); err != nil {
		b.logger.ErrorContext(r.Context(), "connector page not stored", slog.String("uri", uri), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	b.logger.DebugContext(r.Context(), "connector page stored", slog.String("uri", uri), slog.Int("bytes", len(body)))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) deletePage(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		http.Error(w, "missing uri", http.StatusBadRequest)
		return
	}
	if err := b.pages.Delete(r.Context(), uri); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// responseListener writes channel notifications to an HTTP response.
type responseListener struct {
	w       http.ResponseWriter
	started bool
	stopped bool
	status  Status
}

func (l *responseListener) OnStartRequest(ch Channel) error {
	l.started = true
	h := l.w.Header()
	h.Set("Content-Type", contentTypeHeader(ch.ContentType(), ch.ContentCharset()))
	if n := ch.ContentLength(); n >= 0 {
		h.Set("Content-Length", strconv.FormatInt(n, 10))
	}
	code := http.StatusOK
	if !ch.Status().Succeeded() {
		code = http.StatusInternalServerError
	}
	l.w.WriteHeader(code)
	return nil
}

func (l *responseListener) OnDataAvailable(_ Channel, r io.Reader, _ int64, count int) error {
	if _, err := io.CopyN(l.w, r, int64(count)); err != nil {
		return err
	}
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (l *responseListener) OnStopRequest(_ Channel, status Status) {
	l.stopped = true
	l.status = status
}

// finish writes a status line when nothing was started.
func (l *responseListener) finish() {
	if l.started {
		return
	}
	switch {
	case !l.stopped:
		l.w.WriteHeader(http.StatusInternalServerError)
	case l.status == StatusBindingAborted || l.status == StatusOK:
		l.w.WriteHeader(http.StatusNoContent)
	default:
		l.w.WriteHeader(http.StatusInternalServerError)
	}
}

func contentTypeHeader(ct, charset string) string {
	if ct == "" {
		ct = "application/octet-stream"
	}
	if charset == "" || strings.Contains(ct, "charset=") {
		return ct
	}
	if strings.HasPrefix(ct, "text/") || strings.HasSuffix(ct, "xml") || strings.HasSuffix(ct, "json") || strings.HasSuffix(ct, "javascript") {
		return ct + "; charset=" + strings.ToLower(charset)
	}
	return ct
}
