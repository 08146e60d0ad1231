package zotero

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/peterckelly/zotero/internal"
	"github.com/peterckelly/zotero/pkg/health"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

// Type aliases - public API
type (
	// Handler dispatches zotero:// URIs to registered extensions.
	Handler = internal.Handler

	// Option configures a Handler.
	Option = internal.Option

	// RegisterOption configures one extension registration.
	RegisterOption = internal.RegisterOption

	// ExtensionInfo describes a registered extension.
	ExtensionInfo = internal.ExtensionInfo

	// Channel is a single request for content.
	Channel = internal.Channel

	// ChannelFactory creates channels for URIs. Extensions implement it.
	ChannelFactory = internal.ChannelFactory

	// ChannelFactoryFunc adapts a function to ChannelFactory.
	ChannelFactoryFunc = internal.ChannelFactoryFunc

	// AsyncChannel runs a producer and streams its result.
	AsyncChannel = internal.AsyncChannel

	// PrebuiltChannel serves a fixed payload synchronously.
	PrebuiltChannel = internal.PrebuiltChannel

	// ProducerFunc produces an AsyncChannel's content.
	ProducerFunc = internal.ProducerFunc

	// Result is what a producer returns.
	Result = internal.Result

	// Text is delivered in one piece.
	Text = internal.Text

	// ByteStream is pumped as its reader yields data.
	ByteStream = internal.ByteStream

	// FileRef names a local file or a loadable URL.
	FileRef = internal.FileRef

	// Empty aborts the channel without content.
	Empty = internal.Empty

	// StreamListener receives channel notifications.
	StreamListener = internal.StreamListener

	// BufferListener collects a channel's body in memory.
	BufferListener = internal.BufferListener

	// LoadGroup tracks in-flight channels.
	LoadGroup = internal.LoadGroup

	// Status is a channel's terminal code.
	Status = internal.Status

	// StatusError carries a failing Status as an error.
	StatusError = internal.StatusError

	// Principal is the security identity attached to a channel.
	Principal = internal.Principal

	// SystemPrincipal is a privileged principal.
	SystemPrincipal = internal.SystemPrincipal

	// CodebasePrincipal is the principal of a URI's origin.
	CodebasePrincipal = internal.CodebasePrincipal

	// Loader opens content by URL.
	Loader = internal.Loader

	// LoaderFunc adapts a function to Loader.
	LoaderFunc = internal.LoaderFunc

	// LoaderMux routes loads by scheme.
	LoaderMux = internal.LoaderMux

	// FileLoader opens file:// URLs.
	FileLoader = internal.FileLoader

	// FSHost serves chrome:// content from an fs.FS.
	FSHost = internal.FSHost

	// Metrics holds the dispatcher's Prometheus collectors.
	Metrics = internal.Metrics

	// Bridge serves zotero:// content over HTTP.
	Bridge = internal.Bridge

	// BridgeOption configures a Bridge.
	BridgeOption = internal.BridgeOption

	// RunOption configures RunServer.
	RunOption = internal.RunOption
)

// Scheme is the URI scheme served by Handler.
const Scheme = internal.Scheme

// DummyChromeURL is the host location used to obtain the privileged
// principal.
const DummyChromeURL = internal.DummyChromeURL

// MaxConnectorPageSize bounds pages injected through the bridge.
const MaxConnectorPageSize = internal.MaxConnectorPageSize

// Status codes.
const (
	StatusOK             = internal.StatusOK
	StatusBindingAborted = internal.StatusBindingAborted
	StatusFailure        = internal.StatusFailure
)

// Errors
var (
	ErrNoInterface       = internal.ErrNoInterface
	ErrFailure           = internal.ErrFailure
	ErrAborted           = internal.ErrAborted
	ErrInvalidResult     = internal.ErrInvalidResult
	ErrNilProducer       = internal.ErrNilProducer
	ErrAlreadyOpened     = internal.ErrAlreadyOpened
	ErrProxyDepth        = internal.ErrProxyDepth
	ErrInvalidProxy      = internal.ErrInvalidProxy
	ErrUnsupportedScheme = internal.ErrUnsupportedScheme
	ErrInvalidPrefix     = internal.ErrInvalidPrefix
	ErrDuplicatePrefix   = internal.ErrDuplicatePrefix
	ErrNilExtension      = internal.ErrNilExtension
	ErrNilListener       = internal.ErrNilListener
)

// Constructors

// NewHandler creates a dispatcher with no extensions.
//
// Example:
//
//	h := zotero.NewHandler(
//	    zotero.WithHost(zotero.NewFSHost(os.DirFS("chrome"))),
//	    zotero.WithLogger(log),
//	)
//	_ = h.Register("zotero://data", extensions.NewData(source))
//	_ = h.Register("zotero://timeline", extensions.NewTimeline(lib, tl), zotero.WithPrivilegedContext())
func NewHandler(opts ...Option) *Handler {
	return internal.NewHandler(opts...)
}

// NewAsyncChannel creates a channel for u that runs producer on Open.
func NewAsyncChannel(u *url.URL, producer ProducerFunc) *AsyncChannel {
	return internal.NewAsyncChannel(u, producer)
}

// NewErrorChannel creates a text/plain channel that delivers message and
// stops with StatusFailure.
func NewErrorChannel(u *url.URL, message string) *AsyncChannel {
	return internal.NewErrorChannel(u, message)
}

// NewPrebuiltChannel creates a text/html channel delivering payload.
func NewPrebuiltChannel(uri, payload string) (*PrebuiltChannel, error) {
	return internal.NewPrebuiltChannel(uri, payload)
}

// NewSystemPrincipal returns a privileged principal.
func NewSystemPrincipal(name string) *SystemPrincipal {
	return internal.NewSystemPrincipal(name)
}

// NewCodebasePrincipal returns the principal for u's origin.
func NewCodebasePrincipal(u *url.URL) CodebasePrincipal {
	return internal.NewCodebasePrincipal(u)
}

// NewFSHost returns a host serving chrome://<package>/<path> from fsys.
func NewFSHost(fsys fs.FS) *FSHost {
	return internal.NewFSHost(fsys)
}

// NewLoaderMux returns a loader serving file:// URLs.
func NewLoaderMux() *LoaderMux {
	return internal.NewLoaderMux()
}

// ChannelLoader loads URLs by opening channels from factory.
func ChannelLoader(factory ChannelFactory) Loader {
	return internal.ChannelLoader(factory)
}

// NewMetrics registers dispatcher metrics with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return internal.NewMetrics(reg, namespace)
}

// NewBridge creates an HTTP bridge dispatching through factory.
func NewBridge(factory ChannelFactory, opts ...BridgeOption) *Bridge {
	return internal.NewBridge(factory, opts...)
}

// RunServer serves handler until the process is signalled or the
// WithContext context ends.
//
// Example:
//
//	err := zotero.RunServer(bridge.Routes(),
//	    zotero.Address(":23119"),
//	    zotero.Logger(log),
//	    zotero.ShutdownHook(redis.Shutdown(client)),
//	)
func RunServer(handler http.Handler, opts ...RunOption) error {
	return internal.RunServer(handler, opts...)
}

// Results

// Stream wraps r as a ByteStream result.
func Stream(r io.Reader) ByteStream { return internal.Stream(r) }

// File references a local file.
func File(path string) FileRef { return internal.File(path) }

// Location references content at u.
func Location(u *url.URL) FileRef { return internal.Location(u) }

// Handler options

// WithHost sets the chrome:// host.
func WithHost(host ChannelFactory) Option { return internal.WithHost(host) }

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option { return internal.WithLogger(l) }

// WithLoader replaces the default loader mux.
func WithLoader(l Loader) Option { return internal.WithLoader(l) }

// WithProxyCache caches proxied pages in store for ttl.
func WithProxyCache(store pagecache.Store, ttl time.Duration) Option {
	return internal.WithProxyCache(store, ttl)
}

// WithMetrics records dispatcher metrics.
func WithMetrics(m *Metrics) Option { return internal.WithMetrics(m) }

// WithTracer sets the tracer for dispatch and open spans.
func WithTracer(t trace.Tracer) Option { return internal.WithTracer(t) }

// Registration options

// WithPrivilegedContext runs the extension's channels with the host's
// privileged principal.
func WithPrivilegedContext() RegisterOption { return internal.WithPrivilegedContext() }

// WithName overrides the extension name used in logs and metrics.
func WithName(name string) RegisterOption { return internal.WithName(name) }

// Bridge options

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(l *slog.Logger) BridgeOption { return internal.WithBridgeLogger(l) }

// WithConnectorStore enables out-of-band page injection.
func WithConnectorStore(store pagecache.Store, ttl time.Duration) BridgeOption {
	return internal.WithConnectorStore(store, ttl)
}

// WithHealthChecks sets the readiness checks.
func WithHealthChecks(checks health.Checks) BridgeOption { return internal.WithHealthChecks(checks) }

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) BridgeOption { return internal.WithGatherer(g) }

// WithRequestTimeout bounds every content request.
func WithRequestTimeout(d time.Duration) BridgeOption { return internal.WithRequestTimeout(d) }

// Run options

// Address sets the listen address. Defaults to ":8080".
func Address(addr string) RunOption { return internal.Address(addr) }

// Logger sets the server logger.
func Logger(l *slog.Logger) RunOption { return internal.Logger(l) }

// ShutdownTimeout bounds graceful shutdown.
func ShutdownTimeout(d time.Duration) RunOption { return internal.ShutdownTimeout(d) }

// Timeouts sets the server read and write timeouts.
func Timeouts(read, write time.Duration) RunOption { return internal.Timeouts(read, write) }

// ShutdownHook registers a cleanup function run after the server stops.
func ShutdownHook(fn func(context.Context) error) RunOption { return internal.ShutdownHook(fn) }

// WithContext sets the base context; cancelling it stops the server.
func WithContext(ctx context.Context) RunOption { return internal.WithContext(ctx) }

// OnListen is called with the bound address.
func OnListen(fn func(net.Addr)) RunOption { return internal.OnListen(fn) }
