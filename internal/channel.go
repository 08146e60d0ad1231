package internal

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

const (
	defaultContentType    = "text/html"
	defaultContentCharset = "utf-8"
)

// Channel is a single request for zotero:// content.
//
// A channel is pending from construction until its listener has received
// OnStopRequest. Its status only moves away from StatusOK once.
type Channel interface {
	Name() string
	URI() *url.URL
	OriginalURI() *url.URL
	SetOriginalURI(u *url.URL)
	ContentType() string
	SetContentType(ct string)
	ContentCharset() string
	ContentLength() int64
	Owner() Principal
	SetOwner(p Principal)
	Status() Status
	IsPending() bool
	// Cancel sets status and marks the channel not pending. It has no
	// effect once the channel has stopped or been cancelled.
	Cancel(status Status)
	Suspend()
	Resume()
	SetLoadGroup(g LoadGroup)
	// Open delivers the content to l and returns after OnStopRequest.
	Open(ctx context.Context, l StreamListener) error
}

// ChannelFactory creates channels for URIs. Extensions, hosts and the
// dispatcher itself are channel factories.
type ChannelFactory interface {
	NewChannel(ctx context.Context, u *url.URL) (Channel, error)
}

// ChannelFactoryFunc adapts a function to ChannelFactory.
type ChannelFactoryFunc func(ctx context.Context, u *url.URL) (Channel, error)

func (f ChannelFactoryFunc) NewChannel(ctx context.Context, u *url.URL) (Channel, error) {
	return f(ctx, u)
}

// channelEnv is what the dispatcher lends to channels it hands out.
type channelEnv struct {
	logger    *slog.Logger
	loader    Loader
	pages     pagecache.Store
	metrics   *Metrics
	tracer    trace.Tracer
	extension string
	proxyTTL  time.Duration
}

func defaultChannelEnv() channelEnv {
	return channelEnv{
		logger: logger.NewNope(),
		loader: NewLoaderMux(),
		tracer: otel.Tracer(tracerName),
	}
}

// binder is implemented by channels that accept the dispatcher's env.
type binder interface {
	bind(env channelEnv)
}

// channelState holds the fields shared by every channel implementation.
type channelState struct {
	mu            sync.Mutex
	id            string
	uri           *url.URL
	originalURI   *url.URL
	contentType   string
	charset       string
	contentLength int64
	owner         Principal
	loadGroup     LoadGroup
	status        Status
	pending       bool
	stopped       bool
}

func (c *channelState) init(u *url.URL) {
	c.id = uuid.NewString()
	c.uri = u
	c.originalURI = u
	c.contentType = defaultContentType
	c.charset = defaultContentCharset
	c.contentLength = -1
	c.pending = true
}

// ID is the channel's unique identifier, used in logs.
func (c *channelState) ID() string { return c.id }

func (c *channelState) Name() string {
	if c.uri == nil {
		return ""
	}
	return c.uri.String()
}

func (c *channelState) URI() *url.URL { return c.uri }

func (c *channelState) OriginalURI() *url.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.originalURI
}

func (c *channelState) SetOriginalURI(u *url.URL) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.originalURI = u
}

func (c *channelState) ContentType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentType
}

func (c *channelState) SetContentType(ct string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contentType = ct
}

func (c *channelState) ContentCharset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.charset
}

// SetContentCharset sets the charset Text results are encoded with.
func (c *channelState) SetContentCharset(charset string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.charset = charset
}

func (c *channelState) ContentLength() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentLength
}

func (c *channelState) setContentLength(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contentLength = n
}

func (c *channelState) Owner() Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

func (c *channelState) SetOwner(p Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = p
}

func (c *channelState) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetStatus records a failure code the listener will see at stop without
// ending delivery. It has no effect once the channel is no longer pending.
func (c *channelState) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		c.status = s
	}
}

func (c *channelState) IsPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *channelState) Cancel(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return
	}
	c.status = s
	c.pending = false
}

func (c *channelState) Suspend() {}

func (c *channelState) Resume() {}

func (c *channelState) SetLoadGroup(g LoadGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadGroup = g
}

func (c *channelState) group() LoadGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadGroup
}

// stopStatus resolves the status reported at stop: a code recorded by
// Cancel or SetStatus wins over a successful want.
func (c *channelState) stopStatus(want Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusOK {
		return c.status
	}
	if !want.Succeeded() {
		c.status = want
	}
	return want
}

// claimStop returns true for exactly one caller.
func (c *channelState) claimStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.stopped = true
	return true
}

func (c *channelState) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
}

// notifier sequences listener calls for one Open.
type notifier struct {
	ch      Channel
	state   *channelState
	l       StreamListener
	log     *slog.Logger
	ctx     context.Context
	started bool
	offset  int64
}

// start calls OnStartRequest once. It reports false when the channel is no
// longer pending or the listener rejected the start.
func (n *notifier) start() bool {
	if n.started {
		return n.alive()
	}
	if !n.alive() {
		return false
	}
	n.log.DebugContext(n.ctx, "starting request")
	n.started = true
	if err := n.l.OnStartRequest(n.ch); err != nil {
		n.log.DebugContext(n.ctx, "listener rejected start", slog.String("error", err.Error()))
		n.state.Cancel(StatusFailure)
		return false
	}
	return true
}

// data delivers count bytes from r if the channel is still pending.
func (n *notifier) data(r io.Reader, count int) bool {
	if !n.started || !n.alive() {
		return false
	}
	if err := n.l.OnDataAvailable(n.ch, r, n.offset, count); err != nil {
		n.log.DebugContext(n.ctx, "listener rejected data", slog.String("error", err.Error()))
		n.state.Cancel(StatusFailure)
		return false
	}
	n.offset += int64(count)
	return true
}

// alive reports whether delivery may continue. A done context cancels the
// channel here as well as in Open's AfterFunc, which runs asynchronously.
func (n *notifier) alive() bool {
	if n.ctx != nil && n.ctx.Err() != nil {
		n.state.Cancel(StatusBindingAborted)
	}
	return n.state.IsPending()
}

// stop calls OnStopRequest exactly once and then clears pending.
func (n *notifier) stop(want Status) Status {
	if !n.state.claimStop() {
		return n.state.Status()
	}
	status := n.state.stopStatus(want)
	n.log.DebugContext(n.ctx, "stopping request", slog.String("status", status.String()))
	n.l.OnStopRequest(n.ch, status)
	n.state.finish()
	return status
}
