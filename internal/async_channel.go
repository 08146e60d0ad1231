package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/storage"
)

const pumpBufferSize = 32 * 1024

// AsyncChannel runs a producer once and turns its Result into listener
// notifications.
type AsyncChannel struct {
	channelState
	producer ProducerFunc
	env      channelEnv
	opened   atomic.Bool
}

// NewAsyncChannel creates a pending channel for u. A nil producer yields a
// channel that can only be cancelled.
func NewAsyncChannel(u *url.URL, producer ProducerFunc) *AsyncChannel {
	c := &AsyncChannel{producer: producer, env: defaultChannelEnv()}
	c.init(u)
	return c
}

// NewErrorChannel returns a channel that delivers message as plain text and
// stops with StatusFailure.
func NewErrorChannel(u *url.URL, message string) *AsyncChannel {
	c := NewAsyncChannel(u, func(context.Context, *AsyncChannel) (Result, error) {
		return Text(message), nil
	})
	c.SetContentType("text/plain")
	c.SetStatus(StatusFailure)
	return c
}

// newCancelledChannel returns a channel that stops with status on Open.
func newCancelledChannel(u *url.URL, status Status) *AsyncChannel {
	c := NewAsyncChannel(u, nil)
	c.SetOwner(internalPrincipal)
	c.Cancel(status)
	return c
}

func (c *AsyncChannel) bind(env channelEnv) {
	if env.logger == nil {
		env.logger = c.env.logger
	}
	if env.loader == nil {
		env.loader = c.env.loader
	}
	if env.tracer == nil {
		env.tracer = c.env.tracer
	}
	c.env = env
}

// Open runs the producer and delivers its result to l. It returns after
// l.OnStopRequest. Cancelling ctx cancels the channel with
// StatusBindingAborted.
//
// Errors raised before the listener saw OnStartRequest are returned;
// later failures are reported only through the stop status.
func (c *AsyncChannel) Open(ctx context.Context, l StreamListener) error {
	if l == nil {
		return ErrNilListener
	}
	if !c.opened.CompareAndSwap(false, true) {
		return ErrAlreadyOpened
	}
	if g := c.group(); g != nil {
		g.AddRequest(c)
		defer func() { g.RemoveRequest(c, c.Status()) }()
	}

	ext := c.env.extension
	ctx = logger.ContextWith(ctx, slog.String("channel_id", c.id))
	ctx, span := c.env.tracer.Start(ctx, "zotero.channel.open",
		trace.WithAttributes(
			attribute.String("zotero.uri", c.Name()),
			attribute.String("zotero.extension", ext),
		),
	)
	defer span.End()

	release := context.AfterFunc(ctx, func() { c.Cancel(StatusBindingAborted) })
	defer release()

	done := c.env.metrics.channelOpened(ext)
	began := time.Now()

	n := &notifier{ch: c, state: &c.channelState, l: l, log: c.env.logger, ctx: ctx}
	err := c.run(ctx, n)
	status := n.stop(StatusOK)

	elapsed := time.Since(began)
	done(status, elapsed)
	c.env.logger.DebugContext(ctx, "request finished",
		slog.String("status", status.String()),
		slog.Int64("elapsed_ms", elapsed.Milliseconds()),
	)

	span.SetAttributes(attribute.String("zotero.status", status.String()))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !status.Succeeded():
		span.SetStatus(codes.Error, status.String())
	default:
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (c *AsyncChannel) run(ctx context.Context, n *notifier) error {
	if !n.alive() {
		n.stop(c.Status())
		return nil
	}

	res, err := c.produce(ctx)
	if err != nil {
		c.env.logger.ErrorContext(ctx, "producer failed", slog.String("error", err.Error()))
		n.stop(StatusFailure)
		return err
	}

	switch r := res.(type) {
	case nil, Empty:
		c.Cancel(StatusBindingAborted)
		n.stop(StatusBindingAborted)
		return nil
	case Text:
		return c.deliverText(n, string(r))
	case ByteStream:
		return c.deliverStream(ctx, n, r.Reader)
	case FileRef:
		return c.deliverFile(ctx, n, r)
	default:
		n.stop(StatusFailure)
		return fmt.Errorf("%w: %T", ErrInvalidResult, res)
	}
}

// produce resolves the proxy short-circuit or calls the producer.
func (c *AsyncChannel) produce(ctx context.Context) (res Result, err error) {
	if isProxy(c.uri) {
		body, err := c.loadProxy(ctx)
		if err != nil {
			return nil, err
		}
		return Text(body), nil
	}
	if c.producer == nil {
		return nil, ErrNilProducer
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: producer panic: %v", ErrFailure, r)
		}
	}()
	res, err = c.producer(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("zotero: produce %s: %w", c.Name(), err)
	}
	return res, nil
}

func (c *AsyncChannel) deliverText(n *notifier, s string) error {
	b, err := encodeText(s, c.ContentCharset())
	if err != nil {
		n.stop(StatusFailure)
		return err
	}
	c.setContentLength(int64(len(b)))
	if n.start() {
		n.data(bytes.NewReader(b), len(b))
	}
	n.stop(StatusOK)
	return nil
}

func (c *AsyncChannel) deliverStream(ctx context.Context, n *notifier, r io.Reader) error {
	if r == nil {
		n.stop(StatusFailure)
		return fmt.Errorf("%w: nil stream", ErrInvalidResult)
	}
	if rc, ok := r.(io.Closer); ok {
		defer rc.Close()
	}
	if !n.start() {
		n.stop(StatusOK)
		return nil
	}

	buf := make([]byte, pumpBufferSize)
	for n.alive() {
		k, err := r.Read(buf)
		// Each chunk gets its own copy so a listener may keep the reader.
		if k > 0 && !n.data(bytes.NewReader(bytes.Clone(buf[:k])), k) {
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.env.logger.ErrorContext(ctx, "stream read failed", slog.String("error", err.Error()))
			n.stop(StatusFailure)
			return nil
		}
	}
	n.stop(StatusOK)
	return nil
}

func (c *AsyncChannel) deliverFile(ctx context.Context, n *notifier, ref FileRef) error {
	u, err := ref.location()
	if err != nil {
		n.stop(StatusFailure)
		return err
	}

	ct := storage.MIMEFromExt(path.Ext(u.Path))
	if ct == "" {
		ct = storage.MIMEOctetStream
	}
	c.SetContentType(ct)

	body, err := readAll(ctx, c.env.loader, u)
	if err != nil {
		c.env.logger.ErrorContext(ctx, "file reference failed",
			slog.String("location", u.String()),
			slog.String("error", err.Error()),
		)
		n.stop(StatusFailure)
		return err
	}

	c.setContentLength(int64(len(body)))
	if n.start() {
		n.data(bytes.NewReader(body), len(body))
	}
	n.stop(StatusOK)
	return nil
}

// encodeText converts s from UTF-8 to charset.
func encodeText(s, charset string) ([]byte, error) {
	switch charset {
	case "", "utf-8", "UTF-8", "utf8":
		return []byte(s), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("zotero: charset %q: %w", charset, err)
	}
	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("zotero: encode %s: %w", charset, err)
	}
	return b, nil
}
