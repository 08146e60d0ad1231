package internal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/peterckelly/zotero/pkg/logger"
)

// PrebuiltChannel serves a fixed payload synchronously. It is used for
// pages injected out of band, so its original URI is always its own URI
// and its owner is the payload origin's codebase principal.
type PrebuiltChannel struct {
	channelState
	body   *bytes.Reader
	log    *slog.Logger
	closed atomic.Bool
	opened atomic.Bool
}

// NewPrebuiltChannel returns a text/html channel for uri delivering payload
// as UTF-8.
func NewPrebuiltChannel(uri string, payload string) (*PrebuiltChannel, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("zotero: prebuilt channel uri: %w", err)
	}
	c := &PrebuiltChannel{body: bytes.NewReader([]byte(payload)), log: logger.NewNope()}
	c.init(u)
	c.charset = "UTF-8"
	c.contentLength = int64(len(payload))
	c.owner = NewCodebasePrincipal(u)
	return c, nil
}

func (c *PrebuiltChannel) bind(env channelEnv) {
	if env.logger != nil {
		c.log = env.logger
	}
}

// OriginalURI is always the channel's URI.
func (c *PrebuiltChannel) OriginalURI() *url.URL { return c.uri }

// SetOriginalURI is a no-op.
func (c *PrebuiltChannel) SetOriginalURI(*url.URL) {}

// Cancel stops the channel and releases the payload if it has not been
// delivered.
func (c *PrebuiltChannel) Cancel(s Status) {
	c.channelState.Cancel(s)
	c.closed.Store(true)
}

// Open emits start, one data notification with the whole payload, and stop.
func (c *PrebuiltChannel) Open(ctx context.Context, l StreamListener) error {
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

	ctx = logger.ContextWith(ctx, slog.String("channel_id", c.id))
	n := &notifier{ch: c, state: &c.channelState, l: l, log: c.log, ctx: ctx}
	if !c.closed.Load() && n.start() {
		n.data(c.body, int(c.contentLength))
	}
	n.stop(StatusOK)
	return nil
}
