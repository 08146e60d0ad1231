package extensions

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/logger"
)

// StandaloneWindow and StandaloneWindowFeatures describe the window the
// fullscreen extension opens.
const (
	StandaloneWindow         = "chrome://zotero/content/standalone/standalone.xul"
	StandaloneWindowFeatures = "chrome,centerscreen,resizable"
)

// WindowOpener opens application windows.
type WindowOpener interface {
	OpenWindow(ctx context.Context, location, features string) error
}

// Fullscreen opens the standalone window for zotero://fullscreen. The
// channel itself delivers nothing.
type Fullscreen struct {
	opener WindowOpener
	logger *slog.Logger
}

func NewFullscreen(opener WindowOpener, l *slog.Logger) *Fullscreen {
	if l == nil {
		l = logger.NewNope()
	}
	return &Fullscreen{opener: opener, logger: l}
}

func (e *Fullscreen) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(ctx context.Context, _ *zotero.AsyncChannel) (zotero.Result, error) {
		if err := e.opener.OpenWindow(ctx, StandaloneWindow, StandaloneWindowFeatures); err != nil {
			e.logger.ErrorContext(ctx, "open standalone window", slog.String("error", err.Error()))
			return nil, err
		}
		return zotero.Empty{}, nil
	}), nil
}
