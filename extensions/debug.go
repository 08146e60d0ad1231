package extensions

import (
	"context"
	"net/url"

	"github.com/peterckelly/zotero"
)

// DebugOutput is the recorded debug log. *logger.Recorder implements it.
type DebugOutput interface {
	Text() string
}

// Debug serves the recorded debug output at zotero://debug.
type Debug struct {
	output DebugOutput
}

func NewDebug(output DebugOutput) *Debug {
	return &Debug{output: output}
}

func (e *Debug) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(context.Context, *zotero.AsyncChannel) (zotero.Result, error) {
		return zotero.Text(e.output.Text()), nil
	}), nil
}
