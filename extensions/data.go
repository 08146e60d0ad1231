package extensions

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/pathrouter"
)

// DataSource produces the API representation of the objects params
// select.
type DataSource interface {
	Data(ctx context.Context, params pathrouter.Params) (io.Reader, error)
}

// Data serves zotero://data/library/collections/ABCD1234/items?sort=title
// as plain text.
type Data struct {
	source DataSource
	groups Groups
}

// NewData returns the data extension. groups may be nil when group
// libraries are not served.
func NewData(source DataSource, groups Groups) *Data {
	return &Data{source: source, groups: groups}
}

func (e *Data) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(ctx context.Context, ch *zotero.AsyncChannel) (zotero.Result, error) {
		ch.SetContentType("text/plain")

		params, err := ParseDataPath(requestPath(u))
		if errors.Is(err, pathrouter.ErrInvalidPath) {
			return zotero.Text("URL could not be parsed"), nil
		}
		if err != nil {
			return nil, err
		}
		if err := ParseParams(ctx, params, e.groups); err != nil {
			return nil, err
		}

		r, err := e.source.Data(ctx, params)
		if err != nil {
			return nil, err
		}
		return zotero.Stream(r), nil
	}), nil
}
