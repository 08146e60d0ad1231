package extensions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

// Connector serves pages injected by the connector under their original
// URI: zotero://connector/<escaped-uri>. The page is delivered with the
// origin of that URI rather than the zotero:// scheme.
type Connector struct {
	pages pagecache.Store
}

// NewConnector serves pages that were stored in pages under their URI.
func NewConnector(pages pagecache.Store) *Connector {
	return &Connector{pages: pages}
}

// NewChannel returns a nil channel when no page is stored for the URI.
func (e *Connector) NewChannel(ctx context.Context, u *url.URL) (zotero.Channel, error) {
	key, err := connectorKey(u)
	if err != nil {
		return nil, err
	}

	page, err := e.pages.Get(ctx, key)
	if errors.Is(err, pagecache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connector page %s: %w", key, err)
	}

	ch, err := zotero.NewPrebuiltChannel(key, page.Body)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// connectorKey unescapes everything after the first "/" of the request
// path.
func connectorKey(u *url.URL) (string, error) {
	p := requestPath(u)
	if i := strings.Index(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	key, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("connector uri: %w", err)
	}
	return key, nil
}
