package extensions_test

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/extensions"
	"github.com/peterckelly/zotero/pkg/pathrouter"
)

const timelineTemplate = `<html><head><script>document.write("<title>Timeline</title>");</script>` +
	`<script>Timeline.loadXML("zotero://timeline/data/", onData);</script></head>` +
	`<body onload="onLoad()"></body></html>`

// chrome is the host content used by every test handler.
var chrome = fstest.MapFS{
	"mozapps/content/xpinstall/xpinstallConfirm.xul": {Data: []byte("<window/>")},
	"zotero/skin/timeline/timeline.html":             {Data: []byte(timelineTemplate)},
	"zotero/skin/report/detail.css":                  {Data: []byte("body { margin: 0 }")},
	"zotero/skin/annotation-note.png":                {Data: []byte("PNG")},
}

type response struct {
	body        string
	contentType string
	status      zotero.Status
	channel     zotero.Channel
	openErr     error
	started     bool
}

func newHandler(t *testing.T) *zotero.Handler {
	t.Helper()
	return zotero.NewHandler(zotero.WithHost(zotero.NewFSHost(chrome)))
}

// fetch registers ext under the URI's host and opens the URI through a
// handler.
func fetch(t *testing.T, ext zotero.ChannelFactory, uri string, opts ...zotero.RegisterOption) response {
	t.Helper()
	h := newHandler(t)
	u, err := url.Parse(uri)
	require.NoError(t, err)
	require.NoError(t, h.Register(zotero.Scheme+"://"+u.Host, ext, opts...))
	return fetchFrom(t, h, uri)
}

func fetchFrom(t *testing.T, h *zotero.Handler, uri string) response {
	t.Helper()
	u, err := url.Parse(uri)
	require.NoError(t, err)

	ch, err := h.NewChannel(t.Context(), u)
	require.NoError(t, err)

	l := &zotero.BufferListener{}
	openErr := ch.Open(t.Context(), l)
	body, status, _ := l.Result()
	return response{
		body:        string(body),
		contentType: l.ContentType(),
		status:      status,
		channel:     ch,
		openErr:     openErr,
		started:     l.Started(),
	}
}

// --- Library fakes ---

type fakeLibrary struct {
	mu      sync.Mutex
	items   []extensions.Item
	parents map[int64]extensions.Item
	// scopes maps a scope key or ID to its name.
	scopes map[string]string
	err    error
	calls  []pathrouter.Params
}

func (l *fakeLibrary) Results(_ context.Context, params pathrouter.Params) ([]extensions.Item, error) {
	l.mu.Lock()
	l.calls = append(l.calls, params.Clone())
	l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	if _, err := l.scope(params); err != nil {
		return nil, err
	}
	return slices.Clone(l.items), nil
}

func (l *fakeLibrary) Item(_ context.Context, id int64) (extensions.Item, error) {
	it, ok := l.parents[id]
	if !ok {
		return extensions.Item{}, extensions.ErrItemNotFound
	}
	return it, nil
}

func (l *fakeLibrary) ScopeName(_ context.Context, params pathrouter.Params) (string, error) {
	return l.scope(params)
}

func (l *fakeLibrary) scope(params pathrouter.Params) (string, error) {
	kind := params.Get("scopeObject")
	if kind == "" {
		return "", nil
	}
	id := params.Get("scopeObjectKey")
	if id == "" {
		id = params.Get("scopeObjectID")
	}
	if name, ok := l.scopes[id]; ok {
		return name, nil
	}
	if kind == "searches" {
		return "", extensions.ErrSearchNotFound
	}
	return "", extensions.ErrCollectionNotFound
}

func (l *fakeLibrary) lastCall(t *testing.T) pathrouter.Params {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.calls)
	return l.calls[len(l.calls)-1]
}

type fakeGroups map[string]string

func (g fakeGroups) LibraryIDFromGroupID(_ context.Context, groupID string) (string, error) {
	id, ok := g[groupID]
	if !ok {
		return "", extensions.ErrItemNotFound
	}
	return id, nil
}

func (g fakeGroups) GroupIDFromLibraryID(_ context.Context, libraryID string) (string, error) {
	for gid, lid := range g {
		if lid == libraryID {
			return gid, nil
		}
	}
	return "", extensions.ErrItemNotFound
}
