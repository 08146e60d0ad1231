package internal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/internal"
	"github.com/peterckelly/zotero/pkg/health"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

func newBridgeHandler(t *testing.T) *internal.Handler {
	t.Helper()
	h := internal.NewHandler()
	require.NoError(t, h.Register("zotero://data", pathExtension()))
	require.NoError(t, h.Register("zotero://attachment", internal.ChannelFactoryFunc(
		func(_ context.Context, u *url.URL) (internal.Channel, error) {
			return internal.NewErrorChannel(u, "Item not found"), nil
		})))
	require.NoError(t, h.Register("zotero://select", internal.ChannelFactoryFunc(
		func(context.Context, *url.URL) (internal.Channel, error) { return nil, nil })))
	require.NoError(t, h.Register("zotero://echo", internal.ChannelFactoryFunc(
		func(_ context.Context, u *url.URL) (internal.Channel, error) {
			return internal.NewAsyncChannel(u, textProducer(u.String())), nil
		})))
	return h
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(t.Context(), method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Content ---

func TestBridgeContent(t *testing.T) {
	t.Parallel()

	routes := internal.NewBridge(newBridgeHandler(t)).Routes()

	tests := []struct {
		name        string
		target      string
		code        int
		body        string
		contentType string
	}{
		{"content", "/data/library/items", http.StatusOK, "/library/items", "text/html; charset=utf-8"},
		{"failure status", "/attachment/12", http.StatusInternalServerError, "Item not found", "text/plain; charset=utf-8"},
		{"aborted", "/select/items/1", http.StatusNoContent, "", ""},
		{"unclaimed", "/nothing/here", http.StatusNotFound, "", ""},
		{"query and escapes survive", "/echo/a%20b?x=1&y=2", http.StatusOK, "zotero://echo/a%20b?x=1&y=2", "text/html; charset=utf-8"},
		{"bare extension", "/echo", http.StatusOK, "zotero://echo", "text/html; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, routes, http.MethodGet, tt.target, "")
			require.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				require.Equal(t, tt.body, rec.Body.String())
			}
			if tt.contentType != "" {
				require.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}

	t.Run("content length and request id", func(t *testing.T) {
		t.Parallel()
		rec := do(t, routes, http.MethodGet, "/data/x", "")
		require.Equal(t, "2", rec.Header().Get("Content-Length"))
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

// --- Connector ---

func TestBridgeConnector(t *testing.T) {
	t.Parallel()

	pages := pagecache.NewMemory()
	t.Cleanup(func() { _ = pages.Close() })
	routes := internal.NewBridge(newBridgeHandler(t), internal.WithConnectorStore(pages, time.Minute)).Routes()

	const uri = "https://example.com/article"

	rec := do(t, routes, http.MethodPut, "/_connector?uri="+url.QueryEscape(uri), "<p>snapshot</p>")
	require.Equal(t, http.StatusNoContent, rec.Code)

	page, err := pages.Get(t.Context(), uri)
	require.NoError(t, err)
	require.Equal(t, "<p>snapshot</p>", page.Body)
	require.Equal(t, "text/html", page.ContentType)

	rec = do(t, routes, http.MethodDelete, "/_connector?uri="+url.QueryEscape(uri), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = pages.Get(t.Context(), uri)
	require.ErrorIs(t, err, pagecache.ErrNotFound)

	t.Run("missing uri", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, http.StatusBadRequest, do(t, routes, http.MethodPut, "/_connector", "x").Code)
		require.Equal(t, http.StatusBadRequest, do(t, routes, http.MethodDelete, "/_connector", "").Code)
	})

	t.Run("oversized page", func(t *testing.T) {
		t.Parallel()
		body := strings.Repeat("a", internal.MaxConnectorPageSize+1)
		rec := do(t, routes, http.MethodPut, "/_connector?uri=https%3A%2F%2Fexample.com%2Fbig", body)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("disabled without a store", func(t *testing.T) {
		t.Parallel()
		routes := internal.NewBridge(newBridgeHandler(t)).Routes()
		rec := do(t, routes, http.MethodPut, "/_connector?uri=x", "x")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

// --- Operational endpoints ---

func TestBridgeOperational(t *testing.T) {
	t.Parallel()

	t.Run("health", func(t *testing.T) {
		t.Parallel()
		routes := internal.NewBridge(newBridgeHandler(t), internal.WithHealthChecks(health.Checks{
			"cache": func(context.Context) error { return errBoom },
		})).Routes()

		require.Equal(t, http.StatusOK, do(t, routes, http.MethodGet, "/health/live", "").Code)
		require.Equal(t, http.StatusServiceUnavailable, do(t, routes, http.MethodGet, "/health/ready", "").Code)
	})

	t.Run("metrics", func(t *testing.T) {
		t.Parallel()
		reg := prometheus.NewRegistry()
		h := internal.NewHandler(internal.WithMetrics(internal.NewMetrics(reg, "")))
		require.NoError(t, h.Register("zotero://data", pathExtension()))
		routes := internal.NewBridge(h, internal.WithGatherer(reg)).Routes()

		require.Equal(t, http.StatusOK, do(t, routes, http.MethodGet, "/data/x", "").Code)
		rec := do(t, routes, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `zotero_channels_total{extension="data",status="ok"} 1`)
	})

	t.Run("request timeout aborts slow producers", func(t *testing.T) {
		t.Parallel()
		h := internal.NewHandler()
		require.NoError(t, h.Register("zotero://slow", internal.ChannelFactoryFunc(
			func(_ context.Context, u *url.URL) (internal.Channel, error) {
				return internal.NewAsyncChannel(u, func(ctx context.Context, _ *internal.AsyncChannel) (internal.Result, error) {
					<-ctx.Done()
					return internal.Text("late"), nil
				}), nil
			})))
		routes := internal.NewBridge(h, internal.WithRequestTimeout(20*time.Millisecond)).Routes()

		rec := do(t, routes, http.MethodGet, "/slow/x", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, rec.Body.String())
	})
}
