package internal_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/internal"
)

func TestRunServer(t *testing.T) {
	t.Parallel()

	t.Run("serves until the context ends and runs hooks in order", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		h := internal.NewHandler()
		require.NoError(t, h.Register("zotero://data", pathExtension()))

		addrCh := make(chan net.Addr, 1)
		var order []string
		done := make(chan error, 1)
		go func() {
			done <- internal.RunServer(internal.NewBridge(h).Routes(),
				internal.Address("127.0.0.1:0"),
				internal.WithContext(ctx),
				internal.ShutdownTimeout(5*time.Second),
				internal.OnListen(func(a net.Addr) { addrCh <- a }),
				internal.ShutdownHook(func(context.Context) error { order = append(order, "first"); return nil }),
				internal.ShutdownHook(func(context.Context) error { order = append(order, "second"); return nil }),
			)
		}()

		var addr net.Addr
		select {
		case addr = <-addrCh:
		case <-time.After(5 * time.Second):
			t.Fatal("server did not start")
		}

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+addr.String()+"/data/items", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "/items", string(body))

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("server did not stop")
		}
		require.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("hook errors are joined", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		errHook := errors.New("hook failed")

		done := make(chan error, 1)
		go func() {
			done <- internal.RunServer(http.NotFoundHandler(),
				internal.Address("127.0.0.1:0"),
				internal.WithContext(ctx),
				internal.OnListen(func(net.Addr) { cancel() }),
				internal.ShutdownHook(func(context.Context) error { return errHook }),
			)
		}()

		select {
		case err := <-done:
			require.ErrorIs(t, err, errHook)
		case <-time.After(10 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		t.Parallel()
		err := internal.RunServer(http.NotFoundHandler(), internal.Address("256.0.0.1:bad"))
		require.Error(t, err)
	})
}
