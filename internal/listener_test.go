package internal_test

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/internal"
)

type event struct {
	kind   string
	data   string
	offset int64
	status internal.Status
}

// recordingListener records the notification sequence.
type recordingListener struct {
	mu       sync.Mutex
	events   []event
	startErr error
	dataErr  error
}

func (r *recordingListener) OnStartRequest(internal.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "start"})
	return r.startErr
}

func (r *recordingListener) OnDataAvailable(_ internal.Channel, in io.Reader, offset int64, count int) error {
	b := make([]byte, count)
	if _, err := io.ReadFull(in, b); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "data", data: string(b), offset: offset})
	return r.dataErr
}

func (r *recordingListener) OnStopRequest(_ internal.Channel, status internal.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "stop", status: status})
}

// retainingListener keeps the data readers without reading them.
type retainingListener struct {
	readers []io.Reader
}

func (r *retainingListener) OnStartRequest(internal.Channel) error { return nil }

func (r *retainingListener) OnDataAvailable(_ internal.Channel, in io.Reader, _ int64, _ int) error {
	r.readers = append(r.readers, in)
	return nil
}

func (r *retainingListener) OnStopRequest(internal.Channel, internal.Status) {}

// kinds returns the event kinds joined by spaces, e.g. "start data stop".
func (r *recordingListener) kinds() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return strings.Join(out, " ")
}

func (r *recordingListener) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, e := range r.events {
		b.WriteString(e.data)
	}
	return b.String()
}

func (r *recordingListener) stopStatus(t *testing.T) internal.Status {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var stops []internal.Status
	for _, e := range r.events {
		if e.kind == "stop" {
			stops = append(stops, e.status)
		}
	}
	require.Len(t, stops, 1, "exactly one stop notification")
	require.Equal(t, "stop", r.events[len(r.events)-1].kind, "stop is last")
	return stops[0]
}

// chunkReader yields one chunk per Read.
type chunkReader struct {
	chunks []string
	err    error
	closed bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func (c *chunkReader) Close() error {
	c.closed = true
	return nil
}

// countingGroup records load group calls.
type countingGroup struct {
	mu      sync.Mutex
	added   int
	removed int
	last    internal.Status
}

func (g *countingGroup) AddRequest(internal.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.added++
}

func (g *countingGroup) RemoveRequest(_ internal.Channel, s internal.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removed++
	g.last = s
}

var errBoom = errors.New("boom")

// --- BufferListener ---

func TestBufferListener(t *testing.T) {
	t.Parallel()

	t.Run("collects body", func(t *testing.T) {
		t.Parallel()
		ch := internal.NewAsyncChannel(mustURL(t, "zotero://data/x"), textProducer("hello"))
		var l internal.BufferListener
		require.NoError(t, ch.Open(t.Context(), &l))

		body, status, err := l.Result()
		require.NoError(t, err)
		require.Equal(t, internal.StatusOK, status)
		require.Equal(t, "hello", string(body))
		require.True(t, l.Started())
		require.Equal(t, "text/html", l.ContentType())
		require.Equal(t, "utf-8", l.ContentCharset())
	})

	t.Run("not stopped is an error", func(t *testing.T) {
		t.Parallel()
		var l internal.BufferListener
		_, _, err := l.Result()
		require.ErrorIs(t, err, internal.ErrFailure)
	})

	t.Run("failure status is an error", func(t *testing.T) {
		t.Parallel()
		ch := internal.NewErrorChannel(mustURL(t, "zotero://attachment/x"), "Item not found")
		var l internal.BufferListener
		require.NoError(t, ch.Open(t.Context(), &l))

		body, status, err := l.Result()
		require.ErrorIs(t, err, internal.ErrFailure)
		require.Equal(t, internal.StatusFailure, status)
		require.Equal(t, "Item not found", string(body))
	})
}
