package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/pkg/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with context attributes", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf))

		ctx := logger.ContextWith(context.Background(), slog.String("channel_id", "abc"))
		log.InfoContext(ctx, "started", slog.String("uri", "zotero://data/x"))

		m := decodeLine(t, &buf)
		require.Equal(t, "started", m["msg"])
		require.Equal(t, "abc", m["channel_id"])
		require.Equal(t, "zotero://data/x", m["uri"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
		log.Info("hidden")
		require.Zero(t, buf.Len())
		log.Warn("shown")
		require.Contains(t, buf.String(), "shown")
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))
		log.Info("hello", slog.Int("n", 3))
		require.Contains(t, buf.String(), "msg=hello")
		require.Contains(t, buf.String(), "n=3")
	})

	t.Run("custom extractor", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithExtractors(
			func(ctx context.Context) (slog.Attr, bool) {
				v, ok := ctx.Value(key{}).(string)
				return slog.String("request_id", v), ok
			},
			nil,
		))
		log.InfoContext(context.WithValue(context.Background(), key{}, "r-1"), "x")
		require.Equal(t, "r-1", decodeLine(t, &buf)["request_id"])
	})

	t.Run("empty sentry dsn is ignored", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithSentry(logger.SentryConfig{}))
		log.Error("boom")
		require.Contains(t, buf.String(), "boom")
	})

	t.Run("recorder receives records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		rec := logger.NewRecorder(10, slog.LevelDebug)
		log := logger.New(logger.WithOutput(&buf), logger.WithRecorder(rec))
		log.Debug("debug only in recorder")
		log.Info("both")

		require.NotContains(t, buf.String(), "debug only in recorder")
		lines := rec.Lines()
		require.Len(t, lines, 2)
		require.Contains(t, lines[0], "DEBUG debug only in recorder")
		require.Contains(t, lines[1], "INFO both")
	})
}

func TestContextWith(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Equal(t, ctx, logger.ContextWith(ctx))
	require.Nil(t, logger.AttrsFromContext(ctx))

	parent := logger.ContextWith(ctx, slog.String("a", "1"))
	child1 := logger.ContextWith(parent, slog.String("b", "2"))
	child2 := logger.ContextWith(parent, slog.String("c", "3"))

	require.Len(t, logger.AttrsFromContext(parent), 1)
	require.Equal(t, "b", logger.AttrsFromContext(child1)[1].Key)
	require.Equal(t, "c", logger.AttrsFromContext(child2)[1].Key)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := logger.ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// --- Recorder ---

func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("keeps the newest lines", func(t *testing.T) {
		t.Parallel()
		rec := logger.NewRecorder(3, slog.LevelInfo)
		log := slog.New(rec)
		for i := range 5 {
			log.Info(fmt.Sprintf("line %d", i))
		}
		lines := rec.Lines()
		require.Len(t, lines, 3)
		require.Contains(t, lines[0], "line 2")
		require.Contains(t, lines[2], "line 4")
		require.Equal(t, 3, strings.Count(rec.Text(), "line"))
	})

	t.Run("attrs and groups", func(t *testing.T) {
		t.Parallel()
		rec := logger.NewRecorder(0, slog.LevelInfo)
		log := slog.New(rec).With(slog.String("ext", "data")).WithGroup("req")
		log.Info("done", slog.Int("status", 0), slog.Group("g", slog.String("k", "v")))

		line := rec.Lines()[0]
		assert.Contains(t, line, "ext=data")
		assert.Contains(t, line, "req.status=0")
		assert.Contains(t, line, "req.g.k=v")
	})

	t.Run("level and reset", func(t *testing.T) {
		t.Parallel()
		rec := logger.NewRecorder(4, slog.LevelWarn)
		log := slog.New(rec)
		log.Info("skip")
		log.Error("keep")
		require.Len(t, rec.Lines(), 1)

		rec.Reset()
		require.Empty(t, rec.Lines())
		require.Empty(t, rec.Text())
	})
}

func TestNewNope(t *testing.T) {
	t.Parallel()
	require.NotPanics(t, func() { logger.NewNope().Error("discarded") })
}
