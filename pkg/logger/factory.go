package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the stdout encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures New.
type Option func(*options)

type options struct {
	output     io.Writer
	recorder   *Recorder
	sentry     *SentryConfig
	format     Format
	extractors []ContextExtractor
	level      slog.Level
}

// WithLevel sets the minimum level written to the output. Default: Info.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithFormat selects JSON or text output. Default: JSON.
func WithFormat(f Format) Option {
	return func(o *options) {
		if f != "" {
			o.format = f
		}
	}
}

// WithOutput sets the writer for formatted records. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithExtractors adds context extractors.
func WithExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) { o.extractors = append(o.extractors, extractors...) }
}

// WithRecorder also sends records to rec.
func WithRecorder(rec *Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithSentry also sends warnings and errors to Sentry.
func WithSentry(cfg SentryConfig) Option {
	return func(o *options) { o.sentry = &cfg }
}

// New creates a logger from opts.
func New(opts ...Option) *slog.Logger {
	o := &options{output: os.Stdout, format: FormatJSON, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(o)
	}

	hopts := &slog.HandlerOptions{Level: o.level}
	var out slog.Handler
	if o.format == FormatText {
		out = slog.NewTextHandler(o.output, hopts)
	} else {
		out = slog.NewJSONHandler(o.output, hopts)
	}

	handlers := []slog.Handler{out}
	if o.recorder != nil {
		handlers = append(handlers, o.recorder)
	}
	if o.sentry != nil {
		h, err := newSentryHandler(*o.sentry)
		switch {
		case err != nil:
			slog.New(out).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		case h != nil:
			handlers = append(handlers, h)
		}
	}

	var root slog.Handler = out
	if len(handlers) > 1 {
		root = fanout(handlers)
	}
	return slog.New(NewLogHandlerDecorator(root, o.extractors...))
}

// NewNope creates a logger that discards all output.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel parses "debug", "info", "warn" or "error" (case-insensitive).
// An empty string is Info.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: invalid level %q", s)
	}
	return level, nil
}

// fanout forwards each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, rec.Level) {
			if err := h.Handle(ctx, rec.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
