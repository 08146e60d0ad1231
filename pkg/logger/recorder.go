package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRecorderSize is the number of lines kept when size <= 0.
const DefaultRecorderSize = 1000

// Recorder is a slog.Handler that keeps the most recent formatted records
// in a fixed-size ring.
type Recorder struct {
	ring   *ring
	prefix []slog.Attr
	group  string
	level  slog.Level
}

type ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRecorder creates a recorder that keeps up to size lines at or above level.
func NewRecorder(size int, level slog.Level) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{ring: &ring{lines: make([]string, size)}, level: level}
}

func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder
	t := rec.Time
	if t.IsZero() {
		t = time.Now()
	}
	b.WriteString(t.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(rec.Level.String())
	b.WriteByte(' ')
	b.WriteString(rec.Message)
	for _, a := range r.prefix {
		writeAttr(&b, "", a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, r.group, a)
		return true
	})
	r.ring.push(b.String())
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return r
	}
	next := *r
	next.prefix = make([]slog.Attr, 0, len(r.prefix)+len(attrs))
	next.prefix = append(next.prefix, r.prefix...)
	for _, a := range attrs {
		if r.group != "" {
			a.Key = r.group + "." + a.Key
		}
		next.prefix = append(next.prefix, a)
	}
	return &next
}

func (r *Recorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	next := *r
	if r.group != "" {
		name = r.group + "." + name
	}
	next.group = name
	return &next
}

// Lines returns the recorded lines, oldest first.
func (r *Recorder) Lines() []string {
	return r.ring.snapshot()
}

// Text returns the recorded lines joined by newlines.
func (r *Recorder) Text() string {
	return strings.Join(r.ring.snapshot(), "\n")
}

// Reset drops all recorded lines.
func (r *Recorder) Reset() {
	r.ring.mu.Lock()
	defer r.ring.mu.Unlock()
	clear(r.ring.lines)
	r.ring.next = 0
	r.ring.full = false
}

func (q *ring) push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lines[q.next] = line
	q.next++
	if q.next == len(q.lines) {
		q.next = 0
		q.full = true
	}
}

func (q *ring) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.full {
		return append([]string(nil), q.lines[:q.next]...)
	}
	out := make([]string, 0, len(q.lines))
	out = append(out, q.lines[q.next:]...)
	return append(out, q.lines[:q.next]...)
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}
