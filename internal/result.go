package internal

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
)

// Result is what a producer yields: Text, ByteStream, FileRef or Empty.
type Result interface {
	isResult()
}

// Text is delivered in one piece, encoded in the channel's charset.
type Text string

// ByteStream is pumped to the listener as the reader yields data. A reader
// that is also an io.Closer is closed when delivery ends.
type ByteStream struct {
	Reader io.Reader
}

// FileRef names content to load: a local Path, or a URL whose scheme has a
// registered loader. Path wins when both are set.
type FileRef struct {
	Path string
	URL  *url.URL
}

// Empty asks the channel to abort without content.
type Empty struct{}

func (Text) isResult()       {}
func (ByteStream) isResult() {}
func (FileRef) isResult()    {}
func (Empty) isResult()      {}

// Stream wraps r as a ByteStream result.
func Stream(r io.Reader) ByteStream { return ByteStream{Reader: r} }

// File references a local file.
func File(path string) FileRef { return FileRef{Path: path} }

// Location references content at u.
func Location(u *url.URL) FileRef { return FileRef{URL: u} }

func (f FileRef) location() (*url.URL, error) {
	if f.Path != "" {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return nil, fmt.Errorf("zotero: resolve %s: %w", f.Path, err)
		}
		return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
	}
	if f.URL == nil {
		return nil, fmt.Errorf("%w: empty file reference", ErrInvalidResult)
	}
	return f.URL, nil
}

// ProducerFunc produces a channel's content. It is called at most once per
// channel, from Open, and may block. ctx is cancelled when Open's context
// ends.
type ProducerFunc func(ctx context.Context, ch *AsyncChannel) (Result, error)
