package extensions

import (
	"errors"
	"io"
	"strings"
)

// fallbackReader reads r and, if r fails before EOF, ends the stream with
// the fallback text instead of the error.
type fallbackReader struct {
	r        io.Reader
	fallback string
	tail     io.Reader
	onError  func(error)
}

func withFallback(r io.Reader, fallback string, onError func(error)) io.Reader {
	return &fallbackReader{r: r, fallback: fallback, onError: onError}
}

func (f *fallbackReader) Read(p []byte) (int, error) {
	if f.tail != nil {
		return f.tail.Read(p)
	}
	n, err := f.r.Read(p)
	if err == nil || errors.Is(err, io.EOF) {
		return n, err
	}
	if f.onError != nil {
		f.onError(err)
	}
	f.tail = strings.NewReader(f.fallback)
	if n > 0 {
		return n, nil
	}
	return f.tail.Read(p)
}

func (f *fallbackReader) Close() error {
	if c, ok := f.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
