package internal

import (
	"bytes"
	"io"
	"sync"
)

// StreamListener receives a channel's notifications: one OnStartRequest,
// zero or more OnDataAvailable, then exactly one OnStopRequest.
//
// An error from OnStartRequest or OnDataAvailable cancels the channel with
// StatusFailure; the listener still receives OnStopRequest. The reader
// passed to OnDataAvailable holds exactly count bytes and is not reused
// for later chunks.
type StreamListener interface {
	OnStartRequest(ch Channel) error
	OnDataAvailable(ch Channel, r io.Reader, offset int64, count int) error
	OnStopRequest(ch Channel, status Status)
}

// LoadGroup tracks in-flight channels. RemoveRequest is called exactly once
// for every AddRequest.
type LoadGroup interface {
	AddRequest(ch Channel)
	RemoveRequest(ch Channel, status Status)
}

// BufferListener collects a channel's body in memory.
type BufferListener struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	started     bool
	stopped     bool
	status      Status
	contentType string
	charset     string
}

func (b *BufferListener) OnStartRequest(ch Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	b.contentType = ch.ContentType()
	b.charset = ch.ContentCharset()
	return nil
}

func (b *BufferListener) OnDataAvailable(_ Channel, r io.Reader, _ int64, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.CopyN(&b.buf, r, int64(count))
	return err
}

func (b *BufferListener) OnStopRequest(_ Channel, status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.status = status
}

// Bytes returns the collected body.
func (b *BufferListener) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// Result returns the body and the stop status. The error is non-nil when
// the channel did not stop or stopped with a failure code.
func (b *BufferListener) Result() ([]byte, Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		return nil, StatusFailure, ErrFailure
	}
	return bytes.Clone(b.buf.Bytes()), b.status, b.status.Err()
}

// Started reports whether OnStartRequest was received.
func (b *BufferListener) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// ContentType returns the type observed at start.
func (b *BufferListener) ContentType() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contentType
}

// ContentCharset returns the charset observed at start.
func (b *BufferListener) ContentCharset() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.charset
}
