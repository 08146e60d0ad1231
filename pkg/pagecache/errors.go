package pagecache

import "errors"

var (
	// ErrNotFound is returned when no page is stored for a URI or it has expired.
	ErrNotFound = errors.New("pagecache: page not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("pagecache: closed")

	ErrEmptyURI  = errors.New("pagecache: empty uri")
	ErrMarshal   = errors.New("pagecache: failed to marshal page")
	ErrUnmarshal = errors.New("pagecache: failed to unmarshal page")
)
