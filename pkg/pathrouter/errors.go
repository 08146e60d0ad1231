package pathrouter

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPath    = errors.New("pathrouter: path could not be parsed")
	ErrInvalidPattern = errors.New("pathrouter: invalid pattern")
)

// InvalidPathError reports a path that no registered route accepted.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("pathrouter: path %q could not be parsed", e.Path)
}

func (e *InvalidPathError) Unwrap() error {
	return ErrInvalidPath
}
