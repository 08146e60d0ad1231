package internal

import "fmt"

// Status is the terminal code a channel reports to its listener.
// Values follow the host's result-code convention: the high bit marks
// failure.
type Status uint32

const (
	StatusOK             Status = 0
	StatusBindingAborted Status = 0x804b0002
	StatusFailure        Status = 0x80004005
)

// Succeeded reports whether s is a success code.
func (s Status) Succeeded() bool {
	return s&0x80000000 == 0
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBindingAborted:
		return "binding_aborted"
	case StatusFailure:
		return "failure"
	}
	return fmt.Sprintf("0x%08x", uint32(s))
}

// Err returns nil for success codes and a *StatusError otherwise.
func (s Status) Err() error {
	if s.Succeeded() {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError reports a channel that stopped with a failure code.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return "zotero: request stopped with status " + e.Status.String()
}

// Is matches ErrAborted and ErrFailure against the two surfaced codes.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrAborted:
		return e.Status == StatusBindingAborted
	case ErrFailure:
		return e.Status == StatusFailure
	}
	return false
}
