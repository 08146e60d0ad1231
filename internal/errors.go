package internal

import "errors"

var (
	// ErrNoInterface is returned when no extension or host can serve a URI.
	ErrNoInterface = errors.New("zotero: no interface for URI")

	ErrFailure       = errors.New("zotero: operation failed")
	ErrAborted       = errors.New("zotero: binding aborted")
	ErrInvalidResult = errors.New("zotero: invalid producer result")
	ErrNilProducer   = errors.New("zotero: channel has no producer")
	ErrAlreadyOpened = errors.New("zotero: channel already opened")

	// ErrProxyDepth is returned when a proxied URI is itself a proxy request.
	ErrProxyDepth = errors.New("zotero: proxy depth exceeded")

	ErrUnsupportedScheme = errors.New("zotero: unsupported scheme")
	ErrInvalidPrefix     = errors.New("zotero: invalid extension prefix")
	ErrDuplicatePrefix   = errors.New("zotero: extension prefix already registered")
	ErrNilExtension      = errors.New("zotero: nil extension")
	ErrNilListener       = errors.New("zotero: nil stream listener")

	// ErrInvalidProxy is returned for a proxy path without a target.
	ErrInvalidProxy = errors.New("zotero: proxy target missing")
)
