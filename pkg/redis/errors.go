package redis

import "errors"

var (
	ErrNoURL = errors.New("redis: connection URL is empty")
	// ErrBadURL covers URLs that are not redis:// or rediss:// or that
	// go-redis cannot parse.
	ErrBadURL      = errors.New("redis: malformed connection URL")
	ErrUnreachable = errors.New("redis: server unreachable")
	ErrPing        = errors.New("redis: ping failed")
)
