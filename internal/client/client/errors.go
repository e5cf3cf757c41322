package client

import "errors"

var (
	ErrUnavailable     = errors.New("agent unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
)
