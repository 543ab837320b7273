package service

import "errors"

// Sentinel error kinds returned by the service. Callers use errors.Is; the
// HTTP layer maps each kind to a status code.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("repository unavailable")
	ErrNotStarted      = errors.New("service not started")
)
