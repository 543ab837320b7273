package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrClosed         = errors.New("store closed")
	ErrInvalidFixture = errors.New("invalid fixture")
)
