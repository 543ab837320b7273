package search

import "errors"

var (
	// ErrInvalidArgument is returned for an empty query or an article without an id.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned by Similar for an id that is not indexed.
	ErrNotFound = errors.New("article not indexed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("search index closed")
)
