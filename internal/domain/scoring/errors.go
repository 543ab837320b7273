package scoring

import "errors"

// ErrInvalidArgument is returned when the person or the domain is empty.
var ErrInvalidArgument = errors.New("scoring: invalid argument")
