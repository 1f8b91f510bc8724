package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryNotFound  = errors.New("directory not found")
	ErrConstructNotFound  = errors.New("construct not found")
	ErrMalformedConstruct = fmt.Errorf("malformed construct: %w", ErrConstructNotFound)
	ErrIO                 = errors.New("i/o failure")
	ErrNoMatches          = errors.New("no files matched")
	ErrInvalidTemplate    = errors.New("invalid template")
)

// ErrNotFound is returned when a requested template does not exist.
var ErrNotFound = errors.New("not found")
