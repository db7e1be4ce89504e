package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidOptions    = errors.New("invalid search options")
	ErrMissingPath       = errors.New("document path is required")
	ErrInvalidLineNumber = errors.New("invalid line number")
	ErrInvalidOffsets    = errors.New("match offsets out of range")
	ErrInvalidOrigin     = errors.New("unknown result origin")
	ErrInvalidScore      = errors.New("score must be between 1 and 5")
)
