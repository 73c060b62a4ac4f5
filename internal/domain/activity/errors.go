package activity

import "errors"

var (
	// ErrInvalidInput indicates an invalid activity entry.
	ErrInvalidInput = errors.New("invalid activity input")
	// ErrUnknownType indicates a filter on an activity type that is never logged.
	ErrUnknownType = errors.New("unknown activity type")
)
