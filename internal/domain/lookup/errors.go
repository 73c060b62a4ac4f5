package lookup

import "errors"

var (
	// ErrInvalidKind indicates an unknown enumeration.
	ErrInvalidKind = errors.New("invalid option kind")
	// ErrUnavailable indicates the enumerations could not be loaded.
	ErrUnavailable = errors.New("options unavailable")
)
