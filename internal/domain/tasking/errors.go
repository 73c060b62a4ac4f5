package tasking

import "errors"

var (
	// ErrInvalidID indicates an id that is neither a number nor a non-empty string.
	ErrInvalidID = errors.New("invalid id")
	// ErrRowNotFound indicates an edit targeting a row that does not exist.
	ErrRowNotFound = errors.New("row not found")
	// ErrFieldNotEditable indicates an edit to a field the row kind does not carry.
	ErrFieldNotEditable = errors.New("field not editable on this row")
	// ErrInvalidPriority indicates a priority outside Low, Medium and High.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrSentinelValue indicates an attempt to store the display-only "Multiple" marker.
	ErrSentinelValue = errors.New("display sentinel is not a value")
	// ErrMalformedStore indicates a record store payload that is not an object of objects.
	ErrMalformedStore = errors.New("malformed record store")
)
