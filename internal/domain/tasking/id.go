package tasking

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is the canonical identifier of a record or row.
//
// The backend hands out ids as JSON numbers on some endpoints and as strings
// on others, and uses both forms for the same record. Every id is normalized
// once at the boundary: integral numbers and numeric strings become their
// decimal text, anything else is kept as trimmed text. IDs compare with ==.
type ID string

// NewID normalizes a raw id value. It returns false for nil, empty strings,
// booleans and non-integral numbers.
func NewID(v any) (ID, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case ID:
		return t, t != ""
	case string:
		return idFromString(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return ID(strconv.FormatInt(n, 10)), true
		}
		if f, err := t.Float64(); err == nil {
			return idFromFloat(f)
		}
		return "", false
	case float64:
		return idFromFloat(t)
	case float32:
		return idFromFloat(float64(t))
	case int:
		return ID(strconv.FormatInt(int64(t), 10)), true
	case int32:
		return ID(strconv.FormatInt(int64(t), 10)), true
	case int64:
		return ID(strconv.FormatInt(t, 10)), true
	case uint64:
		return ID(strconv.FormatUint(t, 10)), true
	default:
		return "", false
	}
}

// MustID is NewID for literals in tests and tools. It panics on invalid input.
func MustID(v any) ID {
	id, ok := NewID(v)
	if !ok {
		panic(fmt.Sprintf("tasking: invalid id %v", v))
	}
	return id
}

func idFromString(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(strconv.FormatInt(n, 10)), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && isIntegral(f) {
		return idFromFloat(f)
	}
	return ID(s), true
}

func idFromFloat(f float64) (ID, bool) {
	if !isIntegral(f) {
		return "", false
	}
	return ID(strconv.FormatInt(int64(f), 10)), true
}

func isIntegral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1<<53
}

// Int returns the numeric value of the id when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id ID) String() string {
	return string(id)
}

// MarshalJSON writes numeric ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := NewID(raw)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidID, string(data))
	}
	*id = parsed
	return nil
}

// ImagePathSegment is the unique tree path segment for an image.
func ImagePathSegment(imageID ID) string {
	return "img_" + string(imageID)
}
