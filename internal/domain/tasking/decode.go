package tasking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Backend field spellings, compared after canonicalKey.
var (
	imageNameKeys = []string{"imagefilename", "imagename", "filename"}
	areaNameKeys  = []string{"areaname"}
	parentKeys    = []string{"parentid", "parent"}
	assigneeKeys  = []string{"assignee", "assignedto"}
	priorityKeys  = []string{"priority"}
	secondaryKeys = []string{"scvuimageareaid", "imageareaid"}
)

var knownKeys = func() map[string]bool {
	known := map[string]bool{}
	for _, group := range [][]string{imageNameKeys, areaNameKeys, parentKeys, assigneeKeys, priorityKeys, secondaryKeys} {
		for _, k := range group {
			known[k] = true
		}
	}
	return known
}()

// canonicalKey folds "Image File Name", "imageFileName" and "image_file_name"
// onto the same key.
func canonicalKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

type fields map[string]any

func indexFields(raw map[string]any) fields {
	idx := make(fields, len(raw))
	for k, v := range raw {
		ck := canonicalKey(k)
		if _, seen := idx[ck]; seen && v == nil {
			continue
		}
		idx[ck] = v
	}
	return idx
}

func (f fields) lookup(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (f fields) text(keys []string) string {
	v, ok := f.lookup(keys)
	if !ok {
		return ""
	}
	return textValue(v)
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number, float64, float32, int, int64:
		if id, ok := NewID(t); ok {
			return string(id)
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

// DecodeStore parses a backend record store payload.
//
// The payload must be a JSON object of objects. Entries that do not decode
// into an image or an area are skipped and reported as warnings.
func DecodeStore(data []byte) (Store, []Warning, error) {
	var top map[string]json.RawMessage
	if err := newDecoder(data).Decode(&top); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if top == nil {
		return Store{}, nil, nil
	}

	raw := make(map[string]map[string]any, len(top))
	var warnings []Warning
	for key, value := range top {
		var obj map[string]any
		if err := newDecoder(value).Decode(&obj); err != nil || obj == nil {
			warnings = append(warnings, Warning{Key: key, Reason: "record is not an object"})
			continue
		}
		raw[key] = obj
	}

	store, parseWarnings := ParseStore(raw)
	return store, append(warnings, parseWarnings...), nil
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

// ParseStore classifies raw backend records into images and areas.
func ParseStore(raw map[string]map[string]any) (Store, []Warning) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	store := make(Store, len(raw))
	var warnings []Warning
	for _, key := range keys {
		id, ok := NewID(key)
		if !ok {
			warnings = append(warnings, Warning{Key: key, Reason: "invalid record id"})
			continue
		}
		if _, dup := store[id]; dup {
			warnings = append(warnings, Warning{RecordID: id, Key: key, Reason: "duplicate record id"})
			continue
		}
		rec, err := ParseRecord(id, raw[key])
		if err != nil {
			warnings = append(warnings, Warning{RecordID: id, Key: key, Reason: err.Error()})
			continue
		}
		store[id] = rec
	}
	return store, warnings
}

// ParseRecord classifies a single raw record.
//
// A record with a display name is an image. A record without one but with a
// parent reference is an area. Everything else is rejected.
func ParseRecord(id ID, raw map[string]any) (Record, error) {
	f := indexFields(raw)
	rec := Record{
		ID:         id,
		Assignee:   f.text(assigneeKeys),
		Attributes: extraAttributes(raw),
	}

	if name := f.text(imageNameKeys); name != "" {
		rec.Kind = KindImage
		rec.Name = name
		rec.Priority = Priority(f.text(priorityKeys))
		return rec, nil
	}

	parentRaw, ok := f.lookup(parentKeys)
	if !ok {
		return Record{}, fmt.Errorf("record is neither an image nor an area")
	}
	parentID, ok := NewID(parentRaw)
	if !ok {
		return Record{}, fmt.Errorf("area has an invalid parent reference %v", parentRaw)
	}

	rec.Kind = KindArea
	rec.ParentID = parentID
	rec.Name = f.text(areaNameKeys)
	if rec.Name == "" {
		rec.Name = string(id)
	}
	if secondary, ok := f.lookup(secondaryKeys); ok {
		if sid, ok := NewID(secondary); ok {
			rec.SecondaryID = sid
		}
	}
	return rec, nil
}

func extraAttributes(raw map[string]any) map[string]any {
	var extra map[string]any
	for k, v := range raw {
		if knownKeys[canonicalKey(k)] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}
