package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
)

var (
	optionIDKeys   = []string{"id", "value", "username", "key"}
	optionNameKeys = []string{"name", "label", "displayname", "fullname"}
)

// DecodeOptions parses an enumeration payload.
//
// The backend sends either a list of strings, a list of objects with id and
// name fields, or an object mapping ids to names.
func DecodeOptions(data []byte) ([]lookup.Option, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}

	switch v := raw.(type) {
	case nil:
		return []lookup.Option{}, nil
	case []any:
		opts := make([]lookup.Option, 0, len(v))
		for i, item := range v {
			opt, ok := optionFromValue(item)
			if !ok {
				return nil, fmt.Errorf("decode options: entry %d has no id", i)
			}
			opts = append(opts, opt)
		}
		return opts, nil
	case map[string]any:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		opts := make([]lookup.Option, 0, len(v))
		for _, id := range ids {
			opts = append(opts, lookup.Option{ID: id, Name: scalarText(v[id])})
		}
		return opts, nil
	default:
		return nil, fmt.Errorf("decode options: unexpected %T payload", raw)
	}
}

func optionFromValue(item any) (lookup.Option, bool) {
	switch t := item.(type) {
	case string, json.Number:
		text := scalarText(t)
		return lookup.Option{ID: text, Name: text}, text != ""
	case map[string]any:
		fields := make(map[string]any, len(t))
		for k, v := range t {
			fields[foldKey(k)] = v
		}
		opt := lookup.Option{
			ID:   firstText(fields, optionIDKeys),
			Name: firstText(fields, optionNameKeys),
		}
		if opt.ID == "" {
			opt.ID = opt.Name
		}
		if opt.Name == "" {
			opt.Name = opt.ID
		}
		return opt, opt.ID != ""
	}
	return lookup.Option{}, false
}

func firstText(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			if text := scalarText(v); text != "" {
				return text
			}
		}
	}
	return ""
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if id, ok := tasking.NewID(t); ok {
			return id.String()
		}
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func foldKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
