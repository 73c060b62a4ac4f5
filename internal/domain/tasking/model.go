package tasking

// Kind discriminates the two record shapes the backend sends.
type Kind string

const (
	KindImage Kind = "image"
	KindArea  Kind = "area"
)

// Priority is the review priority of an image.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Multiple is shown on an image row whose areas disagree on a value.
// It is never a real value and is never submitted.
const Multiple = "Multiple"

// Field names a row attribute that can be edited.
type Field string

const (
	FieldAssignee Field = "assignee"
	FieldPriority Field = "priority"
)

// Record is one decoded entry of the record store.
//
// Name is the image file name for images and the area name for areas.
// ParentID and SecondaryID are only set on areas.
type Record struct {
	ID          ID             `json:"id"`
	Kind        Kind           `json:"kind"`
	Name        string         `json:"name"`
	ParentID    ID             `json:"parent_id,omitempty"`
	SecondaryID ID             `json:"secondary_id,omitempty"`
	Assignee    string         `json:"assignee,omitempty"`
	Priority    Priority       `json:"priority,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// IsImage reports whether the record is an image record.
func (r Record) IsImage() bool { return r.Kind == KindImage }

// Store is the decoded record store keyed by canonical id.
type Store map[ID]Record

// Row is the tree representation of a record handed to grid components.
type Row struct {
	ID          ID             `json:"id"`
	Kind        Kind           `json:"kind"`
	GroupName   []string       `json:"groupName"`
	TreePath    []string       `json:"treePath"`
	ParentID    ID             `json:"parentId,omitempty"`
	SecondaryID ID             `json:"secondaryId,omitempty"`
	Assignee    string         `json:"assignee"`
	Priority    Priority       `json:"priority,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Dirty       bool           `json:"dirty,omitempty"`
}

// IsImage reports whether the row is a top-level image row.
func (r Row) IsImage() bool { return len(r.GroupName) == 1 }

// Edit is a single user change to a row.
type Edit struct {
	RowID ID     `json:"row_id"`
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Warning describes a record that was skipped while decoding or building rows.
type Warning struct {
	RecordID ID     `json:"record_id,omitempty"`
	Key      string `json:"key,omitempty"`
	Reason   string `json:"reason"`
}

func cloneRow(r Row) Row {
	out := r
	out.GroupName = append([]string(nil), r.GroupName...)
	out.TreePath = append([]string(nil), r.TreePath...)
	if r.Attributes != nil {
		out.Attributes = make(map[string]any, len(r.Attributes))
		for k, v := range r.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out
}
