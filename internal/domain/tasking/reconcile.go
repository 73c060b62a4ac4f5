package tasking

import "fmt"

// ApplyEdit returns a copy of rows with edit applied.
//
// An assignee set on an image row is written to every area of that image.
// An assignee set on an area row updates only that row, after which the
// image's displayed assignee is recomputed. Priority only exists on image
// rows and never cascades. Any other field is stored as a plain attribute of
// the edited row. Rows whose values changed are marked dirty.
func ApplyEdit(rows []Row, edit Edit) ([]Row, error) {
	idx := Index(rows)
	pos, ok := idx[edit.RowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, edit.RowID)
	}
	if edit.Field == "" {
		return nil, fmt.Errorf("%w: empty field", ErrFieldNotEditable)
	}

	out := cloneRows(rows)
	target := &out[pos]

	switch edit.Field {
	case FieldAssignee:
		if edit.Value == Multiple {
			return nil, ErrSentinelValue
		}
		target.Assignee = edit.Value
		target.Dirty = true
		if target.IsImage() {
			for _, c := range Children(out, target.ID) {
				out[c].Assignee = edit.Value
				out[c].Dirty = true
			}
			return out, nil
		}
		if parent, ok := idx[target.ParentID]; ok {
			out[parent].Assignee = AggregateAssignee(out, target.ParentID)
		}
		return out, nil

	case FieldPriority:
		if !target.IsImage() {
			return nil, fmt.Errorf("%w: priority on area %s", ErrFieldNotEditable, target.ID)
		}
		p := Priority(edit.Value)
		if p != "" && !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, edit.Value)
		}
		target.Priority = p
		target.Dirty = true
		return out, nil

	default:
		if edit.Value == Multiple {
			return nil, ErrSentinelValue
		}
		if target.Attributes == nil {
			target.Attributes = map[string]any{}
		}
		target.Attributes[string(edit.Field)] = edit.Value
		target.Dirty = true
		return out, nil
	}
}

// AggregateAssignee computes the assignee an image row displays.
//
// If every area of the image has the same assignee, that value is returned;
// if they differ the result is Multiple. An image without areas keeps its own
// assignee.
func AggregateAssignee(rows []Row, imageID ID) string {
	children := Children(rows, imageID)
	if len(children) == 0 {
		for _, r := range rows {
			if r.ID == imageID {
				return r.Assignee
			}
		}
		return ""
	}
	return aggregate(rows, children)
}

func aggregate(rows []Row, children []int) string {
	first := rows[children[0]].Assignee
	for _, c := range children[1:] {
		if rows[c].Assignee != first {
			return Multiple
		}
	}
	return first
}

// RefreshAggregates returns a copy of rows with every image's displayed
// assignee recomputed from its areas.
func RefreshAggregates(rows []Row) []Row {
	out := cloneRows(rows)
	children := make(map[ID][]int)
	for i, r := range out {
		if !r.IsImage() {
			children[r.ParentID] = append(children[r.ParentID], i)
		}
	}
	for i := range out {
		if kids := children[out[i].ID]; out[i].IsImage() && len(kids) > 0 {
			out[i].Assignee = aggregate(out, kids)
		}
	}
	return out
}
