package tasking

// TaskAssignment assigns one area to one assignee.
type TaskAssignment struct {
	AreaID   ID     `json:"SCVU Image Area ID"`
	Assignee string `json:"Assignee"`
}

// TaskAssignments is the assign-tasks payload.
type TaskAssignments struct {
	Tasks []TaskAssignment `json:"Tasks"`
}

// PriorityUpdate is the new priority of one image.
type PriorityUpdate struct {
	Priority Priority `json:"Priority"`
}

// PriorityUpdates is the update-priority payload keyed by image id.
type PriorityUpdates map[ID]PriorityUpdate

// Submission holds both payloads derived from one selection, along with the
// row ids each payload covers.
type Submission struct {
	Assignments TaskAssignments `json:"assignments"`
	Priorities  PriorityUpdates `json:"priorities"`

	// AssignedRows are the area row ids behind Assignments.Tasks.
	AssignedRows []ID `json:"assigned_rows,omitempty"`
}

// IsEmpty reports whether there is nothing to send.
func (s Submission) IsEmpty() bool {
	return len(s.Assignments.Tasks) == 0 && len(s.Priorities) == 0
}

// Assemble builds both payloads for the selection.
func Assemble(rows []Row, selected []ID) Submission {
	tasks, assigned := buildTaskAssignments(rows, selected)
	return Submission{
		Assignments:  tasks,
		Priorities:   BuildPriorityUpdates(rows, selected),
		AssignedRows: assigned,
	}
}

// BuildTaskAssignments builds the assign-tasks payload for the selection.
//
// Selecting an image selects all of its areas. Areas without a concrete
// assignee (empty or Multiple) are left out.
func BuildTaskAssignments(rows []Row, selected []ID) TaskAssignments {
	tasks, _ := buildTaskAssignments(rows, selected)
	return tasks
}

func buildTaskAssignments(rows []Row, selected []ID) (TaskAssignments, []ID) {
	sel := selectionSet(selected)
	payload := TaskAssignments{Tasks: []TaskAssignment{}}
	var assigned []ID
	for _, r := range rows {
		if r.IsImage() {
			continue
		}
		if !sel[r.ID] && !sel[r.ParentID] {
			continue
		}
		if r.Assignee == "" || r.Assignee == Multiple {
			continue
		}
		areaID := r.ID
		if r.SecondaryID != "" {
			areaID = r.SecondaryID
		}
		payload.Tasks = append(payload.Tasks, TaskAssignment{AreaID: areaID, Assignee: r.Assignee})
		assigned = append(assigned, r.ID)
	}
	return payload, assigned
}

// BuildPriorityUpdates builds the update-priority payload for the selected
// image rows that carry a priority.
func BuildPriorityUpdates(rows []Row, selected []ID) PriorityUpdates {
	sel := selectionSet(selected)
	updates := PriorityUpdates{}
	for _, r := range rows {
		if !r.IsImage() || !sel[r.ID] || r.Priority == "" {
			continue
		}
		updates[r.ID] = PriorityUpdate{Priority: r.Priority}
	}
	return updates
}

func selectionSet(ids []ID) map[ID]bool {
	set := make(map[ID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
