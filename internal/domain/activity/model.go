package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeWorkspaceOpened   ActivityType = "workspace_opened"
	TypeWorkspaceClosed   ActivityType = "workspace_closed"
	TypeRecordsFetched    ActivityType = "records_fetched"
	TypeRecordDropped     ActivityType = "record_dropped"
	TypeFetchDiscarded    ActivityType = "fetch_discarded"
	TypeRowEdited         ActivityType = "row_edited"
	TypeEditsDiscarded    ActivityType = "edits_discarded"
	TypeSubmissionApplied ActivityType = "submission_applied"
	TypeSubmissionFailed  ActivityType = "submission_failed"
)

// Types lists every activity type the workspace service logs.
var Types = []ActivityType{
	TypeWorkspaceOpened,
	TypeWorkspaceClosed,
	TypeRecordsFetched,
	TypeRecordDropped,
	TypeFetchDiscarded,
	TypeRowEdited,
	TypeEditsDiscarded,
	TypeSubmissionApplied,
	TypeSubmissionFailed,
}

// Valid reports whether t is one of Types.
func (t ActivityType) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	WorkspaceID  string       `json:"workspace_id"`
	RowID        *string      `json:"row_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
	FetchSeq     int64        `json:"fetch_seq"`
}
