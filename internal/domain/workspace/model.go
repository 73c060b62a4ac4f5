package workspace

import (
	"time"

	"github.com/rpggio/tasking/internal/domain/tasking"
)

// ViewKind identifies which backend view a workspace mirrors.
type ViewKind string

const (
	ViewTaskingManager  ViewKind = "tasking_manager"
	ViewTaskingSummary  ViewKind = "tasking_summary"
	ViewCompletedImages ViewKind = "completed_images"
)

// Valid reports whether v is a known view.
func (v ViewKind) Valid() bool {
	switch v {
	case ViewTaskingManager, ViewTaskingSummary, ViewCompletedImages:
		return true
	}
	return false
}

// Status represents the lifecycle status of a workspace
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Workspace is one open view instance with its working copy of the record store.
//
// IssuedSeq is the sequence number of the most recent fetch started;
// AppliedSeq is the sequence number of the fetch whose records are stored.
type Workspace struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	View         ViewKind   `json:"view"`
	Status       Status     `json:"status"`
	IssuedSeq    int64      `json:"issued_seq"`
	AppliedSeq   int64      `json:"applied_seq"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// PendingEdit is a journaled local edit not yet confirmed by the backend.
type PendingEdit struct {
	ID          int64        `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	Edit        tasking.Edit `json:"edit"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Snapshot is the current working state of a workspace.
type Snapshot struct {
	WorkspaceID string            `json:"workspace_id"`
	View        ViewKind          `json:"view"`
	FetchSeq    int64             `json:"fetch_seq"`
	Rows        []tasking.Row     `json:"rows"`
	Selection   []tasking.ID      `json:"selection"`
	Dirty       []tasking.ID      `json:"dirty"`
	Warnings    []tasking.Warning `json:"warnings,omitempty"`
}

// ApplyResult describes what an apply sent and what the workspace looks like after.
type ApplyResult struct {
	Submission      tasking.Submission `json:"submission"`
	NoOp            bool               `json:"no_op"`
	AssignmentsSent bool               `json:"assignments_sent"`
	PrioritiesSent  bool               `json:"priorities_sent"`
	Snapshot        *Snapshot          `json:"snapshot"`
}
