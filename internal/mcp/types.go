package mcp

import (
	"encoding/json"
	"time"

	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
)

// ToolDefinition describes a callable tool
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type BuildRowsParams struct {
	Records json.RawMessage `json:"records"`
}

type OpenWorkspaceParams struct {
	View workspace.ViewKind `json:"view"`
}

type WorkspaceParams struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
}

type EditRowParams struct {
	WorkspaceID string        `json:"workspace_id,omitempty"`
	RowID       tasking.ID    `json:"row_id"`
	Field       tasking.Field `json:"field"`
	Value       string        `json:"value"`
}

type SelectRowsParams struct {
	WorkspaceID string       `json:"workspace_id,omitempty"`
	RowIDs      []tasking.ID `json:"row_ids"`
}

type ListOptionsParams struct {
	Kind string `json:"kind,omitempty"`
}

type GetRecentActivityParams struct {
	WorkspaceID string     `json:"workspace_id,omitempty"`
	RowID       *string    `json:"row_id,omitempty"`
	Type        string     `json:"type,omitempty"`
	Since       *time.Time `json:"since,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

type BuildRowsResponse struct {
	Rows     []tasking.Row     `json:"rows"`
	Warnings []tasking.Warning `json:"warnings,omitempty"`
}

// SnapshotResponse is a workspace snapshot plus display names for the
// assignees it mentions.
type SnapshotResponse struct {
	*workspace.Snapshot
	AssigneeNames map[string]string `json:"assignee_names,omitempty"`
}

type ApplyResponse struct {
	Submission      tasking.Submission `json:"submission"`
	NoOp            bool               `json:"no_op"`
	AssignmentsSent bool               `json:"assignments_sent"`
	PrioritiesSent  bool               `json:"priorities_sent"`
	Workspace       SnapshotResponse   `json:"workspace"`
}

type ActivityEntryResponse struct {
	Timestamp   time.Time             `json:"timestamp"`
	Type        activity.ActivityType `json:"type"`
	WorkspaceID string                `json:"workspace_id"`
	RowID       *string               `json:"row_id,omitempty"`
	Summary     string                `json:"summary"`
	Details     json.RawMessage       `json:"details,omitempty"`
	FetchSeq    int64                 `json:"fetch_seq"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
