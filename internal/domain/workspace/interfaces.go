package workspace

import (
	"context"

	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/tasking"
)

// WorkspaceRepository persists workspaces and their record stores.
type WorkspaceRepository interface {
	Create(ctx context.Context, tenantID string, ws *Workspace) error
	Get(ctx context.Context, tenantID, id string) (*Workspace, error)
	Close(ctx context.Context, tenantID, id string) error
	IssueFetch(ctx context.Context, tenantID, id string) (int64, error)
	ReplaceRecords(ctx context.Context, tenantID, id string, seq int64, store tasking.Store) error
	LoadRecords(ctx context.Context, tenantID, id string) (tasking.Store, error)
	// UpdateRecords fails with repository.ErrConflict once a fetch other
	// than seq has been applied.
	UpdateRecords(ctx context.Context, tenantID, id string, seq int64, records []tasking.Record) error
}

// EditRepository persists the edit journal.
type EditRepository interface {
	Append(ctx context.Context, workspaceID string, edit tasking.Edit) (int64, error)
	List(ctx context.Context, workspaceID string) ([]PendingEdit, error)
	Delete(ctx context.Context, workspaceID string, ids []int64) error
	Clear(ctx context.Context, workspaceID string) error
}

// SelectionRepository persists selected row ids.
type SelectionRepository interface {
	Replace(ctx context.Context, workspaceID string, ids []tasking.ID) error
	List(ctx context.Context, workspaceID string) ([]tasking.ID, error)
}

// ActivityRepository logs workspace activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}

// Backend is the external tasking API.
type Backend interface {
	FetchRecords(ctx context.Context, view ViewKind) (tasking.Store, []tasking.Warning, error)
	AssignTasks(ctx context.Context, payload tasking.TaskAssignments) error
	UpdatePriorities(ctx context.Context, payload tasking.PriorityUpdates) error
}
