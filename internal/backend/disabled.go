package backend

import (
	"context"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
)

// Disabled stands in for the backend when no URL is configured. Every call
// fails with ErrNotConfigured; offline tools keep working.
type Disabled struct{}

func (Disabled) FetchRecords(context.Context, workspace.ViewKind) (tasking.Store, []tasking.Warning, error) {
	return nil, nil, ErrNotConfigured
}

func (Disabled) AssignTasks(context.Context, tasking.TaskAssignments) error {
	return ErrNotConfigured
}

func (Disabled) UpdatePriorities(context.Context, tasking.PriorityUpdates) error {
	return ErrNotConfigured
}
