package mocks

import (
	"context"
	"time"

	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/stretchr/testify/mock"
)

// WorkspaceRepository is a mock for workspace.WorkspaceRepository.
type WorkspaceRepository struct {
	mock.Mock
}

func (m *WorkspaceRepository) Create(ctx context.Context, tenantID string, ws *workspace.Workspace) error {
	args := m.Called(ctx, tenantID, ws)
	return args.Error(0)
}

func (m *WorkspaceRepository) Get(ctx context.Context, tenantID, id string) (*workspace.Workspace, error) {
	args := m.Called(ctx, tenantID, id)
	if ws, ok := args.Get(0).(*workspace.Workspace); ok {
		return ws, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkspaceRepository) Close(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *WorkspaceRepository) IssueFetch(ctx context.Context, tenantID, id string) (int64, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *WorkspaceRepository) ReplaceRecords(ctx context.Context, tenantID, id string, seq int64, store tasking.Store) error {
	args := m.Called(ctx, tenantID, id, seq, store)
	return args.Error(0)
}

func (m *WorkspaceRepository) LoadRecords(ctx context.Context, tenantID, id string) (tasking.Store, error) {
	args := m.Called(ctx, tenantID, id)
	if store, ok := args.Get(0).(tasking.Store); ok {
		return store, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkspaceRepository) UpdateRecords(ctx context.Context, tenantID, id string, seq int64, records []tasking.Record) error {
	args := m.Called(ctx, tenantID, id, seq, records)
	return args.Error(0)
}

// EditRepository is a mock for workspace.EditRepository.
type EditRepository struct {
	mock.Mock
}

func (m *EditRepository) Append(ctx context.Context, workspaceID string, edit tasking.Edit) (int64, error) {
	args := m.Called(ctx, workspaceID, edit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *EditRepository) List(ctx context.Context, workspaceID string) ([]workspace.PendingEdit, error) {
	args := m.Called(ctx, workspaceID)
	if list, ok := args.Get(0).([]workspace.PendingEdit); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EditRepository) Delete(ctx context.Context, workspaceID string, ids []int64) error {
	args := m.Called(ctx, workspaceID, ids)
	return args.Error(0)
}

func (m *EditRepository) Clear(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

// SelectionRepository is a mock for workspace.SelectionRepository.
type SelectionRepository struct {
	mock.Mock
}

func (m *SelectionRepository) Replace(ctx context.Context, workspaceID string, ids []tasking.ID) error {
	args := m.Called(ctx, workspaceID, ids)
	return args.Error(0)
}

func (m *SelectionRepository) List(ctx context.Context, workspaceID string) ([]tasking.ID, error) {
	args := m.Called(ctx, workspaceID)
	if list, ok := args.Get(0).([]tasking.ID); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// Backend is a mock for workspace.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) FetchRecords(ctx context.Context, view workspace.ViewKind) (tasking.Store, []tasking.Warning, error) {
	args := m.Called(ctx, view)
	var warnings []tasking.Warning
	if w, ok := args.Get(1).([]tasking.Warning); ok {
		warnings = w
	}
	if store, ok := args.Get(0).(tasking.Store); ok {
		return store, warnings, args.Error(2)
	}
	return nil, warnings, args.Error(2)
}

func (m *Backend) AssignTasks(ctx context.Context, payload tasking.TaskAssignments) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *Backend) UpdatePriorities(ctx context.Context, payload tasking.PriorityUpdates) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// OptionSource is a mock for lookup.Source.
type OptionSource struct {
	mock.Mock
}

func (m *OptionSource) FetchAssignees(ctx context.Context) ([]lookup.Option, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]lookup.Option); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OptionSource) FetchCategories(ctx context.Context) ([]lookup.Option, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]lookup.Option); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
