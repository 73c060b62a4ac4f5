package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/rpggio/tasking/internal/repository"
)

// EditRepository implements workspace.EditRepository for SQLite
type EditRepository struct {
	db *DB
}

// NewEditRepository creates a new EditRepository
func NewEditRepository(db *DB) *EditRepository {
	return &EditRepository{db: db}
}

// Append journals an edit and returns its id
func (r *EditRepository) Append(ctx context.Context, workspaceID string, edit tasking.Edit) (int64, error) {
	query := `
		INSERT INTO pending_edits (workspace_id, row_id, field, value, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		workspaceID,
		string(edit.RowID),
		edit.Field,
		edit.Value,
		time.Now(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, repository.ErrForeignKeyViolation
		}
		return 0, fmt.Errorf("failed to append edit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get edit id: %w", err)
	}
	return id, nil
}

// List returns pending edits in the order they were made
func (r *EditRepository) List(ctx context.Context, workspaceID string) ([]workspace.PendingEdit, error) {
	query := `
		SELECT id, workspace_id, row_id, field, value, created_at
		FROM pending_edits
		WHERE workspace_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edits: %w", err)
	}
	defer rows.Close()

	var edits []workspace.PendingEdit
	for rows.Next() {
		var e workspace.PendingEdit
		var rowID string
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &rowID, &e.Edit.Field, &e.Edit.Value, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edit: %w", err)
		}
		e.Edit.RowID = tasking.ID(rowID)
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edits: %w", err)
	}

	return edits, nil
}

// Delete removes the given edits
func (r *EditRepository) Delete(ctx context.Context, workspaceID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`DELETE FROM pending_edits WHERE workspace_id = ? AND id IN (%s)`,
		placeholders(len(ids)))
	args := []interface{}{workspaceID}
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete edits: %w", err)
	}
	return nil
}

// Clear removes every pending edit of a workspace
func (r *EditRepository) Clear(ctx context.Context, workspaceID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_edits WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("failed to clear edits: %w", err)
	}
	return nil
}
