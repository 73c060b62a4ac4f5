package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/repository"
)

// SelectionRepository implements workspace.SelectionRepository for SQLite
type SelectionRepository struct {
	db *DB
}

// NewSelectionRepository creates a new SelectionRepository
func NewSelectionRepository(db *DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Replace overwrites the selection of a workspace
func (r *SelectionRepository) Replace(ctx context.Context, workspaceID string, ids []tasking.ID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}

	for pos, id := range ids {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO selections (workspace_id, row_id, position) VALUES (?, ?, ?)`,
			workspaceID, string(id), pos)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to save selection: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns the selected row ids in selection order
func (r *SelectionRepository) List(ctx context.Context, workspaceID string) ([]tasking.ID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT row_id FROM selections WHERE workspace_id = ? ORDER BY position ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list selection: %w", err)
	}
	defer rows.Close()

	ids := []tasking.ID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		ids = append(ids, tasking.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selection: %w", err)
	}

	return ids, nil
}
