package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/rpggio/tasking/internal/repository"
)

// WorkspaceRepository implements workspace.WorkspaceRepository for SQLite
type WorkspaceRepository struct {
	db *DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// Create creates a new workspace
func (r *WorkspaceRepository) Create(ctx context.Context, tenantID string, ws *workspace.Workspace) error {
	query := `
		INSERT INTO workspaces (
			id, tenant_id, view, status, issued_seq, applied_seq,
			created_at, last_activity, last_synced_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		ws.ID,
		tenantID,
		ws.View,
		ws.Status,
		ws.IssuedSeq,
		ws.AppliedSeq,
		ws.CreatedAt,
		ws.LastActivity,
		ws.LastSyncedAt,
		ws.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	ws.TenantID = tenantID
	return nil
}

// Get retrieves a workspace by ID
func (r *WorkspaceRepository) Get(ctx context.Context, tenantID, id string) (*workspace.Workspace, error) {
	query := `
		SELECT
			id, tenant_id, view, status, issued_seq, applied_seq,
			created_at, last_activity, last_synced_at, closed_at
		FROM workspaces
		WHERE id = ? AND tenant_id = ?
	`

	var ws workspace.Workspace
	var lastSynced, closedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&ws.ID,
		&ws.TenantID,
		&ws.View,
		&ws.Status,
		&ws.IssuedSeq,
		&ws.AppliedSeq,
		&ws.CreatedAt,
		&ws.LastActivity,
		&lastSynced,
		&closedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	if lastSynced.Valid {
		ws.LastSyncedAt = &lastSynced.Time
	}
	if closedAt.Valid {
		ws.ClosedAt = &closedAt.Time
	}

	return &ws, nil
}

// Close marks a workspace as closed
func (r *WorkspaceRepository) Close(ctx context.Context, tenantID, id string) error {
	now := time.Now()
	query := `
		UPDATE workspaces
		SET status = ?, closed_at = ?, last_activity = ?
		WHERE id = ? AND tenant_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, workspace.StatusClosed, now, now, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to close workspace: %w", err)
	}

	return requireAffected(result)
}

// IssueFetch atomically increments the issued fetch sequence and returns the new value
func (r *WorkspaceRepository) IssueFetch(ctx context.Context, tenantID, id string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE workspaces
		SET issued_seq = issued_seq + 1, last_activity = ?
		WHERE id = ? AND tenant_id = ?
	`, time.Now(), id, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to issue fetch: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return 0, err
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT issued_seq FROM workspaces WHERE id = ? AND tenant_id = ?`,
		id, tenantID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to read fetch sequence: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return seq, nil
}

// ReplaceRecords swaps in the record store of fetch seq.
// It returns repository.ErrConflict when a newer fetch was issued after seq.
func (r *WorkspaceRepository) ReplaceRecords(ctx context.Context, tenantID, id string, seq int64, store tasking.Store) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE workspaces
		SET applied_seq = ?, last_synced_at = ?, last_activity = ?
		WHERE id = ? AND tenant_id = ? AND issued_seq = ?
	`, seq, now, now, id, tenantID, seq)
	if err != nil {
		return fmt.Errorf("failed to apply fetch: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM workspaces WHERE id = ? AND tenant_id = ?`,
			id, tenantID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check workspace: %w", err)
		}
		if exists == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workspace_records WHERE workspace_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO workspace_records (workspace_id, record_id, kind, data)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for recordID, rec := range store {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", recordID, err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(recordID), rec.Kind, string(data)); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", recordID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadRecords returns the stored record store of a workspace
func (r *WorkspaceRepository) LoadRecords(ctx context.Context, tenantID, id string) (tasking.Store, error) {
	query := `
		SELECT wr.data
		FROM workspace_records wr
		JOIN workspaces w ON w.id = wr.workspace_id
		WHERE wr.workspace_id = ? AND w.tenant_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	store := tasking.Store{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		store[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return store, nil
}

// UpdateRecords overwrites stored records with confirmed values.
// The records must come from fetch seq; it returns repository.ErrConflict
// when a different fetch has been applied since.
func (r *WorkspaceRepository) UpdateRecords(ctx context.Context, tenantID, id string, seq int64, records []tasking.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var applied int64
	err = tx.QueryRowContext(ctx,
		`SELECT applied_seq FROM workspaces WHERE id = ? AND tenant_id = ?`,
		id, tenantID).Scan(&applied)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check workspace: %w", err)
	}
	if applied != seq {
		return repository.ErrConflict
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE workspace_records SET data = ?
			WHERE workspace_id = ? AND record_id = ?
		`, string(data), id, string(rec.ID))
		if err != nil {
			return fmt.Errorf("failed to update record %s: %w", rec.ID, err)
		}
		if err := requireAffected(result); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE workspaces SET last_activity = ? WHERE id = ?`, time.Now(), id); err != nil {
		return fmt.Errorf("failed to touch workspace: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func decodeRecord(data string) (tasking.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var rec tasking.Record
	if err := dec.Decode(&rec); err != nil {
		return tasking.Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
