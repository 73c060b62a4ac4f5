package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/tasking/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry
func (r *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO activity_log (
			tenant_id, workspace_id, row_id,
			activity_type, summary, details, created_at, fetch_seq
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		tenantID,
		entry.WorkspaceID,
		entry.RowID,
		entry.ActivityType,
		entry.Summary,
		nullIfEmpty(entry.Details),
		createdAt,
		entry.FetchSeq,
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	entry.TenantID = tenantID
	entry.CreatedAt = createdAt

	return nil
}

// List returns activity entries matching the given filters, newest first
func (r *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	query := `
		SELECT
			id, tenant_id, workspace_id, row_id,
			activity_type, summary, details, created_at, fetch_seq
		FROM activity_log
		WHERE tenant_id = ?
	`

	args := []interface{}{tenantID}
	conditions := []string{}

	if opts.WorkspaceID != "" {
		conditions = append(conditions, "workspace_id = ?")
		args = append(args, opts.WorkspaceID)
	}
	if opts.RowID != nil {
		conditions = append(conditions, "row_id = ?")
		args = append(args, *opts.RowID)
	}
	if opts.ActivityType != nil {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, *opts.ActivityType)
	}
	if opts.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *opts.Since)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []activity.ActivityEntry
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}

func scanActivity(rows *sql.Rows) (activity.ActivityEntry, error) {
	var (
		entry   activity.ActivityEntry
		rowID   sql.NullString
		details sql.NullString
	)
	if err := rows.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.WorkspaceID,
		&rowID,
		&entry.ActivityType,
		&entry.Summary,
		&details,
		&entry.CreatedAt,
		&entry.FetchSeq,
	); err != nil {
		return activity.ActivityEntry{}, fmt.Errorf("failed to scan activity entry: %w", err)
	}
	if rowID.Valid {
		entry.RowID = &rowID.String
	}
	entry.Details = details.String
	return entry, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Prune deletes entries created before the cutoff and reports how many went.
func (r *ActivityRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activity_log WHERE created_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
