package activity

import (
	"context"
	"time"
)

// Repository persists the activity log. Entries are scoped by tenant except
// for Prune, which applies retention across all tenants.
type Repository interface {
	Log(ctx context.Context, tenantID string, entry *ActivityEntry) error
	List(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}
