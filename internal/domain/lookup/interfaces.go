package lookup

import "context"

// Source fetches enumerations from the tasking backend.
type Source interface {
	FetchAssignees(ctx context.Context) ([]Option, error)
	FetchCategories(ctx context.Context) ([]Option, error)
}
