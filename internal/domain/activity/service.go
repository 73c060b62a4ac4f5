package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service reads and maintains the activity log. Entries are written by the
// workspace service through the same Repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// GetRecentActivity lists activity entries newest first. The limit defaults
// to 50 and is capped at 500.
func (s *Service) GetRecentActivity(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.Offset < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", ErrInvalidInput)
	}
	if opts.ActivityType != nil && !opts.ActivityType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, *opts.ActivityType)
	}
	switch {
	case opts.Limit == 0:
		opts.Limit = defaultListLimit
	case opts.Limit > maxListLimit:
		opts.Limit = maxListLimit
	}

	entries, err := s.repo.List(ctx, tenantID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than retention. A non-positive retention keeps
// everything.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention)
	n, err := s.repo.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning activity: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned activity log", "entries", n, "before", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
