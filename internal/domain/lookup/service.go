package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long loaded options are served from cache.
const DefaultTTL = 5 * time.Minute

// Service loads and caches assignee and category options per tenant.
type Service struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*Options
}

// NewService creates a new lookup service. A non-positive ttl uses DefaultTTL.
func NewService(source Source, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]*Options),
	}
}

// Options returns the tenant's options, loading them when the cache is cold
// or expired. Concurrent callers for the same tenant share one load; a caller
// that gives up returns its context error while the load carries on for the
// others.
func (s *Service) Options(ctx context.Context, tenantID string) (*Options, error) {
	if opts := s.cached(tenantID); opts != nil {
		return opts, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(tenantID, func() (interface{}, error) {
		if opts := s.cached(tenantID); opts != nil {
			return opts, nil
		}
		opts, err := s.load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[tenantID] = opts
		s.mu.Unlock()
		return opts, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("shared options load", "tenant_id", tenantID)
		}
		return res.Val.(*Options), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// List returns one enumeration.
func (s *Service) List(ctx context.Context, tenantID string, kind Kind) ([]Option, error) {
	if kind != KindAssignees && kind != KindCategories {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	opts, err := s.Options(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if kind == KindAssignees {
		return opts.Assignees, nil
	}
	return opts.Categories, nil
}

// ResolveAssignee returns the display name of an assignee id, or the id
// itself when it is unknown or the options cannot be loaded.
func (s *Service) ResolveAssignee(ctx context.Context, tenantID, id string) string {
	if id == "" {
		return ""
	}
	opts, err := s.Options(ctx, tenantID)
	if err != nil {
		s.logger.Warn("resolving assignee without options", "tenant_id", tenantID, "error", err)
		return id
	}
	for _, o := range opts.Assignees {
		if o.ID == id && o.Name != "" {
			return o.Name
		}
	}
	return id
}

// Invalidate drops the cached options of a tenant.
func (s *Service) Invalidate(tenantID string) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	s.mu.Unlock()
}

func (s *Service) cached(tenantID string) *Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts, ok := s.cache[tenantID]
	if !ok || s.now().Sub(opts.FetchedAt) >= s.ttl {
		return nil
	}
	return opts
}

func (s *Service) load(ctx context.Context) (*Options, error) {
	opts := &Options{}
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		assignees, err := s.source.FetchAssignees(egCtx)
		if err != nil {
			return fmt.Errorf("fetching assignees: %w", err)
		}
		opts.Assignees = assignees
		return nil
	})
	eg.Go(func() error {
		categories, err := s.source.FetchCategories(egCtx)
		if err != nil {
			return fmt.Errorf("fetching categories: %w", err)
		}
		opts.Categories = categories
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if opts.Assignees == nil {
		opts.Assignees = []Option{}
	}
	if opts.Categories == nil {
		opts.Categories = []Option{}
	}
	opts.FetchedAt = s.now()
	s.logger.Debug("loaded options", "assignees", len(opts.Assignees), "categories", len(opts.Categories))
	return opts, nil
}
