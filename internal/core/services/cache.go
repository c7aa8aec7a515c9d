package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/core/ports/driving"
	"github.com/custodia-labs/precis/internal/logger"
)

// Ensure CacheService implements the interface.
var _ driving.CacheService = (*CacheService)(nil)

// ErrCacheDisabled is returned by cache commands when result caching is off.
var ErrCacheDisabled = errors.New("result cache is disabled")

// CacheService exposes result cache housekeeping to the CLI and MCP server.
type CacheService struct {
	maintainer driven.CacheMaintainer
}

// NewCacheService creates a new cache service. maintainer is nil when
// caching is disabled.
func NewCacheService(maintainer driven.CacheMaintainer) *CacheService {
	return &CacheService{maintainer: maintainer}
}

// Stats reports cache contents.
func (s *CacheService) Stats(ctx context.Context) (domain.CacheStats, error) {
	if s.maintainer == nil {
		return domain.CacheStats{}, ErrCacheDisabled
	}
	return s.maintainer.Stats(ctx)
}

// Evict applies TTL and size bounds now.
func (s *CacheService) Evict(ctx context.Context) (int, error) {
	if s.maintainer == nil {
		return 0, ErrCacheDisabled
	}
	removed, err := s.maintainer.Evict(ctx)
	if err != nil {
		return removed, err
	}
	logger.Info("evicted %d cache entries", removed)
	return removed, nil
}

// Purge removes every cached summary.
func (s *CacheService) Purge(ctx context.Context) error {
	if s.maintainer == nil {
		return ErrCacheDisabled
	}
	return s.maintainer.Purge(ctx)
}
