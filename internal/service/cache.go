package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/Tally/internal/cache"
)

// CacheService exposes cache maintenance to operators.
type CacheService struct {
	cache *CacheLayer
}

// NewCacheService creates a new CacheService.
func NewCacheService(layer *CacheLayer) *CacheService {
	return &CacheService{cache: layer}
}

// Stats returns the number of stored entries per category. Entries that
// expired but were not read or swept since are still counted.
func (s *CacheService) Stats() cache.Stats {
	return s.cache.cache.Stats()
}

// Sweep evicts every expired entry now and returns how many were evicted.
func (s *CacheService) Sweep(ctx context.Context) int {
	n := s.cache.cache.SweepExpired()
	slog.InfoContext(ctx, "cache swept", "evicted", n)
	return n
}

// Clear empties the cache of this process and of every peer.
func (s *CacheService) Clear(ctx context.Context) {
	s.cache.commit(ctx, new(stale).all())
}
