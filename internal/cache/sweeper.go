package cache

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often a Sweeper reclaims expired entries.
const DefaultSweepInterval = time.Minute

// Sweeper periodically evicts expired entries from a Cache.
// Eviction is otherwise only triggered by reads.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
}

// NewSweeper creates a Sweeper ticking on the cache's clock.
// A non-positive interval falls back to DefaultSweepInterval.
func NewSweeper(c *Cache, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{cache: c, interval: interval}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.cache.clock.NewTicker(s.interval)
	defer ticker.Stop()

	log := s.cache.log
	log.InfoContext(ctx, "cache sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("cache sweeper stopped")
			return nil
		case <-ticker.Chan():
			if n := s.cache.SweepExpired(); n > 0 {
				log.DebugContext(ctx, "cache sweep", "evicted", n, "remaining", s.cache.Stats().Total())
			}
		}
	}
}
