// Package service implements business logic on top of ports. Reads go
// through the shared cache; writes invalidate what they made stale once the
// store has accepted them.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	tallyotel "github.com/Strob0t/Tally/internal/adapter/otel"
	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/port/eventbus"
)

// CacheLayer couples the process-wide cache with the invalidation bus.
// Every service shares one CacheLayer.
type CacheLayer struct {
	cache  *cache.Cache
	bus    eventbus.Bus
	origin string
	flight singleflight.Group
}

// NewCacheLayer creates a CacheLayer. A nil bus keeps invalidations local.
func NewCacheLayer(c *cache.Cache, bus eventbus.Bus) *CacheLayer {
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &CacheLayer{cache: c, bus: bus, origin: uuid.NewString()}
}

// Cache returns the underlying cache.
func (l *CacheLayer) Cache() *cache.Cache {
	return l.cache
}

// Origin identifies this process on the invalidation bus.
func (l *CacheLayer) Origin() string {
	return l.origin
}

// readThrough returns the value cached under key in cat. On a miss it calls
// load once per key, however many callers are waiting, and caches the result
// unless an invalidation happened while load was running. Errors are never
// cached.
//
// The shared load runs detached from any one caller's cancellation, so a
// caller that gives up only stops waiting; the others still get the result.
func readThrough[T any](ctx context.Context, l *CacheLayer, cat cache.Category, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := cache.Get[T](l.cache, cat, key); ok {
		return v, nil
	}

	ch := l.flight.DoChan(cat.String()+"|"+key, func() (any, error) {
		gen := l.cache.Generation()

		lctx, span := tallyotel.StartCacheLoadSpan(context.WithoutCancel(ctx), cat.String(), key)
		val, err := load(lctx)
		tallyotel.EndSpan(span, err)
		if err != nil {
			return nil, err
		}

		if !l.cache.PutIfUnchanged(gen, cat, key, val) {
			slog.DebugContext(lctx, "cache fill skipped after concurrent invalidation", "category", cat, "key", key)
		}
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// stale collects the cache entries one write made stale.
type stale struct {
	inv eventbus.Invalidation
}

func (s *stale) key(cat cache.Category, key string) *stale {
	s.inv.Keys = append(s.inv.Keys, eventbus.Target{Category: cat, Key: key})
	return s
}

func (s *stale) prefix(cat cache.Category, prefix string) *stale {
	s.inv.Prefixes = append(s.inv.Prefixes, eventbus.Target{Category: cat, Key: prefix})
	return s
}

func (s *stale) category(cat cache.Category) *stale {
	return s.prefix(cat, "")
}

func (s *stale) all() *stale {
	s.inv.All = true
	return s
}

// commit drops the stale entries from the local cache and tells peers to do
// the same. Call it only after the store reported success. A failed publish
// is logged; peers then converge when their entries expire.
func (l *CacheLayer) commit(ctx context.Context, s *stale) {
	if s.inv.Empty() {
		return
	}
	s.inv.Origin = l.origin
	l.apply(ctx, s.inv)

	if err := l.bus.Publish(ctx, s.inv); err != nil {
		slog.WarnContext(ctx, "invalidation publish failed", "error", err)
	}
}

func (l *CacheLayer) apply(ctx context.Context, inv eventbus.Invalidation) {
	_, span := tallyotel.StartInvalidationSpan(ctx, inv.Origin, len(inv.Keys), len(inv.Prefixes), inv.All)
	defer span.End()

	if inv.All {
		l.cache.InvalidateAll()
		return
	}
	for _, t := range inv.Keys {
		l.cache.Invalidate(t.Category, t.Key)
	}
	for _, t := range inv.Prefixes {
		if t.Key == "" {
			l.cache.InvalidateCategory(t.Category)
			continue
		}
		l.cache.InvalidatePrefix(t.Category, t.Key)
	}
}

// HandleRemote applies an invalidation received from a peer. Messages this
// process published itself are skipped, they were applied on commit.
func (l *CacheLayer) HandleRemote(ctx context.Context, inv eventbus.Invalidation) error {
	if inv.Origin == l.origin {
		return nil
	}
	slog.DebugContext(ctx, "applying remote invalidation",
		"origin", inv.Origin, "keys", len(inv.Keys), "prefixes", len(inv.Prefixes), "all", inv.All)
	l.apply(ctx, inv)
	return nil
}

// Listen subscribes to peer invalidations until ctx is cancelled.
func (l *CacheLayer) Listen(ctx context.Context) error {
	cancel, err := l.bus.Subscribe(ctx, l.HandleRemote)
	if err != nil {
		return err
	}
	defer cancel()

	slog.Info("invalidation listener started", "origin", l.origin)
	<-ctx.Done()
	slog.Info("invalidation listener stopped")
	return nil
}
