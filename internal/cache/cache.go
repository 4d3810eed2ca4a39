// Package cache implements the process-wide expiring cache that sits in front
// of the data-access services.
//
// Values are partitioned into three categories (data, validation and
// calculation results), each with an independent TTL. Expiry is lazy: a read
// that finds a stale, missing or mistyped entry evicts it and reports a miss.
// SweepExpired reclaims memory for entries nobody reads anymore.
//
// The cache never returns errors. Every failure degrades to a miss and the
// caller recomputes.
package cache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Observer receives cache events. Implementations are called while the cache
// lock is held and must not call back into the cache.
type Observer interface {
	Hit(cat Category)
	Miss(cat Category)
	Evict(cat Category, n int)
}

type nopObserver struct{}

func (nopObserver) Hit(Category)        {}
func (nopObserver) Miss(Category)       {}
func (nopObserver) Evict(Category, int) {}

// Stats is a snapshot of the number of stored entries per category.
// Entries that expired but were not read or swept yet are still counted.
type Stats struct {
	Data        int `json:"data"`
	Validation  int `json:"validation"`
	Calculation int `json:"calculation"`
}

// Total returns the number of entries across all categories.
func (s Stats) Total() int {
	return s.Data + s.Validation + s.Calculation
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source used for timestamps and expiry checks.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithTTLs overrides the per-category TTLs.
func WithTTLs(ttls TTLs) Option {
	return func(c *Cache) { c.ttls = ttls }
}

// WithObserver registers an observer for hit, miss and eviction events.
// A nil observer disables reporting.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		if o == nil {
			o = nopObserver{}
		}
		c.observer = o
	}
}

// WithLogger sets the logger. Defaults to slog.Default(); nil keeps the
// default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// slot addresses one timestamp in the shared index.
type slot struct {
	cat Category
	key string
}

// Cache is an expiring key/value store with per-category TTLs.
// Create one per process with New and pass it to the services that use it.
type Cache struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	ttls     TTLs
	observer Observer
	log      *slog.Logger

	parts  [numCategories]map[string]any
	stamps map[slot]time.Time

	// gen increases on every invalidation.
	gen uint64
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		clock:    clockwork.NewRealClock(),
		ttls:     DefaultTTLs(),
		observer: nopObserver{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

func (c *Cache) reset() {
	for i := range c.parts {
		c.parts[i] = make(map[string]any)
	}
	c.stamps = make(map[slot]time.Time)
}

// Clock returns the time source of the cache.
func (c *Cache) Clock() clockwork.Clock {
	return c.clock
}

// TTLs returns the configured expiry windows.
func (c *Cache) TTLs() TTLs {
	return c.ttls
}

// Put stores value under key in the given category and restarts its expiry
// window. An existing value is overwritten.
func (c *Cache) Put(cat Category, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(cat, key, value)
}

// Generation returns a counter that increases whenever anything is invalidated.
// Pair it with PutIfUnchanged to avoid caching a result that was loaded
// concurrently with a write.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gen
}

// PutIfUnchanged stores value only if no invalidation happened since gen was
// obtained from Generation. It reports whether the value was stored.
func (c *Cache) PutIfUnchanged(gen uint64, cat Category, key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}
	return c.put(cat, key, value)
}

func (c *Cache) put(cat Category, key string, value any) bool {
	if !cat.valid() {
		return false
	}
	c.parts[cat][key] = value
	c.stamps[slot{cat: cat, key: key}] = c.clock.Now()
	return true
}

// Get returns the value stored under key in cat if it is fresh and of type T.
// Anything else is a miss, and the entry is evicted as a side effect.
func Get[T any](c *Cache, cat Category, key string) (T, bool) {
	v, ok := c.lookup(cat, key, func(v any) bool {
		_, ok := v.(T)
		return ok
	})
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func (c *Cache) lookup(cat Category, key string, match func(any) bool) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !cat.valid() {
		return nil, false
	}

	s := slot{cat: cat, key: key}
	v, stored := c.parts[cat][key]
	ts, stamped := c.stamps[s]

	if stored && stamped && c.fresh(cat, ts, c.clock.Now()) && match(v) {
		c.observer.Hit(cat)
		return v, true
	}

	if stored {
		c.observer.Evict(cat, 1)
	}
	if stored || stamped {
		c.remove(s)
	}
	c.observer.Miss(cat)
	return nil, false
}

func (c *Cache) fresh(cat Category, ts, now time.Time) bool {
	return now.Sub(ts) < c.ttls.Of(cat)
}

func (c *Cache) remove(s slot) {
	delete(c.parts[s.cat], s.key)
	delete(c.stamps, s)
}

// Invalidate removes key from cat. Removing an absent key is a no-op.
func (c *Cache) Invalidate(cat Category, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !cat.valid() {
		return
	}
	c.gen++
	c.remove(slot{cat: cat, key: key})
}

// InvalidatePrefix removes every key in cat that starts with prefix and
// returns how many were removed.
func (c *Cache) InvalidatePrefix(cat Category, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !cat.valid() {
		return 0
	}
	c.gen++

	n := 0
	for key := range c.parts[cat] {
		if strings.HasPrefix(key, prefix) {
			c.remove(slot{cat: cat, key: key})
			n++
		}
	}
	return n
}

// InvalidateCategory removes every key in cat. Timestamps of the same keys in
// other categories are left alone.
func (c *Cache) InvalidateCategory(cat Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !cat.valid() {
		return
	}
	c.gen++

	for key := range c.parts[cat] {
		delete(c.stamps, slot{cat: cat, key: key})
	}
	c.parts[cat] = make(map[string]any)
}

// InvalidateAll empties every category and the timestamp index.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.reset()
	c.log.Info("cache cleared")
}

// SweepExpired evicts every entry whose age reached its category TTL and
// returns the number of evicted entries.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	var evicted [numCategories]int
	for s, ts := range c.stamps {
		if c.fresh(s.cat, ts, now) {
			continue
		}
		c.remove(s)
		evicted[s.cat]++
	}

	total := 0
	for i, n := range evicted {
		if n == 0 {
			continue
		}
		c.observer.Evict(Category(i), n)
		total += n
	}
	return total
}

// Stats returns the number of stored entries per category.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Data:        len(c.parts[Data]),
		Validation:  len(c.parts[Validation]),
		Calculation: len(c.parts[Calculation]),
	}
}
