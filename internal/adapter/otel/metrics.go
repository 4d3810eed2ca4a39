package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/Tally/internal/cache"
)

const meterName = "tally"

// CacheMetrics reports cache traffic as OpenTelemetry counters. It satisfies
// cache.Observer so it can be handed to cache.WithObserver.
type CacheMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	entries   metric.Int64ObservableGauge

	// one pre-built attribute set per category
	attrs [len(cache.Categories)]metric.MeasurementOption
}

var _ cache.Observer = (*CacheMetrics)(nil)

// NewCacheMetrics creates the cache instruments on the global meter provider.
func NewCacheMetrics() (*CacheMetrics, error) {
	return NewCacheMetricsWithMeter(otel.Meter(meterName))
}

// NewCacheMetricsWithMeter creates the cache instruments on the given meter.
func NewCacheMetricsWithMeter(meter metric.Meter) (*CacheMetrics, error) {
	m := &CacheMetrics{}
	var err error

	m.hits, err = meter.Int64Counter("tally.cache.hits",
		metric.WithDescription("Number of cache lookups served from the cache"))
	if err != nil {
		return nil, err
	}

	m.misses, err = meter.Int64Counter("tally.cache.misses",
		metric.WithDescription("Number of cache lookups that fell through to the store"))
	if err != nil {
		return nil, err
	}

	m.evictions, err = meter.Int64Counter("tally.cache.evictions",
		metric.WithDescription("Number of entries removed by expiry, mismatch or invalidation"))
	if err != nil {
		return nil, err
	}

	m.entries, err = meter.Int64ObservableGauge("tally.cache.entries",
		metric.WithDescription("Number of entries currently held, expired ones included"))
	if err != nil {
		return nil, err
	}

	for _, c := range cache.Categories {
		m.attrs[c] = metric.WithAttributeSet(attribute.NewSet(attribute.String("category", c.String())))
	}
	return m, nil
}

func (m *CacheMetrics) Hit(c cache.Category) {
	m.hits.Add(context.Background(), 1, m.attrs[c])
}

func (m *CacheMetrics) Miss(c cache.Category) {
	m.misses.Add(context.Background(), 1, m.attrs[c])
}

func (m *CacheMetrics) Evict(c cache.Category, n int) {
	m.evictions.Add(context.Background(), int64(n), m.attrs[c])
}

// ObserveSize registers a callback reporting the entry count of c per
// category. Unregister the returned registration on shutdown.
func (m *CacheMetrics) ObserveSize(meter metric.Meter, c *cache.Cache) (metric.Registration, error) {
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := c.Stats()
		o.ObserveInt64(m.entries, int64(s.Data), m.attrs[cache.Data])
		o.ObserveInt64(m.entries, int64(s.Validation), m.attrs[cache.Validation])
		o.ObserveInt64(m.entries, int64(s.Calculation), m.attrs[cache.Calculation])
		return nil
	}, m.entries)
}

// Meter returns the meter used by NewCacheMetrics.
func Meter() metric.Meter {
	return otel.Meter(meterName)
}
