package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return New(append([]Option{WithClock(clock)}, opts...)...), clock
}

func TestPutThenGet(t *testing.T) {
	c, _ := newTestCache(t)

	tests := []struct {
		name  string
		cat   Category
		key   string
		value any
	}{
		{"data string", Data, "users:all", "alice"},
		{"validation bool", Validation, "available:email:a@b.c", true},
		{"calculation float", Calculation, "pi", 3.14159},
		{"data slice", Data, "list", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Put(tt.cat, tt.key, tt.value)

			got, ok := Get[any](c, tt.cat, tt.key)
			if !ok {
				t.Fatalf("expected hit for %s/%s", tt.cat, tt.key)
			}
			if s, isSlice := tt.value.([]string); isSlice {
				gs := got.([]string)
				if len(gs) != len(s) || gs[0] != s[0] {
					t.Fatalf("got %v, want %v", gs, s)
				}
				return
			}
			if got != tt.value {
				t.Fatalf("got %v, want %v", got, tt.value)
			}
		})
	}
}

func TestGet_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := Get[string](c, Data, "never-stored"); ok {
		t.Fatal("expected miss for key never stored")
	}
}

func TestGet_TypeMismatchIsMiss(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "k", "a string")

	n, ok := Get[int](c, Data, "k")
	if ok {
		t.Fatalf("expected miss when requesting int, got %d", n)
	}
	if n != 0 {
		t.Fatalf("expected zero value on miss, got %d", n)
	}

	// the mismatched read evicted the entry
	if _, ok := Get[string](c, Data, "k"); ok {
		t.Fatal("expected entry to be evicted after type mismatch")
	}
	if got := c.Stats().Data; got != 0 {
		t.Fatalf("expected 0 data entries, got %d", got)
	}
}

func TestGet_InterfaceType(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "err", json.Number("12"))

	v, ok := Get[interface{ String() string }](c, Data, "err")
	if !ok {
		t.Fatal("expected hit when value implements requested interface")
	}
	if v.String() != "12" {
		t.Fatalf("got %q", v.String())
	}
}

func TestGet_NilValueIsMiss(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "nil", nil)

	if _, ok := Get[any](c, Data, "nil"); ok {
		t.Fatal("expected miss for stored nil")
	}
}

func TestPut_OverwriteRestartsWindow(t *testing.T) {
	c, clock := newTestCache(t)

	c.Put(Validation, "k", "v1")
	clock.Advance(50 * time.Second)
	c.Put(Validation, "k", "v2")
	clock.Advance(50 * time.Second)

	got, ok := Get[string](c, Validation, "k")
	if !ok {
		t.Fatal("expected hit: overwrite should restart the expiry window")
	}
	if got != "v2" {
		t.Fatalf("expected v2, got %s", got)
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "k", "v")

	c.Invalidate(Data, "k")
	if _, ok := Get[string](c, Data, "k"); ok {
		t.Fatal("expected miss after Invalidate")
	}

	// idempotent
	c.Invalidate(Data, "k")
	c.Invalidate(Data, "never-existed")
}

func TestInvalidate_OtherCategoryUntouched(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "shared", "data")
	c.Put(Calculation, "shared", 42)

	c.Invalidate(Data, "shared")

	got, ok := Get[int](c, Calculation, "shared")
	if !ok || got != 42 {
		t.Fatalf("expected calculation entry to survive, got %d ok=%v", got, ok)
	}
}

func TestInvalidateCategory(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Calculation, "a", 1)
	c.Put(Calculation, "b", 2)
	c.Put(Data, "a", "still here")

	c.InvalidateCategory(Calculation)

	for _, k := range []string{"a", "b"} {
		if _, ok := Get[int](c, Calculation, k); ok {
			t.Fatalf("expected miss for %s after InvalidateCategory", k)
		}
	}
	if got, ok := Get[string](c, Data, "a"); !ok || got != "still here" {
		t.Fatalf("expected data entry to survive, got %q ok=%v", got, ok)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, Key("entries", "category", "c1", "all"), 1)
	c.Put(Data, Key("entries", "category", "c1", "2026-01"), 2)
	c.Put(Data, Key("entries", "category", "c10", "all"), 3)
	c.Put(Calculation, Key("entries", "category", "c1", "all"), 4)

	n := c.InvalidatePrefix(Data, Prefix("entries", "category", "c1"))
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := Get[int](c, Data, Key("entries", "category", "c10", "all")); !ok {
		t.Fatal("prefix must not match a longer id")
	}
	if _, ok := Get[int](c, Calculation, Key("entries", "category", "c1", "all")); !ok {
		t.Fatal("prefix invalidation must stay within its category")
	}
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "a", 1)
	c.Put(Validation, "b", true)
	c.Put(Calculation, "c", 3.0)

	c.InvalidateAll()

	if s := c.Stats(); s != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}

func TestExpiry_Validation(t *testing.T) {
	c, clock := newTestCache(t)
	c.Put(Validation, "check", true)

	if _, ok := Get[bool](c, Validation, "check"); !ok {
		t.Fatal("expected hit immediately after Put")
	}

	clock.Advance(59 * time.Second)
	if _, ok := Get[bool](c, Validation, "check"); !ok {
		t.Fatal("expected hit before TTL elapsed")
	}

	clock.Advance(time.Second)
	if _, ok := Get[bool](c, Validation, "check"); ok {
		t.Fatal("expected miss once TTL elapsed")
	}
	if got := c.Stats().Validation; got != 0 {
		t.Fatalf("expected expired entry to be evicted on read, got %d", got)
	}
}

func TestExpiry_IndependentTTLs(t *testing.T) {
	c, clock := newTestCache(t)
	c.Put(Data, "d", "data")
	c.Put(Calculation, "c", 1.5)

	clock.Advance(5 * time.Minute)

	if _, ok := Get[string](c, Data, "d"); ok {
		t.Fatal("expected data entry to expire after 5m")
	}
	if _, ok := Get[float64](c, Calculation, "c"); !ok {
		t.Fatal("expected calculation entry to outlive data entry")
	}

	clock.Advance(5 * time.Minute)
	if _, ok := Get[float64](c, Calculation, "c"); ok {
		t.Fatal("expected calculation entry to expire after 10m")
	}
}

func TestExpiry_CustomTTLs(t *testing.T) {
	c, clock := newTestCache(t, WithTTLs(TTLs{Data: time.Second, Validation: time.Second, Calculation: time.Second}))
	c.Put(Data, "k", 1)

	clock.Advance(time.Second)
	if _, ok := Get[int](c, Data, "k"); ok {
		t.Fatal("expected custom TTL to apply")
	}
}

func TestScenario_InvalidateOneOfTwo(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Data, "k1", "data1")
	c.Put(Data, "k2", "data2")

	if got := c.Stats().Data; got != 2 {
		t.Fatalf("expected 2 data entries, got %d", got)
	}

	c.Invalidate(Data, "k1")

	if _, ok := Get[string](c, Data, "k1"); ok {
		t.Fatal("expected k1 miss")
	}
	if got, ok := Get[string](c, Data, "k2"); !ok || got != "data2" {
		t.Fatalf("expected data2, got %q ok=%v", got, ok)
	}
	if got := c.Stats().Data; got != 1 {
		t.Fatalf("expected 1 data entry, got %d", got)
	}
}

func TestScenario_CalculationCategoryClear(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put(Calculation, "pi", 3.14159)

	if got, ok := Get[float64](c, Calculation, "pi"); !ok || got != 3.14159 {
		t.Fatalf("expected 3.14159, got %v ok=%v", got, ok)
	}

	c.InvalidateCategory(Calculation)

	if _, ok := Get[float64](c, Calculation, "pi"); ok {
		t.Fatal("expected miss after InvalidateCategory")
	}
}

func TestSweepExpired(t *testing.T) {
	c, clock := newTestCache(t)
	c.Put(Validation, "v", true)
	c.Put(Data, "d", "x")
	c.Put(Calculation, "c", 1)

	if n := c.SweepExpired(); n != 0 {
		t.Fatalf("expected nothing to sweep, got %d", n)
	}

	clock.Advance(2 * time.Minute)
	if n := c.SweepExpired(); n != 1 {
		t.Fatalf("expected 1 swept (validation), got %d", n)
	}

	clock.Advance(4 * time.Minute)
	if n := c.SweepExpired(); n != 1 {
		t.Fatalf("expected 1 swept (data), got %d", n)
	}

	want := Stats{Calculation: 1}
	if s := c.Stats(); s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
}

func TestStats_CountsStaleEntriesUntilTouched(t *testing.T) {
	c, clock := newTestCache(t)
	c.Put(Validation, "v", true)

	clock.Advance(time.Hour)
	if got := c.Stats().Validation; got != 1 {
		t.Fatalf("stats is a snapshot and should still count the stale entry, got %d", got)
	}
}

func TestGeneration(t *testing.T) {
	c, _ := newTestCache(t)

	gen := c.Generation()
	if !c.PutIfUnchanged(gen, Data, "k", 1) {
		t.Fatal("expected put with current generation to succeed")
	}

	c.Invalidate(Data, "other")
	if c.PutIfUnchanged(gen, Data, "k2", 2) {
		t.Fatal("expected put with stale generation to be rejected")
	}
	if _, ok := Get[int](c, Data, "k2"); ok {
		t.Fatal("rejected put must not store the value")
	}

	before := c.Generation()
	c.Put(Data, "k3", 3)
	c.SweepExpired()
	if c.Generation() != before {
		t.Fatal("puts and sweeps must not change the generation")
	}
}

type recordingObserver struct {
	hits, misses map[Category]int
	evictions    map[Category]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		hits:      map[Category]int{},
		misses:    map[Category]int{},
		evictions: map[Category]int{},
	}
}

func (r *recordingObserver) Hit(cat Category)          { r.hits[cat]++ }
func (r *recordingObserver) Miss(cat Category)         { r.misses[cat]++ }
func (r *recordingObserver) Evict(cat Category, n int) { r.evictions[cat] += n }

func TestObserver(t *testing.T) {
	obs := newRecordingObserver()
	c, clock := newTestCache(t, WithObserver(obs))

	c.Put(Data, "k", "v")
	Get[string](c, Data, "k")
	Get[int](c, Data, "k")
	Get[string](c, Data, "k")

	c.Put(Calculation, "c", 1)
	clock.Advance(11 * time.Minute)
	c.SweepExpired()

	if obs.hits[Data] != 1 {
		t.Fatalf("expected 1 data hit, got %d", obs.hits[Data])
	}
	if obs.misses[Data] != 2 {
		t.Fatalf("expected 2 data misses, got %d", obs.misses[Data])
	}
	if obs.evictions[Data] != 1 {
		t.Fatalf("expected 1 data eviction, got %d", obs.evictions[Data])
	}
	if obs.evictions[Calculation] != 1 {
		t.Fatalf("expected 1 calculation eviction, got %d", obs.evictions[Calculation])
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	c, clock := newTestCache(t, WithObserver(nil), WithLogger(nil))

	c.Put(Data, "k", "v")
	if _, ok := Get[string](c, Data, "k"); !ok {
		t.Fatal("expected hit")
	}
	Get[int](c, Data, "k")
	clock.Advance(time.Hour)
	c.SweepExpired()
	c.InvalidateAll()
}

func TestInvalidCategoryIgnored(t *testing.T) {
	c, _ := newTestCache(t)
	bogus := Category(42)

	c.Put(bogus, "k", 1)
	if _, ok := Get[int](c, bogus, "k"); ok {
		t.Fatal("expected miss for unknown category")
	}
	c.Invalidate(bogus, "k")
	c.InvalidateCategory(bogus)
	if s := c.Stats(); s != (Stats{}) {
		t.Fatalf("expected empty cache, got %+v", s)
	}
}

func TestCategoryText(t *testing.T) {
	for _, cat := range Categories {
		b, err := cat.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", cat, err)
		}
		var back Category
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != cat {
			t.Fatalf("round trip: got %v, want %v", back, cat)
		}
	}

	if _, err := ParseCategory("bogus"); err == nil {
		t.Fatal("expected error for unknown category name")
	}
	if _, err := Category(9).MarshalText(); err == nil {
		t.Fatal("expected error for unknown category value")
	}
}

func TestKey(t *testing.T) {
	if got := Key("category", "count", "abc"); got != "category:count:abc" {
		t.Fatalf("got %q", got)
	}
	if got := Prefix("entries", "category", "abc"); got != "entries:category:abc:" {
		t.Fatalf("got %q", got)
	}
}
