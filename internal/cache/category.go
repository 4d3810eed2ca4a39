package cache

import (
	"fmt"
	"time"
)

// Category selects the partition a value lives in and the TTL that applies to it.
type Category int

const (
	// Data holds query results (entities, lists, counts).
	Data Category = iota
	// Validation holds outcomes of validation checks such as name availability.
	Validation
	// Calculation holds derived values such as totals and summaries.
	Calculation
)

// Categories lists every category in partition order.
var Categories = [...]Category{Data, Validation, Calculation}

const numCategories = len(Categories)

// Default TTLs per category.
const (
	DefaultDataTTL        = 5 * time.Minute
	DefaultValidationTTL  = time.Minute
	DefaultCalculationTTL = 10 * time.Minute
)

func (c Category) String() string {
	switch c {
	case Data:
		return "data"
	case Validation:
		return "validation"
	case Calculation:
		return "calculation"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

func (c Category) valid() bool {
	return c >= Data && c <= Calculation
}

// ParseCategory converts the textual name of a category back to its value.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown cache category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("unknown cache category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TTLs holds the expiry window of each category.
type TTLs struct {
	Data        time.Duration
	Validation  time.Duration
	Calculation time.Duration
}

// DefaultTTLs returns Data=5m, Validation=1m, Calculation=10m.
func DefaultTTLs() TTLs {
	return TTLs{
		Data:        DefaultDataTTL,
		Validation:  DefaultValidationTTL,
		Calculation: DefaultCalculationTTL,
	}
}

// Of returns the TTL of the given category.
func (t TTLs) Of(c Category) time.Duration {
	switch c {
	case Data:
		return t.Data
	case Validation:
		return t.Validation
	case Calculation:
		return t.Calculation
	default:
		return 0
	}
}
