package service

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/domain/summary"
)

// SummaryService computes derived figures. Results live in the Calculation
// category and are built from the Data-category reads of the other services.
type SummaryService struct {
	cache      *CacheLayer
	groups     *GroupService
	categories *CategoryService
	entries    *EntryService
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(layer *CacheLayer, groups *GroupService, categories *CategoryService, entries *EntryService) *SummaryService {
	return &SummaryService{cache: layer, groups: groups, categories: categories, entries: entries}
}

// EntryTotal returns the sum of an entry's line items.
func (s *SummaryService) EntryTotal(ctx context.Context, id string) (decimal.Decimal, error) {
	return readThrough(ctx, s.cache, cache.Calculation, entryTotalKey(id), func(ctx context.Context) (decimal.Decimal, error) {
		e, err := s.entries.Get(ctx, id)
		if err != nil {
			return decimal.Zero, err
		}
		return e.Total(), nil
	})
}

// CategoryTotal returns the all-time total of a category.
func (s *SummaryService) CategoryTotal(ctx context.Context, id string) (*summary.CategoryTotal, error) {
	ct, err := readThrough(ctx, s.cache, cache.Calculation, categoryTotalKey(id), func(ctx context.Context) (summary.CategoryTotal, error) {
		return s.categoryTotal(ctx, id, entry.Filter{CategoryID: id})
	})
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (s *SummaryService) categoryTotal(ctx context.Context, id string, f entry.Filter) (summary.CategoryTotal, error) {
	c, err := s.categories.Get(ctx, id)
	if err != nil {
		return summary.CategoryTotal{}, err
	}
	entries, err := s.entries.List(ctx, f)
	if err != nil {
		return summary.CategoryTotal{}, err
	}
	return summary.CategoryTotal{
		CategoryID: c.ID,
		Name:       c.Name,
		Kind:       c.Kind,
		Entries:    len(entries),
		Total:      entry.Sum(entries),
	}, nil
}

// GroupBalance returns the all-time income, expense and net of a group.
func (s *SummaryService) GroupBalance(ctx context.Context, groupID string) (*summary.Balance, error) {
	b, err := readThrough(ctx, s.cache, cache.Calculation, groupBalanceKey(groupID), func(ctx context.Context) (summary.Balance, error) {
		g, err := s.groups.Get(ctx, groupID)
		if err != nil {
			return summary.Balance{}, err
		}
		cats, err := s.categories.List(ctx, groupID)
		if err != nil {
			return summary.Balance{}, err
		}

		b := summary.Balance{GroupID: g.ID, Currency: g.Currency}
		for i := range cats {
			ct, err := s.CategoryTotal(ctx, cats[i].ID)
			if err != nil {
				return summary.Balance{}, err
			}
			b.Add(ct.Kind, ct.Total)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Month returns the per-category breakdown of a group for the calendar month
// containing month. Every category of the group is listed, empty ones with a
// zero total.
func (s *SummaryService) Month(ctx context.Context, groupID string, month time.Time) (*summary.Month, error) {
	from, to := entry.MonthRange(month)

	m, err := readThrough(ctx, s.cache, cache.Calculation, monthSummaryKey(groupID, from), func(ctx context.Context) (summary.Month, error) {
		g, err := s.groups.Get(ctx, groupID)
		if err != nil {
			return summary.Month{}, err
		}
		cats, err := s.categories.List(ctx, groupID)
		if err != nil {
			return summary.Month{}, err
		}

		var b summary.Balance
		m := summary.Month{
			GroupID:    g.ID,
			Month:      from.Format(monthLayout),
			Currency:   g.Currency,
			Categories: make([]summary.CategoryTotal, 0, len(cats)),
		}
		for i := range cats {
			ct, err := s.categoryTotal(ctx, cats[i].ID, entry.Filter{CategoryID: cats[i].ID, From: from, To: to})
			if err != nil {
				return summary.Month{}, err
			}
			b.Add(ct.Kind, ct.Total)
			m.Categories = append(m.Categories, ct)
		}
		m.Income, m.Expense, m.Net = b.Income, b.Expense, b.Net
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	m.Categories = slices.Clone(m.Categories)
	return &m, nil
}
