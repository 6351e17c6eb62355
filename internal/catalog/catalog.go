// Package catalog enumerates reporting periods and detects ingestion gaps.
package catalog

import (
	"context"
	"sort"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// YearStore reports which years already have hourly data loaded. Presence is
// by year existing at all, not by completeness.
type YearStore interface {
	Years(ctx context.Context) (map[int]struct{}, error)
}

// Catalog computes the expected and missing reporting periods (calendar
// years) for the archive source.
type Catalog struct {
	store     YearStore
	clock     clockwork.Clock
	startYear int
	endYear   int // 0 means "through the current year"
	logger    *zap.Logger
}

// New constructs a Catalog.
func New(store YearStore, clock clockwork.Clock, startYear, endYear int, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		store:     store,
		clock:     clock,
		startYear: startYear,
		endYear:   endYear,
		logger:    logger,
	}
}

// ExpectedYears returns the contiguous ascending year range bounded by the
// configured earliest year and the current calendar year. Zero arguments take
// the configured defaults. Inverted bounds are swapped with a warning rather
// than treated as an error.
func (c *Catalog) ExpectedYears(start, end int) []int {
	current := c.clock.Now().UTC().Year()
	if start == 0 {
		start = c.startYear
	}
	if end == 0 {
		end = c.endYear
	}
	if end == 0 || end > current {
		end = current
	}
	if end < start {
		c.logger.Warn("end year is before start year; swapping",
			zap.Int("start", start), zap.Int("end", end))
		start, end = end, start
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years
}

// MissingYears computes ExpectedYears minus the years already present in the
// store. A non-zero target restricts the candidates to that single year. A
// store inspection failure is treated as "nothing loaded yet" so a fresh
// database still ingests everything.
func (c *Catalog) MissingYears(ctx context.Context, target int) []int {
	candidates := c.ExpectedYears(0, 0)
	if target != 0 {
		candidates = []int{target}
	}

	loaded, err := c.store.Years(ctx)
	if err != nil {
		c.logger.Warn("could not inspect loaded years; assuming empty store", zap.Error(err))
		loaded = map[int]struct{}{}
	}

	missing := make([]int, 0, len(candidates))
	for _, y := range candidates {
		if _, ok := loaded[y]; !ok {
			missing = append(missing, y)
		}
	}
	sort.Ints(missing)
	return missing
}
