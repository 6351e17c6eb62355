package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubYearStore struct {
	years map[int]struct{}
	err   error
}

func (s *stubYearStore) Years(context.Context) (map[int]struct{}, error) {
	return s.years, s.err
}

func yearSet(years ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(years))
	for _, y := range years {
		m[y] = struct{}{}
	}
	return m
}

func fixedClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestExpectedYearsDefaults(t *testing.T) {
	t.Parallel()

	c := New(&stubYearStore{}, fixedClock(), 2020, 0, zap.NewNop())
	require.Equal(t, []int{2020, 2021, 2022, 2023, 2024}, c.ExpectedYears(0, 0))
}

func TestExpectedYearsClampsToCurrentYear(t *testing.T) {
	t.Parallel()

	c := New(&stubYearStore{}, fixedClock(), 2020, 2030, zap.NewNop())
	got := c.ExpectedYears(0, 0)
	require.Equal(t, 2024, got[len(got)-1])
}

func TestExpectedYearsSwapsInvertedBounds(t *testing.T) {
	t.Parallel()

	c := New(&stubYearStore{}, fixedClock(), 1961, 0, zap.NewNop())
	require.Equal(t, []int{2020, 2021, 2022}, c.ExpectedYears(2022, 2020))
}

func TestMissingYearsDiffsAgainstStore(t *testing.T) {
	t.Parallel()

	store := &stubYearStore{years: yearSet(2020, 2021, 2023)}
	c := New(store, fixedClock(), 2020, 2023, zap.NewNop())

	require.Equal(t, []int{2022}, c.MissingYears(context.Background(), 0))
}

func TestMissingYearsEmptyStoreReturnsAll(t *testing.T) {
	t.Parallel()

	c := New(&stubYearStore{years: yearSet()}, fixedClock(), 2020, 2023, zap.NewNop())
	require.Equal(t, []int{2020, 2021, 2022, 2023}, c.MissingYears(context.Background(), 0))
}

func TestMissingYearsWithTarget(t *testing.T) {
	t.Parallel()

	store := &stubYearStore{years: yearSet(2021)}
	c := New(store, fixedClock(), 2020, 2023, zap.NewNop())

	require.Equal(t, []int{2022}, c.MissingYears(context.Background(), 2022))
	require.Empty(t, c.MissingYears(context.Background(), 2021))
}

func TestMissingYearsStoreErrorAssumesEmpty(t *testing.T) {
	t.Parallel()

	store := &stubYearStore{err: errors.New("connection refused")}
	c := New(store, fixedClock(), 2022, 2023, zap.NewNop())

	require.Equal(t, []int{2022, 2023}, c.MissingYears(context.Background(), 0))
}
