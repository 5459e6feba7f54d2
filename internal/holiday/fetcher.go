package holiday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/noahxzhu/holiday-notify/internal/clock"
	"github.com/noahxzhu/holiday-notify/internal/model"
)

// ErrNoHolidayData means the live source, the last known good list and the
// built-in calendar all came up empty.
var ErrNoHolidayData = errors.New("no holiday data available")

// ErrFetchBusy is returned when another fetch held the lock for too long.
var ErrFetchBusy = errors.New("holiday fetch already in progress")

type Cache interface {
	CachedHolidays(year int) ([]model.HolidayRecord, bool)
	PutHolidays(year int, holidays []model.HolidayRecord, fetchedAt time.Time) error
	LastSuccessfulHolidays() []model.HolidayRecord
	SetLastSuccessfulHolidays(holidays []model.HolidayRecord) error
}

// Fetcher puts the cache and the fallback tiers in front of a Source.
type Fetcher struct {
	source      Source
	cache       Cache
	fallback    func(year int) []model.HolidayRecord
	now         func() time.Time
	waitTimeout time.Duration
	sem         chan struct{}
}

type FetcherOption func(*Fetcher)

func WithFallback(fn func(year int) []model.HolidayRecord) FetcherOption {
	return func(f *Fetcher) {
		f.fallback = fn
	}
}

func WithNow(fn func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		f.now = fn
	}
}

// WithWaitTimeout bounds how long a caller waits for an in-flight fetch.
func WithWaitTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.waitTimeout = d
	}
}

func NewFetcher(source Source, cache Cache, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:      source,
		cache:       cache,
		fallback:    Builtin,
		now:         time.Now,
		waitTimeout: 30 * time.Second,
		sem:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchCached returns the holidays of year from, in order: the cache, the
// live source, the last known good list, the built-in calendar. Only a
// live result is written to the cache.
func (f *Fetcher) FetchCached(ctx context.Context, year int) ([]model.HolidayRecord, error) {
	if list, ok := f.cache.CachedHolidays(year); ok {
		return list, nil
	}

	if err := f.lock(ctx); err != nil {
		return nil, err
	}
	defer f.unlock()

	// Another caller may have filled the cache while we waited.
	if list, ok := f.cache.CachedHolidays(year); ok {
		return list, nil
	}

	list, err := f.source.FetchHolidays(ctx, year)
	if err == nil && len(list) == 0 {
		err = errEmptyList
	}
	if err == nil {
		if err := f.cache.PutHolidays(year, list, f.now()); err != nil {
			slog.Error("Failed to persist holiday cache", "year", year, "error", err)
		}
		return list, nil
	}
	slog.Warn("Live holiday fetch failed", "year", year, "error", err)

	if known := ForYear(f.cache.LastSuccessfulHolidays(), year); len(known) > 0 {
		slog.Warn("Using last known good holidays", "year", year, "count", len(known))
		return known, nil
	}

	if builtin := f.fallback(year); len(builtin) > 0 {
		slog.Warn("Using built-in holidays as final fallback", "year", year, "count", len(builtin))
		if err := f.cache.SetLastSuccessfulHolidays(builtin); err != nil {
			slog.Error("Failed to persist last known good holidays", "error", err)
		}
		return builtin, nil
	}

	return nil, fmt.Errorf("%w for %d: %w", ErrNoHolidayData, year, err)
}

func (f *Fetcher) lock(ctx context.Context) error {
	timer := time.NewTimer(f.waitTimeout)
	defer timer.Stop()

	select {
	case f.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrFetchBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) unlock() {
	<-f.sem
}

// Upcoming lists holidays dated from `from` through `from+within`, oldest
// first, at most limit entries.
func (f *Fetcher) Upcoming(ctx context.Context, from time.Time, within time.Duration, limit int) ([]model.HolidayRecord, error) {
	until := from.Add(within)
	start := from.Format(clock.DateLayout)
	end := until.Format(clock.DateLayout)

	years := []int{from.Year()}
	if until.Year() != from.Year() {
		years = append(years, until.Year())
	}

	var out []model.HolidayRecord
	for i, year := range years {
		list, err := f.FetchCached(ctx, year)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			slog.Warn("Skipping next year's holidays", "year", year, "error", err)
			continue
		}
		for _, h := range list {
			if h.Date >= start && h.Date <= end {
				out = append(out, h)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b model.HolidayRecord) int {
		return strings.Compare(a.Date, b.Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
