// Package availability resolves which dates and times are bookable from the
// backend's schedule. The backend owns the schedule; the resolver holds a
// possibly-stale snapshot between fetches.
package availability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

// Fetcher retrieves the full availability map. *api.Client satisfies it.
type Fetcher interface {
	Availability(ctx context.Context) (api.AvailabilityMap, error)
}

// Resolver caches the latest availability snapshot and derives the selectable
// date list from it.
type Resolver struct {
	fetcher Fetcher
	logger  *logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	snapshot api.AvailabilityMap
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver over the given fetcher.
func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		logger:  logging.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadAll fetches the full map and replaces the local snapshot. On failure
// the snapshot is cleared so nothing stale is offered as bookable.
func (r *Resolver) LoadAll(ctx context.Context) error {
	snapshot, err := r.fetcher.Availability(ctx)
	if err != nil {
		r.mu.Lock()
		r.snapshot = nil
		r.mu.Unlock()
		r.logger.Warn("availability fetch failed, clearing snapshot", "error", err)
		return fmt.Errorf("availability: load: %w", err)
	}

	r.mu.Lock()
	r.snapshot = snapshot
	r.mu.Unlock()
	return nil
}

// SelectableDates returns the snapshot's dates that have at least one time
// slot and are not in the past, sorted ascending. Dates that fail to parse
// are excluded.
func (r *Resolver) SelectableDates() []string {
	r.mu.Lock()
	snapshot := r.snapshot
	r.mu.Unlock()

	today := midnight(r.now())

	var dates []string
	for date, times := range snapshot {
		if len(times) == 0 {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			r.logger.Warn("skipping unparseable availability date", "date", date)
			continue
		}
		if day.Before(today) {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// TimesForDate returns the bookable times for one date. A date absent from
// the local snapshot resolves to an empty list without a network call.
// Otherwise the ENTIRE map is re-fetched and the list derived from the fresh
// copy; the full resync is the consistency check against concurrent admin
// edits, since there is no per-date endpoint and no reservation protocol.
func (r *Resolver) TimesForDate(ctx context.Context, date string) ([]string, error) {
	r.mu.Lock()
	_, known := r.snapshot[date]
	r.mu.Unlock()

	if !known {
		return nil, nil
	}

	snapshot, err := r.fetcher.Availability(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability: refresh for %s: %w", date, err)
	}

	r.mu.Lock()
	r.snapshot = snapshot
	r.mu.Unlock()

	return snapshot[date], nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
