package finance

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stockReturnsBot/internal/date"
)

const defaultFetchWorkers = 4

// SeriesReader looks up a stored series by symbol.
type SeriesReader interface {
	Get(symbol string) (TimeSeries, bool)
}

// DataStore holds one TimeSeries per symbol, populated from a Source.
//
// Each call is safe for concurrent use, but an Allocate reading symbols that a Fetch is still
// populating may observe either the old or the new mapping. Callers sharing a store must
// not interleave a Fetch and an Allocate over overlapping symbols.
type DataStore struct {
	src     Source
	log     zerolog.Logger
	workers int

	mu     sync.RWMutex
	series map[string]TimeSeries
}

// DataStoreOption configures a DataStore.
type DataStoreOption func(*DataStore)

// WithWorkers bounds the number of concurrent Source requests of one Fetch.
func WithWorkers(n int) DataStoreOption {
	return func(s *DataStore) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewDataStore returns an empty store reading from src.
func NewDataStore(src Source, log zerolog.Logger, opts ...DataStoreOption) *DataStore {
	s := &DataStore{
		src:     src,
		log:     log.With().Str("component", "datastore").Logger(),
		workers: defaultFetchWorkers,
		series:  map[string]TimeSeries{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch retrieves every symbol over [start, end) and replaces the store content with the
// series that were retrieved.
//
// A symbol that fails or returns no bars is skipped and reported as a *SymbolFetchError; the
// returned error joins them all and is nil when every symbol succeeded. Use FetchFailures to
// list them. On context cancellation the store is left unchanged.
func (s *DataStore) Fetch(ctx context.Context, symbols []string, start, end date.Date) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}
	if start.After(end) {
		return &InvalidRangeError{Start: start, End: end}
	}

	results := make([]TimeSeries, len(symbols))
	failures := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			bars, err := s.src.History(gctx, symbol, start, end)
			if err == nil {
				bars = normalizeBars(bars, start, end)
				if len(bars) == 0 {
					err = ErrNoData
				}
			}
			if err != nil {
				failures[i] = &SymbolFetchError{Symbol: symbol, Err: err}
				s.log.Warn().Err(err).Str("symbol", symbol).Stringer("start", start).Stringer("end", end).Msg("symbol skipped")
				return nil
			}
			results[i] = newTimeSeries(symbol, start, end, bars)
			return nil
		})
	}
	_ = g.Wait() // workers never fail the group
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make(map[string]TimeSeries, len(symbols))
	for i, symbol := range symbols {
		if failures[i] == nil {
			next[symbol] = results[i]
		}
	}
	s.mu.Lock()
	s.series = next
	s.mu.Unlock()

	s.log.Info().Int("requested", len(symbols)).Int("stored", len(next)).Stringer("start", start).Stringer("end", end).Msg("fetch done")
	return errors.Join(failures...)
}

// Get returns the stored series of symbol.
func (s *DataStore) Get(symbol string) (TimeSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.series[symbol]
	return ts, ok
}

// Symbols returns the stored symbols in lexical order.
func (s *DataStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for k := range s.series {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
