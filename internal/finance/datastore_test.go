package finance

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockReturnsBot/internal/date"
)

var (
	jan1  = date.MustParse("2024-01-01")
	jan10 = date.MustParse("2024-01-10")
)

func TestFetchComputesReturns(t *testing.T) {
	src := newFakeSource().withCloses("A", "2024-01-01", 100, 110, 99, 120)
	store := NewDataStore(src, zerolog.Nop())

	require.NoError(t, store.Fetch(context.Background(), []string{"A"}, jan1, jan10))

	s, ok := store.Get("A")
	require.True(t, ok)
	require.Equal(t, 4, s.Len())
	assert.Equal(t, "A", s.Symbol)
	assert.Equal(t, jan1, s.Start)
	assert.Equal(t, jan10, s.End)

	first := s.Rows[0]
	assert.True(t, math.IsNaN(first.PercentageChange))
	assert.True(t, math.IsNaN(first.LogReturn))

	for i := 1; i < s.Len(); i++ {
		r := s.Rows[i]
		assert.InDelta(t, s.Rows[i].Close/s.Rows[i-1].Close-1, r.PercentageChange, 1e-15)
		assert.Equal(t, math.Log(1+r.PercentageChange), r.LogReturn, "row %d", i)
	}
	assert.InDelta(t, 0.1, s.Rows[1].PercentageChange, 1e-12)
}

func TestFetchPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	src := newFakeSource().
		withCloses("A", "2024-01-01", 1, 2).
		failing("B", boom).
		withCloses("C", "2024-01-01", 3, 4)
	src.bars["EMPTY"] = nil
	store := NewDataStore(src, zerolog.Nop(), WithWorkers(2))

	err := store.Fetch(context.Background(), []string{"A", "B", "C", "EMPTY", "NOPE"}, jan1, jan10)
	require.Error(t, err)

	failures := FetchFailures(err)
	require.Len(t, failures, 3)
	assert.Equal(t, "B", failures[0].Symbol)
	assert.ErrorIs(t, failures[0], boom)
	assert.Equal(t, "EMPTY", failures[1].Symbol)
	assert.ErrorIs(t, failures[1], ErrNoData)
	assert.Equal(t, "NOPE", failures[2].Symbol)

	var sfe *SymbolFetchError
	assert.ErrorAs(t, err, &sfe)

	assert.Equal(t, []string{"A", "C"}, store.Symbols())
	_, ok := store.Get("B")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"A", "B", "C", "EMPTY", "NOPE"}, src.calls)
}

func TestFetchPreconditions(t *testing.T) {
	src := newFakeSource().withCloses("A", "2024-01-01", 1, 2)
	store := NewDataStore(src, zerolog.Nop())
	require.NoError(t, store.Fetch(context.Background(), []string{"A"}, jan1, jan10))

	assert.ErrorIs(t, store.Fetch(context.Background(), nil, jan1, jan10), ErrNoSymbols)

	var rangeErr *InvalidRangeError
	assert.ErrorAs(t, store.Fetch(context.Background(), []string{"A"}, jan10, jan1), &rangeErr)

	// untouched
	assert.Equal(t, []string{"A"}, store.Symbols())
	assert.Empty(t, src.calls[1:])
}

func TestFetchHalfOpenRangeAndCleanup(t *testing.T) {
	src := newFakeSource()
	src.bars["A"] = []Bar{
		{Date: date.MustParse("2024-01-03"), Close: 12},
		{Date: date.MustParse("2023-12-31"), Close: 9}, // before start
		{Date: date.MustParse("2024-01-02"), Close: 0}, // null session
		{Date: date.MustParse("2024-01-01"), Close: 10},
		{Date: date.MustParse("2024-01-03"), Close: 13}, // later duplicate wins
		{Date: date.MustParse("2024-01-04"), Close: 14}, // end is excluded
	}
	store := NewDataStore(src, zerolog.Nop())
	require.NoError(t, store.Fetch(context.Background(), []string{"A"}, jan1, date.MustParse("2024-01-04")))

	s, _ := store.Get("A")
	assert.Equal(t, []date.Date{jan1, date.MustParse("2024-01-03")}, s.Dates())
	assert.Equal(t, []float64{10, 13}, s.Closes())
	assert.InDelta(t, 0.3, s.Rows[1].PercentageChange, 1e-12)
}

func TestFetchReplacesPreviousContent(t *testing.T) {
	src := newFakeSource().
		withCloses("A", "2024-01-01", 1, 2, 3, 4, 5, 6).
		withCloses("B", "2024-01-01", 7, 8)
	store := NewDataStore(src, zerolog.Nop())

	require.NoError(t, store.Fetch(context.Background(), []string{"A", "B"}, jan1, jan10))
	a, _ := store.Get("A")
	require.Equal(t, 6, a.Len())

	require.NoError(t, store.Fetch(context.Background(), []string{"A"}, date.MustParse("2024-01-03"), date.MustParse("2024-01-05")))
	a, ok := store.Get("A")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, a.Closes(), "series is replaced, not appended to")
	assert.True(t, math.IsNaN(a.Rows[0].PercentageChange))

	_, ok = store.Get("B")
	assert.False(t, ok, "keys are those of the latest fetch")
}

func TestFetchCancelledLeavesStoreUnchanged(t *testing.T) {
	src := newFakeSource().withCloses("A", "2024-01-01", 1, 2)
	store := NewDataStore(src, zerolog.Nop())
	require.NoError(t, store.Fetch(context.Background(), []string{"A"}, jan1, jan10))

	src.blocks = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Fetch(ctx, []string{"A", "B"}, jan1, jan10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"A"}, store.Symbols())
}

func TestGetUnknown(t *testing.T) {
	store := NewDataStore(newFakeSource(), zerolog.Nop())
	s, ok := store.Get("ZZZ")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestTimeSeriesAt(t *testing.T) {
	s := seriesOf("A", []string{"2024-01-01", "2024-01-03"}, 1, 2)
	r, ok := s.At(date.MustParse("2024-01-03"))
	require.True(t, ok)
	assert.Equal(t, 2.0, r.Close)
	_, ok = s.At(date.MustParse("2024-01-02"))
	assert.False(t, ok)
}
