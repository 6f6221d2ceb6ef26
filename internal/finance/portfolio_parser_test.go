package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockReturnsBot/internal/date"
)

func TestParseAllocation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		symbols  []string
		weights  []float64
		hasRange bool
		wantErr  string
	}{
		{name: "basic", input: "/port spy 0.5 aapl 0.25", symbols: []string{"SPY", "AAPL"}, weights: []float64{0.5, 0.25}},
		{name: "bot suffix", input: "/port@ReturnsBot QQQ 1", symbols: []string{"QQQ"}, weights: []float64{1}},
		{name: "negative weight", input: "/port SPY 1 TLT -0.5", symbols: []string{"SPY", "TLT"}, weights: []float64{1, -0.5}},
		{name: "with range", input: "/port SPY 1 2024-01-01 2024-7-1", symbols: []string{"SPY"}, weights: []float64{1}, hasRange: true},
		{name: "no args", input: "/port", wantErr: "insufficient"},
		{name: "odd args", input: "/port SPY 0.5 AAPL", wantErr: "each symbol must have a weight"},
		{name: "bad weight", input: "/port SPY half", wantErr: "invalid weight"},
		{name: "duplicate", input: "/port SPY 1 spy 2", wantErr: "duplicate symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAllocation(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.symbols, a.Symbols)
			assert.Equal(t, tt.weights, a.Weights)
			assert.Equal(t, tt.hasRange, a.HasRange)
		})
	}
}

func TestParseAllocationRange(t *testing.T) {
	a, err := ParseAllocation("/port SPY 1 2024-01-01 2024-7-1")
	require.NoError(t, err)
	assert.Equal(t, date.Range{From: date.MustParse("2024-01-01"), To: date.MustParse("2024-07-01")}, a.Range)

	_, err = ParseAllocation("/port SPY 1 2024-07-01 2024-01-01")
	var rangeErr *InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestParseFetch(t *testing.T) {
	symbols, r, err := ParseFetch("/fetch spy aapl SPY 2024-01-01 2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "AAPL"}, symbols)
	assert.Equal(t, date.MustParse("2024-02-01"), r.To)

	_, _, err = ParseFetch("/fetch SPY")
	assert.ErrorContains(t, err, "missing date range")

	_, _, err = ParseFetch("/fetch 2024-01-01 2024-02-01")
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, _, err = ParseFetch("/fetch SPY 2024-13-01 2024-02-01")
	assert.Error(t, err)
}
