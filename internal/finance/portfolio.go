package finance

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"stockReturnsBot/internal/date"
)

// WeightConvention tells how allocation weights are interpreted.
type WeightConvention int

const (
	// WeightsAsMultipliers treats weights as dollar or unit multipliers of each close.
	// They need not sum to one and may be negative.
	WeightsAsMultipliers WeightConvention = iota
	// WeightsSumToOne additionally requires the weights to sum to one.
	WeightsSumToOne
)

const defaultWeightTolerance = 1e-9

// Aggregator combines stored series into weighted portfolio tables.
// It keeps no state between calls.
type Aggregator struct {
	store      SeriesReader
	convention WeightConvention
	tolerance  float64
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithWeightConvention selects how weights are validated.
func WithWeightConvention(c WeightConvention) AggregatorOption {
	return func(a *Aggregator) { a.convention = c }
}

// WithWeightTolerance sets the accepted distance of the weight sum to one under WeightsSumToOne.
func WithWeightTolerance(tol float64) AggregatorOption {
	return func(a *Aggregator) { a.tolerance = tol }
}

// NewAggregator returns an Aggregator reading series from store.
func NewAggregator(store SeriesReader, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{store: store, tolerance: defaultWeightTolerance}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate builds the portfolio table of symbols weighted by weights.
//
// Every symbol's Close column is multiplied by its weight, the weighted columns are
// outer-joined on the union of their dates and summed per date over the symbols that have a
// value that day. Combined_N, Daily_Return and Log_Return are then derived from Combined.
// All inputs are validated before any computation; on error no table is returned.
func (a *Aggregator) Allocate(symbols []string, weights []float64) (*PortfolioTable, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if len(symbols) != len(weights) {
		return nil, &ShapeMismatchError{Symbols: len(symbols), Weights: len(weights)}
	}
	if err := a.checkWeights(symbols, weights); err != nil {
		return nil, err
	}
	series, err := a.lookup(symbols)
	if err != nil {
		return nil, err
	}

	// weighted closes, each on its own date index
	weighted := make([][]float64, len(series))
	indexes := make([][]date.Date, len(series))
	for i, s := range series {
		closes := s.Closes()
		weighted[i] = make([]float64, len(closes))
		floats.ScaleTo(weighted[i], weights[i], closes)
		indexes[i] = s.Dates()
	}

	table := &PortfolioTable{
		Symbols: slices.Clone(symbols),
		Weights: slices.Clone(weights),
	}
	cursors := make([]int, len(series))
	for on := range date.Union(indexes...) {
		row := PortfolioRow{Date: on, Weighted: make([]float64, len(series))}
		sum, present := 0.0, 0
		for i := range series {
			row.Weighted[i] = math.NaN()
			if c := cursors[i]; c < len(indexes[i]) && indexes[i][c] == on {
				row.Weighted[i] = weighted[i][c]
				cursors[i]++
				sum += weighted[i][c]
				present++
			}
		}
		row.Combined = math.NaN()
		if present > 0 {
			row.Combined = sum
		}
		table.Rows = append(table.Rows, row)
	}

	combined := table.Combined()
	base := math.NaN()
	if len(combined) > 0 {
		base = combined[0] // earliest date of the union
	}
	daily := pctChange(combined)
	logs := logRatio(combined)
	for i := range table.Rows {
		table.Rows[i].CombinedN = combined[i] / base
		table.Rows[i].DailyReturn = daily[i]
		table.Rows[i].LogReturn = logs[i]
	}
	return table, nil
}

func (a *Aggregator) checkWeights(symbols []string, weights []float64) error {
	seen := make(map[string]bool, len(symbols))
	for i, symbol := range symbols {
		if seen[symbol] {
			return &DuplicateSymbolError{Symbol: symbol}
		}
		seen[symbol] = true
		if math.IsNaN(weights[i]) || math.IsInf(weights[i], 0) {
			return &InvalidWeightError{Symbol: symbol, Weight: weights[i]}
		}
	}
	if a.convention == WeightsSumToOne {
		sum := floats.Sum(weights)
		if math.Abs(sum-1) > a.tolerance {
			return &WeightSumError{Sum: sum}
		}
	}
	return nil
}

func (a *Aggregator) lookup(symbols []string) ([]TimeSeries, error) {
	series := make([]TimeSeries, 0, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		s, ok := a.store.Get(symbol)
		if !ok {
			missing = append(missing, symbol)
			continue
		}
		series = append(series, s)
	}
	switch {
	case len(missing) == len(symbols):
		return nil, &AllSymbolsMissingError{Symbols: missing}
	case len(missing) > 0:
		return nil, &MissingSymbolError{Symbols: missing}
	}
	return series, nil
}
