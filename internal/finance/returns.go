package finance

import (
	"math"

	"stockReturnsBot/internal/date"
)

// newTimeSeries augments normalized bars with their one-day returns.
func newTimeSeries(symbol string, start, end date.Date, bars []Bar) TimeSeries {
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{Bar: b, PercentageChange: math.NaN(), LogReturn: math.NaN()}
		if i == 0 {
			continue
		}
		pct := b.Close/bars[i-1].Close - 1
		rows[i].PercentageChange = pct
		rows[i].LogReturn = math.Log(1 + pct)
	}
	return TimeSeries{Symbol: symbol, Start: start, End: end, Rows: rows}
}

// pctChange is the one-step arithmetic change of values; the first cell is NaN.
func pctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// logRatio is ln(values[t]/values[t-1]); the first cell is NaN.
func logRatio(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(values[i] / values[i-1])
	}
	return out
}
