package finance

import (
	"context"
	"math"
	"sort"

	"stockReturnsBot/internal/date"
)

// Source retrieves daily OHLCV bars for one symbol over the half-open range [start, end).
type Source interface {
	History(ctx context.Context, symbol string, start, end date.Date) ([]Bar, error)
}

// Bar is one trading day of a symbol.
type Bar struct {
	Date   date.Date
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Row is a Bar augmented with its one-day returns.
// Both returns are NaN on the first row of a series.
type Row struct {
	Bar
	PercentageChange float64 // arithmetic, Close[t]/Close[t-1]-1
	LogReturn        float64 // geometric, ln(1+PercentageChange)
}

// TimeSeries is the stored table of one symbol, ascending by date with unique dates.
type TimeSeries struct {
	Symbol string
	Start  date.Date
	End    date.Date
	Rows   []Row
}

// Len returns the number of rows.
func (s TimeSeries) Len() int { return len(s.Rows) }

// Dates returns the date index.
func (s TimeSeries) Dates() []date.Date {
	out := make([]date.Date, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Date
	}
	return out
}

// Closes returns the Close column.
func (s TimeSeries) Closes() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Close
	}
	return out
}

// At returns the row at day, if any.
func (s TimeSeries) At(day date.Date) (Row, bool) {
	i := sort.Search(len(s.Rows), func(i int) bool { return !s.Rows[i].Date.Before(day) })
	if i < len(s.Rows) && s.Rows[i].Date == day {
		return s.Rows[i], true
	}
	return Row{}, false
}

// Defined reports whether v holds a value. Undefined cells are NaN.
func Defined(v float64) bool { return !math.IsNaN(v) }

// yahooChartResp mirrors Yahoo v8 chart response (trimmed to needed fields)
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GmtOffset int    `json:"gmtoffset"`
				Timezone  string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// yahooSparkResp mirrors Yahoo v7 spark fallback (trimmed)
type yahooSparkResp struct {
	Spark struct {
		Result []struct {
			Symbol   string `json:"symbol"`
			Response []struct {
				Meta struct {
					GmtOffset int    `json:"gmtoffset"`
					Timezone  string `json:"exchangeTimezoneName"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"response"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"spark"`
}
