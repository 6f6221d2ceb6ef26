package finance

import (
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"

	"stockReturnsBot/internal/date"
)

// PortfolioRow is one date of a PortfolioTable. Weighted holds one cell per symbol, NaN when
// the symbol has no close that day.
type PortfolioRow struct {
	Date        date.Date
	Weighted    []float64
	Combined    float64
	CombinedN   float64
	DailyReturn float64
	LogReturn   float64
}

// PortfolioTable is the result of an allocation, ascending by date.
type PortfolioTable struct {
	Symbols []string
	Weights []float64
	Rows    []PortfolioRow
}

// Len returns the number of rows.
func (t *PortfolioTable) Len() int { return len(t.Rows) }

// Column returns the weighted close column of symbol, or nil if the symbol is not allocated.
func (t *PortfolioTable) Column(symbol string) []float64 {
	i := slices.Index(t.Symbols, symbol)
	if i < 0 {
		return nil
	}
	return t.column(func(r PortfolioRow) float64 { return r.Weighted[i] })
}

func (t *PortfolioTable) Dates() []date.Date {
	out := make([]date.Date, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Date
	}
	return out
}

func (t *PortfolioTable) Combined() []float64 {
	return t.column(func(r PortfolioRow) float64 { return r.Combined })
}

func (t *PortfolioTable) CombinedN() []float64 {
	return t.column(func(r PortfolioRow) float64 { return r.CombinedN })
}

func (t *PortfolioTable) DailyReturns() []float64 {
	return t.column(func(r PortfolioRow) float64 { return r.DailyReturn })
}

func (t *PortfolioTable) LogReturns() []float64 {
	return t.column(func(r PortfolioRow) float64 { return r.LogReturn })
}

func (t *PortfolioTable) column(f func(PortfolioRow) float64) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = f(r)
	}
	return out
}

// Summary condenses a table into its headline figures.
type Summary struct {
	From, To        date.Date
	Days            int
	StartCombined   float64
	EndCombined     float64
	TotalReturn     float64 // CombinedN at the last date minus one
	LastDailyReturn float64
	LastLogReturn   float64
}

// Summary returns the headline figures of t. The zero Summary is returned for an empty table.
func (t *PortfolioTable) Summary() Summary {
	if len(t.Rows) == 0 {
		return Summary{}
	}
	first, last := t.Rows[0], t.Rows[len(t.Rows)-1]
	return Summary{
		From:            first.Date,
		To:              last.Date,
		Days:            len(t.Rows),
		StartCombined:   first.Combined,
		EndCombined:     last.Combined,
		TotalReturn:     last.CombinedN - 1,
		LastDailyReturn: last.DailyReturn,
		LastLogReturn:   last.LogReturn,
	}
}

// WriteCSV writes the table with one column per symbol followed by the combined columns.
// Undefined cells are left empty.
func (t *PortfolioTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Date"}, t.Symbols...)
	header = append(header, "Combined", "Combined_N", "Daily_Return", "Log_Return")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.Date.String())
		for _, v := range r.Weighted {
			rec = append(rec, ftoa(v))
		}
		rec = append(rec, ftoa(r.Combined), ftoa(r.CombinedN), ftoa(r.DailyReturn), ftoa(r.LogReturn))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the series rows. Undefined returns are left empty.
func (s TimeSeries) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume", "PercentageChange", "Log_Return"}); err != nil {
		return err
	}
	for _, r := range s.Rows {
		rec := []string{
			r.Date.String(),
			ftoa(r.Open), ftoa(r.High), ftoa(r.Low), ftoa(r.Close),
			strconv.FormatInt(r.Volume, 10),
			ftoa(r.PercentageChange), ftoa(r.LogReturn),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
