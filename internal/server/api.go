package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"stockReturnsBot/internal/date"
	"stockReturnsBot/internal/finance"
)

// defaultLookback is the range used when a request gives no start.
const defaultLookback = 365

type rowDTO struct {
	Date             string   `json:"date"`
	Open             float64  `json:"open"`
	High             float64  `json:"high"`
	Low              float64  `json:"low"`
	Close            float64  `json:"close"`
	Volume           int64    `json:"volume"`
	PercentageChange *float64 `json:"percentage_change"`
	LogReturn        *float64 `json:"log_return"`
}

type seriesDTO struct {
	Symbol string   `json:"symbol"`
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Rows   []rowDTO `json:"rows"`
}

type portfolioRowDTO struct {
	Date        string     `json:"date"`
	Weighted    []*float64 `json:"weighted"`
	Combined    *float64   `json:"combined"`
	CombinedN   *float64   `json:"combined_n"`
	DailyReturn *float64   `json:"daily_return"`
	LogReturn   *float64   `json:"log_return"`
}

type summaryDTO struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	Days            int      `json:"days"`
	StartCombined   *float64 `json:"start_combined"`
	EndCombined     *float64 `json:"end_combined"`
	TotalReturn     *float64 `json:"total_return"`
	LastDailyReturn *float64 `json:"last_daily_return"`
	LastLogReturn   *float64 `json:"last_log_return"`
}

type portfolioDTO struct {
	Symbols []string          `json:"symbols"`
	Weights []float64         `json:"weights"`
	Summary summaryDTO        `json:"summary"`
	Rows    []portfolioRowDTO `json:"rows"`
}

// GET /api/series/{symbol}?start=&end=
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	rng, err := parseRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	store := s.newStore()
	if err := store.Fetch(r.Context(), []string{symbol}, rng.From, rng.To); err != nil {
		if failures := finance.FetchFailures(err); len(failures) > 0 {
			s.writeError(w, http.StatusNotFound, failures[0].Error(), []string{symbol})
			return
		}
		s.writeError(w, statusFor(err), err.Error(), nil)
		return
	}
	series, _ := store.Get(symbol)
	s.writeJSON(w, http.StatusOK, toSeriesDTO(series))
}

// GET /api/portfolio?symbols=A,B&weights=0.5,0.5&start=&end=[&format=csv]
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbols := splitList(q.Get("symbols"))
	for i := range symbols {
		symbols[i] = strings.ToUpper(symbols[i])
	}
	weights, err := parseWeights(q.Get("weights"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, finance.ErrNoSymbols.Error(), nil)
		return
	}
	if len(symbols) != len(weights) {
		err := &finance.ShapeMismatchError{Symbols: len(symbols), Weights: len(weights)}
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	store := s.newStore()
	if err := store.Fetch(r.Context(), symbols, rng.From, rng.To); err != nil && len(finance.FetchFailures(err)) == 0 {
		s.writeError(w, statusFor(err), err.Error(), nil)
		return
	}
	table, err := finance.NewAggregator(store, s.aggOpts...).Allocate(symbols, weights)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error(), missingSymbols(err))
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="portfolio.csv"`)
		if err := table.WriteCSV(w); err != nil {
			s.log.Error().Err(err).Msg("failed to write csv")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, toPortfolioDTO(table))
}

func (s *Server) newStore() *finance.DataStore {
	return finance.NewDataStore(s.src, s.log, s.storeOpts...)
}

// statusFor maps finance errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		shape   *finance.ShapeMismatchError
		dup     *finance.DuplicateSymbolError
		weight  *finance.InvalidWeightError
		sum     *finance.WeightSumError
		rng     *finance.InvalidRangeError
		missing *finance.MissingSymbolError
		all     *finance.AllSymbolsMissingError
	)
	switch {
	case errors.Is(err, finance.ErrNoSymbols),
		errors.As(err, &shape), errors.As(err, &dup), errors.As(err, &weight),
		errors.As(err, &sum), errors.As(err, &rng):
		return http.StatusBadRequest
	case errors.As(err, &all):
		return http.StatusNotFound
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func missingSymbols(err error) []string {
	var (
		missing *finance.MissingSymbolError
		all     *finance.AllSymbolsMissingError
	)
	switch {
	case errors.As(err, &missing):
		return missing.Symbols
	case errors.As(err, &all):
		return all.Symbols
	}
	return nil
}

// parseRange reads start and end. end defaults to tomorrow so today is included, start to
// a year before end.
func parseRange(r *http.Request) (date.Range, error) {
	q := r.URL.Query()
	rng := date.Range{To: date.Today().Add(1)}
	if v := q.Get("end"); v != "" {
		d, err := date.Parse(v)
		if err != nil {
			return rng, fmt.Errorf("invalid end: %w", err)
		}
		rng.To = d
	}
	rng.From = rng.To.Add(-defaultLookback)
	if v := q.Get("start"); v != "" {
		d, err := date.Parse(v)
		if err != nil {
			return rng, fmt.Errorf("invalid start: %w", err)
		}
		rng.From = d
	}
	if !rng.Valid() {
		return rng, &finance.InvalidRangeError{Start: rng.From, End: rng.To}
	}
	return rng, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseWeights(v string) ([]float64, error) {
	parts := splitList(v)
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q", p)
		}
		out[i] = f
	}
	return out, nil
}

func nullable(v float64) *float64 {
	if !finance.Defined(v) {
		return nil
	}
	return &v
}

func toSeriesDTO(s finance.TimeSeries) seriesDTO {
	out := seriesDTO{Symbol: s.Symbol, Start: s.Start.String(), End: s.End.String(), Rows: make([]rowDTO, len(s.Rows))}
	for i, r := range s.Rows {
		out.Rows[i] = rowDTO{
			Date:             r.Date.String(),
			Open:             r.Open,
			High:             r.High,
			Low:              r.Low,
			Close:            r.Close,
			Volume:           r.Volume,
			PercentageChange: nullable(r.PercentageChange),
			LogReturn:        nullable(r.LogReturn),
		}
	}
	return out
}

func toPortfolioDTO(t *finance.PortfolioTable) portfolioDTO {
	sum := t.Summary()
	out := portfolioDTO{
		Symbols: t.Symbols,
		Weights: t.Weights,
		Summary: summaryDTO{
			From:            sum.From.String(),
			To:              sum.To.String(),
			Days:            sum.Days,
			StartCombined:   nullable(sum.StartCombined),
			EndCombined:     nullable(sum.EndCombined),
			TotalReturn:     nullable(sum.TotalReturn),
			LastDailyReturn: nullable(sum.LastDailyReturn),
			LastLogReturn:   nullable(sum.LastLogReturn),
		},
		Rows: make([]portfolioRowDTO, len(t.Rows)),
	}
	for i, r := range t.Rows {
		weighted := make([]*float64, len(r.Weighted))
		for j, v := range r.Weighted {
			weighted[j] = nullable(v)
		}
		out.Rows[i] = portfolioRowDTO{
			Date:        r.Date.String(),
			Weighted:    weighted,
			Combined:    nullable(r.Combined),
			CombinedN:   nullable(r.CombinedN),
			DailyReturn: nullable(r.DailyReturn),
			LogReturn:   nullable(r.LogReturn),
		}
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, symbols []string) {
	body := map[string]any{"error": message}
	if len(symbols) > 0 {
		body["symbols"] = symbols
	}
	s.writeJSON(w, status, body)
}
