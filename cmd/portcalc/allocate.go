package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"stockReturnsBot/internal/date"
	"stockReturnsBot/internal/finance"
)

type allocateCmd struct {
	start, end string
	symbols    string
	weights    string
	unit       bool
	summary    bool

	out  io.Writer
	open sourceOpener
}

func (*allocateCmd) Name() string     { return "allocate" }
func (*allocateCmd) Synopsis() string { return "print the weighted portfolio table of several symbols" }
func (*allocateCmd) Usage() string {
	return `portcalc allocate -start <date> [-end <date>] -symbols A,B -weights 0.5,0.5 [-unit-weights] [-summary]

  Multiplies each symbol's daily close by its weight, sums them per day into Combined and
  prints Combined_N, Daily_Return and Log_Return derived from it, as CSV.
`
}

func (c *allocateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&c.end, "end", "", "day after the last one, YYYY-MM-DD (defaults to tomorrow)")
	f.StringVar(&c.symbols, "symbols", "", "comma separated symbols")
	f.StringVar(&c.weights, "weights", "", "comma separated weights, one per symbol")
	f.BoolVar(&c.unit, "unit-weights", false, "require weights to sum to one")
	f.BoolVar(&c.summary, "summary", false, "print the headline figures instead of the table")
}

func (c *allocateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rng, err := parseRange(c.start, c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	symbols := upper(splitList(c.symbols))
	weights, err := parseWeights(c.weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if len(symbols) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %v\n", finance.ErrNoSymbols)
		return subcommands.ExitUsageError
	}
	if len(symbols) != len(weights) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", &finance.ShapeMismatchError{Symbols: len(symbols), Weights: len(weights)})
		return subcommands.ExitUsageError
	}

	store, closeSrc, err := fetchStore(ctx, c.open, symbols, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeSrc()

	var opts []finance.AggregatorOption
	if c.unit {
		opts = append(opts, finance.WithWeightConvention(finance.WeightsSumToOne))
	}
	table, err := finance.NewAggregator(store, opts...).Allocate(symbols, weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.summary {
		s := table.Summary()
		fmt.Fprintf(c.out, "period\t%s..%s (%d days)\n", s.From, s.To, s.Days)
		fmt.Fprintf(c.out, "combined\t%g -> %g\n", s.StartCombined, s.EndCombined)
		fmt.Fprintf(c.out, "total_return\t%.6f\n", s.TotalReturn)
		fmt.Fprintf(c.out, "last_daily_return\t%.6f\n", s.LastDailyReturn)
		fmt.Fprintf(c.out, "last_log_return\t%.6f\n", s.LastLogReturn)
		return subcommands.ExitSuccess
	}
	if err := table.WriteCSV(c.out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parseRange(start, end string) (date.Range, error) {
	if start == "" {
		return date.Range{}, fmt.Errorf("-start is required")
	}
	var (
		rng date.Range
		err error
	)
	if rng.From, err = date.Parse(start); err != nil {
		return rng, err
	}
	rng.To = date.Today().Add(1)
	if end != "" {
		if rng.To, err = date.Parse(end); err != nil {
			return rng, err
		}
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

func upper(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func parseWeights(v string) ([]float64, error) {
	parts := splitList(v)
	out := make([]float64, len(parts))
	for i, p := range parts {
		w, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q", p)
		}
		out[i] = w
	}
	return out, nil
}
