package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"stockReturnsBot/internal/date"
	"stockReturnsBot/internal/finance"
)

type seriesCmd struct {
	start, end string
	dir        string

	out  io.Writer
	open sourceOpener
}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "print daily bars with percentage and log returns" }
func (*seriesCmd) Usage() string {
	return `portcalc series -start <date> [-end <date>] [-o <dir>] SYMBOL...

  Downloads the daily bars of each symbol over [start, end) and prints them as CSV
  with PercentageChange and Log_Return columns. With -o, writes one SYMBOL.csv per symbol.
`
}

func (c *seriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&c.end, "end", "", "day after the last one, YYYY-MM-DD (defaults to tomorrow)")
	f.StringVar(&c.dir, "o", "", "output directory")
}

func (c *seriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rng, err := parseRange(c.start, c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one symbol is required")
		return subcommands.ExitUsageError
	}
	symbols := upper(f.Args())

	store, closeSrc, err := fetchStore(ctx, c.open, symbols, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeSrc()

	for i, symbol := range symbols {
		s, ok := store.Get(symbol)
		if !ok {
			continue
		}
		if c.dir != "" {
			if err := writeFile(filepath.Join(c.dir, symbol+".csv"), s.WriteCSV); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
			continue
		}
		if len(symbols) > 1 {
			if i > 0 {
				fmt.Fprintln(c.out)
			}
			fmt.Fprintf(c.out, "# %s\n", symbol)
		}
		if err := s.WriteCSV(c.out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	if len(store.Symbols()) < len(symbols) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// fetchStore fetches symbols into a new DataStore and reports skipped symbols on stderr.
// It fails only when nothing could be fetched.
func fetchStore(ctx context.Context, open sourceOpener, symbols []string, rng date.Range) (*finance.DataStore, func() error, error) {
	if open == nil {
		open = openSource
	}
	log := newLogger()
	src, closeSrc, err := open(log)
	if err != nil {
		return nil, nil, err
	}
	store := finance.NewDataStore(src, log, finance.WithWorkers(*workers))
	err = store.Fetch(ctx, symbols, rng.From, rng.To)
	failures := finance.FetchFailures(err)
	if err != nil && len(failures) == 0 {
		closeSrc()
		return nil, nil, err
	}
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "skipped %s: %v\n", f.Symbol, f.Err)
	}
	return store, closeSrc, nil
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
