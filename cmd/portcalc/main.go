// Command portcalc computes daily returns and weighted portfolio tables from the command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"stockReturnsBot/internal/finance"
	"stockReturnsBot/internal/logger"
	"stockReturnsBot/internal/storage"
)

var (
	cachePath = flag.String("cache", "", "sqlite file caching daily bars; empty disables the cache")
	cacheTTL  = flag.Duration("cache-ttl", 12*time.Hour, "how long cached ranges are served without refetching")
	logLevel  = flag.String("log-level", "warn", "debug, info, warn or error")
	workers   = flag.Int("workers", 4, "concurrent symbol downloads")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&seriesCmd{out: os.Stdout}, "")
	commander.Register(&allocateCmd{out: os.Stdout}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// sourceOpener returns the Source commands read from and a function releasing it.
type sourceOpener func(log zerolog.Logger) (finance.Source, func() error, error)

func openSource(log zerolog.Logger) (finance.Source, func() error, error) {
	yahoo := finance.NewYahooSource(log)
	if *cachePath == "" {
		return yahoo, func() error { return nil }, nil
	}
	db, err := storage.OpenSQLite("file:" + *cachePath)
	if err != nil {
		return nil, nil, err
	}
	if err := storage.InitSchema(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return storage.NewBarCache(db, yahoo, *cacheTTL, log), db.Close, nil
}

func newLogger() zerolog.Logger {
	return logger.New(logger.Config{Level: *logLevel, Output: os.Stderr, Pretty: true})
}
