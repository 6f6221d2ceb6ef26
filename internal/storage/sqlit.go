package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"stockReturnsBot/internal/date"
	"stockReturnsBot/internal/finance"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

func OpenSQLite(dsn string) (DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises writes anyway
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(db DB) error {
	_, err := db.ExecContext(context.Background(), `
	CREATE TABLE IF NOT EXISTS bars(
		symbol TEXT NOT NULL, day TEXT NOT NULL,
		open REAL, high REAL, low REAL, close REAL NOT NULL, volume INTEGER,
		PRIMARY KEY(symbol, day)
	);
	CREATE TABLE IF NOT EXISTS fetches(
		symbol TEXT NOT NULL, start_day TEXT NOT NULL, end_day TEXT NOT NULL, fetched_at INTEGER NOT NULL,
		PRIMARY KEY(symbol, start_day, end_day)
	)`)
	return err
}

// BarCache is a finance.Source that keeps the daily bars of a wrapped Source in sqlite.
// A range is served from the database when an earlier fetch covering it is younger than ttl.
type BarCache struct {
	db  DB
	src finance.Source
	ttl time.Duration
	log zerolog.Logger
	now func() time.Time
}

func NewBarCache(db DB, src finance.Source, ttl time.Duration, log zerolog.Logger) *BarCache {
	return &BarCache{
		db:  db,
		src: src,
		ttl: ttl,
		log: log.With().Str("component", "bar_cache").Logger(),
		now: time.Now,
	}
}

// History returns the bars of symbol over [start, end), from the database when fresh.
// When the wrapped source fails and a stale covering fetch exists, the stale bars are returned.
func (c *BarCache) History(ctx context.Context, symbol string, start, end date.Date) ([]finance.Bar, error) {
	fetchedAt, covered, err := c.coveringFetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if covered && c.now().Sub(fetchedAt) < c.ttl {
		c.log.Debug().Str("symbol", symbol).Stringer("start", start).Stringer("end", end).Msg("cache hit")
		return c.loadBars(ctx, symbol, start, end)
	}

	bars, srcErr := c.src.History(ctx, symbol, start, end)
	if srcErr != nil {
		if covered && ctx.Err() == nil {
			c.log.Warn().Err(srcErr).Str("symbol", symbol).Time("fetched_at", fetchedAt).Msg("source failed, serving stale bars")
			return c.loadBars(ctx, symbol, start, end)
		}
		return nil, srcErr
	}
	if err := c.storeBars(ctx, symbol, start, end, bars); err != nil {
		// the fetched bars are still good
		c.log.Error().Err(err).Str("symbol", symbol).Msg("failed to cache bars")
	}
	return bars, nil
}

func (c *BarCache) coveringFetch(ctx context.Context, symbol string, start, end date.Date) (time.Time, bool, error) {
	var ts int64
	err := c.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM fetches WHERE symbol=? AND start_day<=? AND end_day>=? ORDER BY fetched_at DESC LIMIT 1`,
		symbol, start.String(), end.String()).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query fetches: %w", err)
	}
	return time.Unix(ts, 0), true, nil
}

func (c *BarCache) loadBars(ctx context.Context, symbol string, start, end date.Date) ([]finance.Bar, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT day, open, high, low, close, volume FROM bars WHERE symbol=? AND day>=? AND day<? ORDER BY day ASC`,
		symbol, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()
	var out []finance.Bar
	for rows.Next() {
		var (
			day string
			b   finance.Bar
		)
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if b.Date, err = date.Parse(day); err != nil {
			return nil, fmt.Errorf("bad cached day %q: %w", day, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// storeBars replaces the cached bars of [start, end) and records the fetch, in one transaction.
func (c *BarCache) storeBars(ctx context.Context, symbol string, start, end date.Date, bars []finance.Bar) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE symbol=? AND day>=? AND day<?`,
		symbol, start.String(), end.String()); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO bars(symbol,day,open,high,low,close,volume) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range bars {
		if b.Date.Before(start) || !b.Date.Before(end) || math.IsNaN(b.Close) {
			continue
		}
		if _, err := stmt.ExecContext(ctx, symbol, b.Date.String(),
			finite(b.Open), finite(b.High), finite(b.Low), b.Close, b.Volume); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO fetches(symbol,start_day,end_day,fetched_at) VALUES(?,?,?,?)`,
		symbol, start.String(), end.String(), c.now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
