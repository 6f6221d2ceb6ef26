package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockReturnsBot/internal/date"
)

var defaultYahooBaseURLs = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

var defaultBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

// YahooSource is a Source backed by the Yahoo Finance chart API.
type YahooSource struct {
	client   *http.Client
	baseURLs []string
	backoffs []time.Duration
	log      zerolog.Logger
}

// YahooOption configures a YahooSource.
type YahooOption func(*YahooSource)

func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *YahooSource) { y.client = c }
}

// WithBaseURLs replaces the rotated Yahoo hosts, e.g. with a test server.
func WithBaseURLs(urls ...string) YahooOption {
	return func(y *YahooSource) { y.baseURLs = urls }
}

// WithBackoffs sets the pauses between retry rounds. Its length is the number of retries.
func WithBackoffs(b ...time.Duration) YahooOption {
	return func(y *YahooSource) { y.backoffs = b }
}

// NewYahooSource returns a Source querying Yahoo Finance.
func NewYahooSource(log zerolog.Logger, opts ...YahooOption) *YahooSource {
	y := &YahooSource{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURLs: defaultYahooBaseURLs,
		backoffs: defaultBackoffs,
		log:      log.With().Str("client", "yahoo").Logger(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// History returns the daily bars of symbol over [start, end). It falls back to the spark
// endpoint, which only carries closes, when the chart endpoint keeps failing.
func (y *YahooSource) History(ctx context.Context, symbol string, start, end date.Date) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("empty symbol")
	}
	params := url.Values{}
	params.Set("period1", fmt.Sprint(start.Unix()))
	params.Set("period2", fmt.Sprint(end.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div,splits")

	var yc yahooChartResp
	lastErr := y.getJSON(ctx, symbol, "/v8/finance/chart/"+url.PathEscape(symbol)+"?"+params.Encode(), &yc)
	if lastErr == nil {
		bars, err := chartBars(&yc)
		if err == nil {
			return bars, nil
		}
		lastErr = err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(lastErr, errUnknownSymbol) {
		return nil, lastErr
	}

	y.log.Debug().Err(lastErr).Str("symbol", symbol).Msg("chart failed, trying spark")
	params.Set("symbols", symbol)
	params.Del("events")
	var sp yahooSparkResp
	if err := y.getJSON(ctx, symbol, "/v7/finance/spark?"+params.Encode(), &sp); err != nil {
		return nil, fmt.Errorf("yahoo chart: %v; spark: %w", lastErr, err)
	}
	bars, err := sparkBars(&sp)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart: %v; spark: %w", lastErr, err)
	}
	return bars, nil
}

// getJSON rotates over hosts and retry rounds until one answer decodes into out.
func (y *YahooSource) getJSON(ctx context.Context, symbol, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < len(y.backoffs)+1; attempt++ {
		for _, base := range y.baseURLs {
			lastErr = y.getOnce(ctx, symbol, base+path, out)
			if lastErr == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(lastErr, errUnknownSymbol) {
				return lastErr
			}
			y.log.Debug().Err(lastErr).Str("symbol", symbol).Int("attempt", attempt).Msg("yahoo request failed")
		}
		if attempt < len(y.backoffs) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(y.backoffs[attempt]):
			}
		}
	}
	return lastErr
}

// chartBars converts a chart response into bars dated in the exchange's local time.
func chartBars(yc *yahooChartResp) ([]Bar, error) {
	if yc.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %v", yc.Chart.Error)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	res := yc.Chart.Result[0]
	q := res.Indicators.Quote[0]
	loc := exchangeLocation(res.Meta.GmtOffset, res.Meta.Timezone)
	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		bars = append(bars, Bar{
			Date:   date.FromTime(time.Unix(ts, 0).In(loc)),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		})
	}
	return bars, nil
}

func sparkBars(sp *yahooSparkResp) ([]Bar, error) {
	if sp.Spark.Error != nil {
		return nil, fmt.Errorf("yahoo spark error: %v", sp.Spark.Error)
	}
	if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
		return nil, ErrNoData
	}
	res := sp.Spark.Result[0].Response[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	closes := res.Indicators.Quote[0].Close
	loc := exchangeLocation(res.Meta.GmtOffset, res.Meta.Timezone)
	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		bars = append(bars, Bar{
			Date:  date.FromTime(time.Unix(ts, 0).In(loc)),
			Close: at(closes, i),
		})
	}
	return bars, nil
}

// at returns xs[i] or zero when the column is shorter than the timestamps.
func at[T float64 | int64](xs []T, i int) T {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}
