package finance

import (
	"context"
	"errors"
	"sync"

	"stockReturnsBot/internal/date"
)

// fakeSource serves canned closes per symbol and records the requests it saw.
type fakeSource struct {
	mu     sync.Mutex
	bars   map[string][]Bar
	errs   map[string]error
	calls  []string
	blocks chan struct{} // when set, History waits on it or on ctx
}

func newFakeSource() *fakeSource {
	return &fakeSource{bars: map[string][]Bar{}, errs: map[string]error{}}
}

// withCloses registers closes on consecutive days starting at from.
func (f *fakeSource) withCloses(symbol string, from string, closes ...float64) *fakeSource {
	on := date.MustParse(from)
	for i, c := range closes {
		f.bars[symbol] = append(f.bars[symbol], Bar{Date: on.Add(i), Open: c, High: c, Low: c, Close: c, Volume: 100})
	}
	return f
}

func (f *fakeSource) withDays(symbol string, days []string, closes ...float64) *fakeSource {
	for i, c := range closes {
		f.bars[symbol] = append(f.bars[symbol], Bar{Date: date.MustParse(days[i]), Close: c})
	}
	return f
}

func (f *fakeSource) failing(symbol string, err error) *fakeSource {
	f.errs[symbol] = err
	return f
}

func (f *fakeSource) History(ctx context.Context, symbol string, start, end date.Date) ([]Bar, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if f.blocks != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.blocks:
		}
	}
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, errors.New("symbol not found")
	}
	return append([]Bar(nil), bars...), nil
}

// mapReader is a SeriesReader over a plain map.
type mapReader map[string]TimeSeries

func (m mapReader) Get(symbol string) (TimeSeries, bool) {
	s, ok := m[symbol]
	return s, ok
}

// seriesOf builds a stored series from closes on the given days.
func seriesOf(symbol string, days []string, closes ...float64) TimeSeries {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Date: date.MustParse(days[i]), Close: c}
	}
	return newTimeSeries(symbol, bars[0].Date, bars[len(bars)-1].Date.Add(1), bars)
}
