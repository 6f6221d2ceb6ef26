package finance

import (
	"math"
	"sort"

	"stockReturnsBot/internal/date"
)

// normalizeBars returns the bars inside [start, end) sorted by date. Bars sharing a date are
// collapsed, the later one in input order wins. Bars with a NaN or non-positive close are
// dropped: Yahoo encodes missing sessions as null, which decodes to zero.
func normalizeBars(bars []Bar, start, end date.Date) []Bar {
	r := date.Range{From: start, To: end}
	byDay := make(map[date.Date]int, len(bars))
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if !r.Contains(b.Date) {
			continue
		}
		if math.IsNaN(b.Close) || b.Close <= 0 {
			continue
		}
		if i, ok := byDay[b.Date]; ok {
			out[i] = b
			continue
		}
		byDay[b.Date] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
