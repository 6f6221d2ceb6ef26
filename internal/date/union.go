package date

import "iter"

// Union returns an iterator over all unique dates of several ascending series, in
// chronological order. Each input must already be sorted without duplicates.
func Union(series ...[]Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		indexes := make([]int, len(series))
		for {
			var (
				m     Date
				found bool
			)
			for i, index := range indexes {
				if index >= len(series[i]) {
					continue
				}
				if on := series[i][index]; !found || on.Before(m) {
					m, found = on, true
				}
			}
			if !found {
				return
			}
			// consume every head equal to the min
			for i, index := range indexes {
				if index < len(series[i]) && series[i][index] == m {
					indexes[i]++
				}
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Range is the half-open interval [From, To).
type Range struct{ From, To Date }

// Contains reports whether d is in [From, To).
func (r Range) Contains(d Date) bool { return !d.Before(r.From) && d.Before(r.To) }

// Valid reports whether From is not after To.
func (r Range) Valid() bool { return !r.From.After(r.To) }

func (r Range) String() string { return r.From.String() + ".." + r.To.String() }
