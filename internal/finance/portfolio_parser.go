package finance

import (
	"fmt"
	"strconv"
	"strings"

	"stockReturnsBot/internal/date"
)

// Allocation is a parsed portfolio request.
type Allocation struct {
	Symbols []string
	Weights []float64
	Range   date.Range
	// HasRange is false when no dates were given and the stored series must be used as is.
	HasRange bool
}

// ParseAllocation parses a weighted portfolio command string.
// Format: /port SPY 0.5 AAPL 0.25 [2024-01-01 2024-07-01]
//
// Weights are multipliers of each close; negative weights are accepted. Whether they must
// sum to one is decided by the Aggregator, not here.
func ParseAllocation(input string) (Allocation, error) {
	parts := strings.Fields(trimCommand(input, "/port"))

	var a Allocation
	if r, rest, ok, err := trailingRange(parts); err != nil {
		return a, err
	} else if ok {
		a.Range, a.HasRange, parts = r, true, rest
	}

	if len(parts) < 2 {
		return a, fmt.Errorf("insufficient arguments: need at least one symbol and weight")
	}
	if len(parts)%2 != 0 {
		return a, fmt.Errorf("invalid format: each symbol must have a weight")
	}
	seen := make(map[string]bool)
	for i := 0; i < len(parts); i += 2 {
		symbol := strings.ToUpper(strings.TrimSpace(parts[i]))
		weightStr := strings.TrimSpace(parts[i+1])

		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			return a, fmt.Errorf("invalid weight '%s' for symbol %s: %w", weightStr, symbol, err)
		}
		if seen[symbol] {
			return a, fmt.Errorf("duplicate symbol: %s", symbol)
		}
		seen[symbol] = true

		a.Symbols = append(a.Symbols, symbol)
		a.Weights = append(a.Weights, weight)
	}
	return a, nil
}

// ParseFetch parses "S1 S2 ... START END" into deduplicated upper-case symbols and a range.
func ParseFetch(input string) ([]string, date.Range, error) {
	parts := strings.Fields(trimCommand(input, "/fetch"))
	r, rest, ok, err := trailingRange(parts)
	if err != nil {
		return nil, date.Range{}, err
	}
	if !ok {
		return nil, date.Range{}, fmt.Errorf("missing date range: expected START END in YYYY-MM-DD")
	}
	symbols := normalizeSymbols(rest)
	if len(symbols) == 0 {
		return nil, date.Range{}, ErrNoSymbols
	}
	return symbols, r, nil
}

// normalizeSymbols upper-cases and dedupes symbols, keeping the first occurrence order.
func normalizeSymbols(raw []string) []string {
	seen := map[string]struct{}{}
	syms := make([]string, 0, len(raw))
	for _, s := range raw {
		su := strings.ToUpper(strings.TrimSpace(s))
		if su == "" {
			continue
		}
		if _, ok := seen[su]; ok {
			continue
		}
		seen[su] = struct{}{}
		syms = append(syms, su)
	}
	return syms
}

// trailingRange pops "START END" from the end of parts when both look like dates.
func trailingRange(parts []string) (date.Range, []string, bool, error) {
	if len(parts) < 2 || !looksLikeDate(parts[len(parts)-1]) || !looksLikeDate(parts[len(parts)-2]) {
		return date.Range{}, parts, false, nil
	}
	from, err := date.Parse(parts[len(parts)-2])
	if err != nil {
		return date.Range{}, parts, false, err
	}
	to, err := date.Parse(parts[len(parts)-1])
	if err != nil {
		return date.Range{}, parts, false, err
	}
	r := date.Range{From: from, To: to}
	if !r.Valid() {
		return r, parts, false, &InvalidRangeError{Start: from, End: to}
	}
	return r, parts[:len(parts)-2], true, nil
}

func looksLikeDate(s string) bool { return strings.Count(s, "-") == 2 }

// trimCommand removes the command and its optional @botname suffix.
func trimCommand(input, cmd string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, cmd) {
		return input
	}
	input = input[len(cmd):]
	if strings.HasPrefix(input, "@") {
		if i := strings.IndexAny(input, " \t"); i >= 0 {
			input = input[i:]
		} else {
			input = ""
		}
	}
	return strings.TrimSpace(input)
}
