package finance

import (
	"errors"
	"fmt"
	"strings"

	"stockReturnsBot/internal/date"
)

var (
	// ErrNoSymbols is returned when an operation is given an empty symbol list.
	ErrNoSymbols = errors.New("no symbols provided")
	// ErrNoData is wrapped by SymbolFetchError when the source returned no usable bars.
	ErrNoData = errors.New("no data")
)

// SymbolFetchError reports that one symbol could not be retrieved. The other symbols of the
// same Fetch are unaffected.
type SymbolFetchError struct {
	Symbol string
	Err    error
}

func (e *SymbolFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *SymbolFetchError) Unwrap() error { return e.Err }

// FetchFailures extracts every SymbolFetchError from an error returned by Fetch.
func FetchFailures(err error) []*SymbolFetchError {
	if err == nil {
		return nil
	}
	var out []*SymbolFetchError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, FetchFailures(e)...)
		}
		return out
	}
	var sfe *SymbolFetchError
	if errors.As(err, &sfe) {
		out = append(out, sfe)
	}
	return out
}

// InvalidRangeError is returned when start is after end.
type InvalidRangeError struct {
	Start, End date.Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

// ShapeMismatchError is returned when symbols and weights have different lengths.
type ShapeMismatchError struct {
	Symbols, Weights int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("symbols and weights length mismatch: %d vs %d", e.Symbols, e.Weights)
}

// DuplicateSymbolError is returned when a symbol appears twice in one allocation.
type DuplicateSymbolError struct {
	Symbol string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate symbol: %s", e.Symbol)
}

// InvalidWeightError is returned for NaN or infinite weights.
type InvalidWeightError struct {
	Symbol string
	Weight float64
}

func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("invalid weight %v for symbol %s", e.Weight, e.Symbol)
}

// WeightSumError is returned when weights must sum to one and do not.
type WeightSumError struct {
	Sum float64
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("weights sum to %g, want 1", e.Sum)
}

// MissingSymbolError is returned when some, but not all, requested symbols have no stored series.
type MissingSymbolError struct {
	Symbols []string
}

func (e *MissingSymbolError) Error() string {
	return "no data for symbol(s): " + strings.Join(e.Symbols, ", ")
}

// AllSymbolsMissingError is returned when none of the requested symbols has a stored series.
type AllSymbolsMissingError struct {
	Symbols []string
}

func (e *AllSymbolsMissingError) Error() string {
	return "no data for any requested symbol: " + strings.Join(e.Symbols, ", ")
}
