package formulas

import (
	"github.com/markcheno/go-talib"
)

// Momentum calculates the fractional rate of change over the given number of
// periods, using the most recent value of the series.
//
// Args:
//
//	closes: Array of closing prices (oldest first)
//	periods: Lookback length (e.g. 26 for 6-month momentum on weekly data)
//
// Returns:
//
//	Fractional change (0.10 = +10%) or nil if insufficient data
func Momentum(closes []float64, periods int) *float64 {
	if len(closes) < periods+1 {
		return nil
	}

	// talib.Roc returns percentage change; convert to fraction
	roc := talib.Roc(closes, periods)
	if len(roc) == 0 {
		return nil
	}

	last := roc[len(roc)-1]
	if isNaN(last) {
		return nil
	}
	result := last / 100.0
	return &result
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
