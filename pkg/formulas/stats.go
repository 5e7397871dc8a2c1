// Package formulas provides shared financial calculations used across modules.
package formulas

import "math"

// Mean calculates the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev calculates the sample standard deviation (n-1 denominator).
// Returns 0 when fewer than 2 values are provided.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// CalculateReturns converts a price series into fractional period returns.
// A return is skipped (recorded as 0) when either endpoint is non-positive.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			returns[i-1] = 0
			continue
		}
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return returns
}

// AnnualizeWeeklyMean compounds a mean weekly return to an annual figure.
//
//	annual = (1 + weekly)^52 - 1
func AnnualizeWeeklyMean(weeklyMean float64) float64 {
	return math.Pow(1+weeklyMean, 52) - 1
}
