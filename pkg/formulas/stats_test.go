package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "empty", values: nil, expected: 0},
		{name: "single value", values: []float64{0.05}, expected: 0.05},
		{name: "mixed signs", values: []float64{0.02, -0.01, 0.05, -0.02}, expected: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Mean(tt.values), 1e-12)
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "empty", values: nil, expected: 0},
		{name: "single value", values: []float64{0.05}, expected: 0},
		{name: "constant series", values: []float64{0.03, 0.03, 0.03}, expected: 0},
		// Sample variance of {2,4,4,4,5,5,7,9} with n-1 is 32/7
		{name: "known series", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: math.Sqrt(32.0 / 7.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StdDev(tt.values), 1e-12)
		})
	}
}

func TestCalculateReturns(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, CalculateReturns(nil))
		assert.Nil(t, CalculateReturns([]float64{100}))
	})

	t.Run("fractional returns", func(t *testing.T) {
		returns := CalculateReturns([]float64{100, 110, 99})
		require.Len(t, returns, 2)
		assert.InDelta(t, 0.10, returns[0], 1e-12)
		assert.InDelta(t, -0.10, returns[1], 1e-12)
	})

	t.Run("non-positive endpoints recorded as zero", func(t *testing.T) {
		returns := CalculateReturns([]float64{100, 0, 110, 121})
		require.Len(t, returns, 3)
		assert.Zero(t, returns[0])
		assert.Zero(t, returns[1])
		assert.InDelta(t, 0.10, returns[2], 1e-12)
	})
}

func TestAnnualizeWeeklyMean(t *testing.T) {
	assert.Zero(t, AnnualizeWeeklyMean(0))

	// 0.1% weekly compounds to (1.001)^52 - 1, about 5.34% annually
	assert.InDelta(t, math.Pow(1.001, 52)-1, AnnualizeWeeklyMean(0.001), 1e-12)

	// Compounding, not linear scaling: the annual figure exceeds 52x the
	// weekly mean for any positive mean.
	assert.Greater(t, AnnualizeWeeklyMean(0.005), 52*0.005)
}

func TestMomentum(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		closes := []float64{100, 101, 102}
		assert.Nil(t, Momentum(closes, 3))
	})

	t.Run("fractional rate of change", func(t *testing.T) {
		closes := make([]float64, 27)
		for i := range closes {
			closes[i] = 100 * math.Pow(1.01, float64(i))
		}

		mom := Momentum(closes, 26)
		require.NotNil(t, mom)
		assert.InDelta(t, math.Pow(1.01, 26)-1, *mom, 1e-9)
	})
}
