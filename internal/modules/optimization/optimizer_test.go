package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/advisor/internal/domain"
)

func TestOptimizeTwoAssets(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.12, 0.08}
	sigma := [][]float64{
		{0.04, 0.01},
		{0.01, 0.03},
	}
	target := 0.10

	weights, err := optimizer.Optimize(mu, sigma, target)
	require.NoError(t, err)
	require.Len(t, weights, 2)

	// With two assets and two equality constraints the solution is exact:
	// w solves mu'w = 0.10, sum = 1 -> w = [0.5, 0.5]
	assert.InDelta(t, 0.5, weights[0], 1e-9)
	assert.InDelta(t, 0.5, weights[1], 1e-9)
}

func TestOptimizeDiagonalCovariance(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	// Scenario: universe {A, B, C}
	mu := []float64{0.08, 0.12, 0.05}
	sigma := [][]float64{
		{0.04, 0, 0},
		{0, 0.09, 0},
		{0, 0, 0.02},
	}
	target := 0.09

	weights, err := optimizer.Optimize(mu, sigma, target)
	require.NoError(t, err)
	require.Len(t, weights, 3)

	sum := 0.0
	achieved := 0.0
	for i, w := range weights {
		assert.GreaterOrEqual(t, w, -WeightTolerance, "weights must be non-negative within tolerance")
		sum += w
		achieved += w * mu[i]
	}
	assert.InDelta(t, 1.0, sum, WeightTolerance, "weights must sum to 1")
	assert.InDelta(t, target, achieved, 1e-6, "return constraint must hold exactly")
}

func TestOptimizeEqualityConstraintsExact(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.04, 0.07, 0.11, 0.15}
	sigma := [][]float64{
		{0.020, 0.002, 0.001, 0.000},
		{0.002, 0.030, 0.004, 0.002},
		{0.001, 0.004, 0.050, 0.006},
		{0.000, 0.002, 0.006, 0.080},
	}

	for _, target := range []float64{0.05, 0.08, 0.12, 0.14} {
		weights, err := optimizer.Optimize(mu, sigma, target)
		require.NoError(t, err, "target %v", target)

		sum, achieved := 0.0, 0.0
		for i, w := range weights {
			assert.GreaterOrEqual(t, w, -WeightTolerance)
			sum += w
			achieved += w * mu[i]
		}
		assert.InDelta(t, 1.0, sum, WeightTolerance)
		assert.InDelta(t, target, achieved, 1e-6)
	}
}

func TestOptimizeActiveSetClampsNegatives(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	// A high target with two cheap low-return assets makes the pure
	// equality KKT solution short the first asset; the active set must
	// clamp it and re-solve.
	mu := []float64{0.01, 0.02, 0.15}
	sigma := [][]float64{
		{0.0001, 0, 0},
		{0, 0.0001, 0},
		{0, 0, 0.04},
	}
	target := 0.15

	weights, err := optimizer.Optimize(mu, sigma, target)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, weights[0], 1e-6)
	assert.InDelta(t, 0.0, weights[1], 1e-6)
	assert.InDelta(t, 1.0, weights[2], 1e-6)
}

func TestOptimizeInfeasibleTargetAboveMax(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.08, 0.12, 0.05}
	sigma := [][]float64{
		{0.04, 0, 0},
		{0, 0.09, 0},
		{0, 0, 0.02},
	}

	_, err := optimizer.Optimize(mu, sigma, 0.20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInfeasibleTarget))

	var itErr *domain.InfeasibleTargetError
	require.True(t, errors.As(err, &itErr))
	assert.InDelta(t, 0.12, itErr.MaxReturn, 1e-12)
	assert.InDelta(t, 0.20, itErr.Target, 1e-12)
}

func TestOptimizeInfeasibleTargetBelowMin(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.08, 0.12}
	sigma := [][]float64{
		{0.04, 0},
		{0, 0.09},
	}

	_, err := optimizer.Optimize(mu, sigma, 0.01)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInfeasibleTarget))
}

func TestOptimizeNonPSDCovariance(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.08, 0.10}
	// Negative eigenvalue: off-diagonal exceeds the geometric mean of the
	// diagonal entries.
	sigma := [][]float64{
		{0.01, 0.05},
		{0.05, 0.01},
	}

	_, err := optimizer.Optimize(mu, sigma, 0.09)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIllConditionedCovariance))

	var icErr *domain.IllConditionedCovarianceError
	require.True(t, errors.As(err, &icErr))
	assert.Equal(t, 2, icErr.Dim)
}

func TestVerifyReportsContractViolations(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.08, 0.12}

	err := optimizer.verify([]float64{0.6, 0.6}, mu, 0.10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errWeightContract))
	assert.False(t, errors.Is(err, domain.ErrIllConditionedCovariance),
		"a weight-sum violation is a solver failure, not a conditioning failure")
	assert.Contains(t, err.Error(), "sum")

	err = optimizer.verify([]float64{1.1, -0.1}, mu, 0.10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errWeightContract))
	assert.Contains(t, err.Error(), "below")

	assert.NoError(t, optimizer.verify([]float64{0.5, 0.5}, mu, 0.10))
}

func TestOptimizeBoundaryTarget(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	mu := []float64{0.08, 0.12}
	sigma := [][]float64{
		{0.04, 0},
		{0, 0.09},
	}

	// Target exactly at max(mu): all weight in the max-return asset.
	weights, err := optimizer.Optimize(mu, sigma, 0.12)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, weights[0], 1e-6)
	assert.InDelta(t, 1.0, weights[1], 1e-6)
}

func TestOptimizePrefersLowVariance(t *testing.T) {
	optimizer := NewOptimizer(zerolog.Nop())

	// Two assets with identical returns but different variances; a target
	// equal to that return leaves the split to the variance objective.
	mu := []float64{0.10, 0.10, 0.02}
	sigma := [][]float64{
		{0.09, 0, 0},
		{0, 0.01, 0},
		{0, 0, 0.04},
	}

	weights, err := optimizer.Optimize(mu, sigma, 0.10)
	require.NoError(t, err)
	assert.Greater(t, weights[1], weights[0], "lower-variance asset should get more weight")
	assert.True(t, math.Abs(weights[2]) < 1e-6, "asset below target should not be funded")
}
