package features

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/modules/marginal"
)

func TestBuildColumnOrder(t *testing.T) {
	assembler := NewAssembler(zerolog.Nop())

	marginalMap := map[string]marginal.Metrics{
		"AAPL": {DeltaSharpe: 0.01, DeltaCvar: 0.002},
	}
	fundamentals := map[string]domain.FundamentalRow{
		"AAPL": {Beta: 1.2, DivYield: 0.005, LogCap: 28.3, Mom6: 0.15, Mom12: 0.30},
	}

	matrix := assembler.Build([]string{"AAPL"}, marginalMap, fundamentals, 0.09)
	require.Len(t, matrix, 1)
	require.Len(t, matrix[0], 8)

	// [deltaSharpe, deltaCvar, mom6, mom12, beta, divYield, logCap, targetReturn]
	assert.Equal(t, 0.01, matrix[0][0])
	assert.Equal(t, 0.002, matrix[0][1])
	assert.Equal(t, 0.15, matrix[0][2])
	assert.Equal(t, 0.30, matrix[0][3])
	assert.Equal(t, 1.2, matrix[0][4])
	assert.Equal(t, 0.005, matrix[0][5])
	assert.Equal(t, 28.3, matrix[0][6])
	assert.Equal(t, 0.09, matrix[0][7])
}

func TestBuildMissingDataDefaultsToZero(t *testing.T) {
	assembler := NewAssembler(zerolog.Nop())

	// No marginal metrics, no fundamentals for either candidate
	matrix := assembler.Build([]string{"X", "Y"}, nil, nil, 0.11)
	require.Len(t, matrix, 2)

	for _, row := range matrix {
		require.Len(t, row, 8)
		for col := 0; col < 7; col++ {
			assert.Equal(t, 0.0, row[col])
		}
		assert.Equal(t, 0.11, row[7], "target return is still broadcast")
	}
}

func TestBuildSanitizesNaN(t *testing.T) {
	assembler := NewAssembler(zerolog.Nop())

	marginalMap := map[string]marginal.Metrics{
		"X": {DeltaSharpe: math.NaN(), DeltaCvar: math.Inf(1)},
	}

	matrix := assembler.Build([]string{"X"}, marginalMap, nil, 0.08)
	require.Len(t, matrix, 1)
	assert.Equal(t, 0.0, matrix[0][0])
	assert.Equal(t, 0.0, matrix[0][1])
}

func TestBuildRowOrderMatchesCandidates(t *testing.T) {
	assembler := NewAssembler(zerolog.Nop())

	fundamentals := map[string]domain.FundamentalRow{
		"A": {Beta: 1.0},
		"B": {Beta: 2.0},
		"C": {Beta: 3.0},
	}

	matrix := assembler.Build([]string{"C", "A", "B"}, nil, fundamentals, 0.0)
	require.Len(t, matrix, 3)
	assert.Equal(t, 3.0, matrix[0][4])
	assert.Equal(t, 1.0, matrix[1][4])
	assert.Equal(t, 2.0, matrix[2][4])
}

func TestSchemaValidate(t *testing.T) {
	schema := CurrentSchema()

	assert.Equal(t, 1, schema.Version)
	assert.Len(t, schema.Columns, 8)

	good := [][]float64{make([]float64, 8)}
	assert.NoError(t, schema.Validate(good))

	bad := [][]float64{make([]float64, 7)}
	err := schema.Validate(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFeatureDimensionMismatch))

	var fdErr *domain.FeatureDimensionMismatchError
	require.True(t, errors.As(err, &fdErr))
	assert.Equal(t, 8, fdErr.Expected)
	assert.Equal(t, 7, fdErr.Got)
}
