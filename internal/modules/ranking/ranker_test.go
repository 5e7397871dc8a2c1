package ranking

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByScoreDescending(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A", "B", "C"}
	scores := []float64{0.2, 0.9, 0.5}

	suggestions := ranker.Rank(candidates, scores, nil, 0)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "B", suggestions[0].Ticker)
	assert.Equal(t, "C", suggestions[1].Ticker)
	assert.Equal(t, "A", suggestions[2].Ticker)
}

func TestRankTiesPreserveCandidateOrder(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"X", "Y", "Z"}
	scores := []float64{0.5, 0.5, 0.5}

	suggestions := ranker.Rank(candidates, scores, nil, 0)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "X", suggestions[0].Ticker)
	assert.Equal(t, "Y", suggestions[1].Ticker)
	assert.Equal(t, "Z", suggestions[2].Ticker)
}

func TestRankTopKLimit(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A", "B", "C", "D", "E", "F", "G"}
	scores := []float64{1, 2, 3, 4, 5, 6, 7}

	suggestions := ranker.Rank(candidates, scores, nil, 0)
	require.Len(t, suggestions, DefaultTopK)
	assert.Equal(t, "G", suggestions[0].Ticker)
}

func TestRankBudgetSplitEvenly(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A", "B"}
	scores := []float64{0.9, 0.8}
	prices := map[string]float64{"A": 100, "B": 40}

	// Bucket = 500 each
	suggestions := ranker.Rank(candidates, scores, prices, 1000)
	require.Len(t, suggestions, 2)
	assert.Equal(t, 5, suggestions[0].Shares)  // floor(500/100)
	assert.Equal(t, 12, suggestions[1].Shares) // floor(500/40)
}

func TestRankUnaffordableGetsZeroShares(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A", "B"}
	scores := []float64{0.9, 0.8}
	prices := map[string]float64{"A": 10000, "B": 40}

	suggestions := ranker.Rank(candidates, scores, prices, 100)
	require.Len(t, suggestions, 2)
	assert.Equal(t, 0, suggestions[0].Shares, "bucket cannot afford one share")
	assert.Equal(t, 1, suggestions[1].Shares)
}

func TestRankNoBudgetRankingOnly(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A", "B"}
	scores := []float64{0.9, 0.8}
	prices := map[string]float64{"A": 10, "B": 20}

	for _, budget := range []float64{0, -500} {
		suggestions := ranker.Rank(candidates, scores, prices, budget)
		require.Len(t, suggestions, 2)
		for _, s := range suggestions {
			assert.Equal(t, 0, s.Shares)
		}
	}
}

func TestRankMissingPriceGetsZeroShares(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A"}
	scores := []float64{0.9}

	suggestions := ranker.Rank(candidates, scores, map[string]float64{}, 1000)
	require.Len(t, suggestions, 1)
	assert.Equal(t, 0, suggestions[0].Shares)
}

func TestRankDeterminism(t *testing.T) {
	ranker := NewRanker(zerolog.Nop())

	candidates := []string{"A", "B", "C", "D"}
	scores := []float64{0.4, 0.4, 0.9, 0.1}
	prices := map[string]float64{"A": 10, "B": 20, "C": 30, "D": 40}

	first := ranker.Rank(candidates, scores, prices, 600)
	second := ranker.Rank(candidates, scores, prices, 600)
	assert.Equal(t, first, second)
}
