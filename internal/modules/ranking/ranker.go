// Package ranking orders scored candidates and converts the top selections
// into suggested share counts given a budget.
package ranking

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// DefaultTopK is the number of suggestions returned when enough candidates
// exist.
const DefaultTopK = 5

// Suggestion is one ranked candidate, sized against the budget when possible.
type Suggestion struct {
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
	Price  float64 `json:"price"`
	Shares int     `json:"shares"`
}

// Ranker produces deterministic top-K suggestions from external scores.
type Ranker struct {
	topK int
	log  zerolog.Logger
}

// NewRanker creates a ranker with the default top-K.
func NewRanker(log zerolog.Logger) *Ranker {
	return &Ranker{
		topK: DefaultTopK,
		log:  log.With().Str("component", "ranker").Logger(),
	}
}

// Rank sorts candidates descending by score (ties broken by original candidate
// order, so identical inputs always produce identical output) and sizes the
// top K against the budget. scores[i] belongs to candidates[i]; prices may be
// missing entries.
//
// With budget > 0 the budget is split evenly across the K selections; a
// selection with a known positive price gets floor(bucket/price) shares,
// floored to 1 only when the bucket affords at least one share. Zero shares
// means "suggested but not sized". With budget <= 0 every suggestion has zero
// shares.
func (r *Ranker) Rank(candidates []string, scores []float64, prices map[string]float64, budget float64) []Suggestion {
	n := len(candidates)
	if n == 0 || len(scores) != n {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	k := r.topK
	if n < k {
		k = n
	}

	bucket := 0.0
	if budget > 0 {
		bucket = budget / float64(k)
	}

	suggestions := make([]Suggestion, 0, k)
	for _, idx := range order[:k] {
		ticker := candidates[idx]
		price := prices[ticker]

		shares := 0
		if bucket > 0 && price > 0 {
			shares = int(math.Floor(bucket / price))
			if shares < 1 && bucket >= price {
				shares = 1
			}
		}

		suggestions = append(suggestions, Suggestion{
			Ticker: ticker,
			Score:  scores[idx],
			Price:  price,
			Shares: shares,
		})
	}

	r.log.Debug().
		Int("candidates", n).
		Int("selected", len(suggestions)).
		Float64("budget", budget).
		Msg("Ranked candidates")

	return suggestions
}
