// Package marginal measures each candidate instrument's marginal effect on the
// baseline portfolio: the change in Sharpe ratio and in normal-approximation
// 95% CVaR caused by a small fixed reallocation into the candidate.
package marginal

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfolio/advisor/internal/domain"
)

const (
	// DefaultEpsilon is the fixed weight (1% of portfolio) moved into each
	// candidate during perturbation.
	DefaultEpsilon = 0.01

	// DefaultConfidence is the CVaR confidence level.
	DefaultConfidence = 0.95

	// minVariance is the threshold below which a baseline is considered
	// degenerate (Sharpe undefined).
	minVariance = 1e-12
)

// Metrics holds the marginal effect of one candidate on the baseline.
// DeltaCvar is sign-flipped versus the raw CVaR change so that a positive
// value means the tail risk improved; "higher is better" then holds for both
// fields.
type Metrics struct {
	DeltaSharpe float64 `json:"delta_sharpe"`
	DeltaCvar   float64 `json:"delta_cvar"`
}

// Engine computes marginal utilities against one baseline weight vector.
type Engine struct {
	riskFree   float64
	epsilon    float64
	confidence float64
	log        zerolog.Logger
}

// NewEngine creates a marginal utility engine with the given annual risk-free
// rate and default perturbation settings.
func NewEngine(riskFree float64, log zerolog.Logger) *Engine {
	return &Engine{
		riskFree:   riskFree,
		epsilon:    DefaultEpsilon,
		confidence: DefaultConfidence,
		log:        log.With().Str("component", "marginal").Logger(),
	}
}

// MarginalUtilities perturbs the baseline once per non-held candidate and
// returns the resulting metric deltas keyed by ticker. Held instruments are
// skipped entirely.
//
// The donor is always the single largest current holding. This is a policy
// choice, not ground truth: a pro-rata donation across all holdings would
// change the results.
func (e *Engine) MarginalUtilities(
	weights []float64,
	mu []float64,
	sigma [][]float64,
	universe []string,
	held map[string]bool,
) (map[string]Metrics, error) {
	baseVar := portfolioVariance(weights, sigma)
	if baseVar < minVariance {
		return nil, &domain.DegenerateBaselineError{Variance: baseVar}
	}

	baseSharpe := e.sharpe(weights, mu, sigma)
	baseCvar := e.cvar(weights, mu, sigma)

	donor := largestHolding(weights)

	out := make(map[string]Metrics)
	for i, ticker := range universe {
		if held[ticker] {
			continue
		}

		perturbed := make([]float64, len(weights))
		copy(perturbed, weights)
		perturbed[donor] -= e.epsilon
		perturbed[i] += e.epsilon

		out[ticker] = Metrics{
			DeltaSharpe: e.sharpe(perturbed, mu, sigma) - baseSharpe,
			DeltaCvar:   baseCvar - e.cvar(perturbed, mu, sigma),
		}
	}

	e.log.Debug().
		Int("candidates", len(out)).
		Float64("baseline_sharpe", baseSharpe).
		Float64("baseline_cvar", baseCvar).
		Msg("Computed marginal utilities")

	return out, nil
}

// sharpe is (mu·w - riskFree) / sqrt(w'Σw).
func (e *Engine) sharpe(weights, mu []float64, sigma [][]float64) float64 {
	variance := portfolioVariance(weights, sigma)
	return (dot(mu, weights) - e.riskFree) / math.Sqrt(variance)
}

// cvar is the closed-form normal expected shortfall at the configured
// confidence level:
//
//	cvar = -(mean - std * φ(z) / (1-α)),  z = Φ⁻¹(α)
//
// The inverse CDF comes from gonum's unit normal, which is numerically stable
// across the full (0, 1) domain.
func (e *Engine) cvar(weights, mu []float64, sigma [][]float64) float64 {
	mean := dot(mu, weights)
	std := math.Sqrt(portfolioVariance(weights, sigma))

	z := distuv.UnitNormal.Quantile(e.confidence)
	pdf := distuv.UnitNormal.Prob(z)

	return -(mean - std*pdf/(1-e.confidence))
}

func portfolioVariance(weights []float64, sigma [][]float64) float64 {
	variance := 0.0
	for i := range weights {
		for j := range weights {
			variance += weights[i] * weights[j] * sigma[i][j]
		}
	}
	return variance
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func largestHolding(weights []float64) int {
	donor := 0
	for i, w := range weights {
		if w > weights[donor] {
			donor = i
		}
	}
	return donor
}
