// Package optimization solves the long-only mean-variance problem that
// produces the baseline portfolio for a requested target return.
package optimization

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfolio/advisor/internal/domain"
)

// errWeightContract reports a violated numerical contract on the final weight
// vector. It is a solver failure, not a property of the inputs, so it stays
// distinct from the covariance-conditioning error.
var errWeightContract = errors.New("optimizer weight contract violated")

const (
	// WeightTolerance bounds the numerical noise allowed on the returned
	// weight vector: sum within 1e-6 of 1, components above -1e-6.
	WeightTolerance = 1e-6

	// activeSetTolerance decides when a free weight is treated as negative
	// during the active-set iteration.
	activeSetTolerance = 1e-9
)

// Optimizer solves:
//
//	minimize   w' Σ w
//	subject to μ' w = targetReturn
//	           Σ w_i = 1
//	           w_i ≥ 0
//
// via the equality-constrained KKT system with an active-set treatment of the
// non-negativity bounds: solve with all weights free, clamp the most negative
// one to zero, and re-solve on the reduced set until no free weight is
// negative. Equalities are satisfied to linear-solver tolerance; the optimizer
// never renormalizes an infeasible solution.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a new mean-variance optimizer.
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{
		log: log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize returns the long-only weight vector for the target return,
// index-aligned to mu and sigma.
func (o *Optimizer) Optimize(mu []float64, sigma [][]float64, targetReturn float64) ([]float64, error) {
	n := len(mu)
	if n == 0 {
		return nil, &domain.NoUsableInstrumentsError{Examined: 0, MinValid: 0}
	}

	// Long-only feasibility: achievable returns span [min mu, max mu].
	minMu, maxMu := mu[0], mu[0]
	for _, m := range mu[1:] {
		minMu = math.Min(minMu, m)
		maxMu = math.Max(maxMu, m)
	}
	if targetReturn < minMu-WeightTolerance || targetReturn > maxMu+WeightTolerance {
		return nil, &domain.InfeasibleTargetError{Target: targetReturn, MinReturn: minMu, MaxReturn: maxMu}
	}

	// Σ must be positive definite for the QP to have a unique minimizer.
	// Cholesky failure covers both indefinite and singular matrices, the
	// documented risk when the universe outgrows the observation count.
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, sigma[i][j])
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		o.log.Warn().Int("dim", n).Msg("Covariance matrix failed Cholesky factorization")
		return nil, &domain.IllConditionedCovarianceError{Dim: n}
	}

	// Active-set loop: free indices start as the full universe.
	free := make([]int, n)
	for i := range free {
		free[i] = i
	}

	weights := make([]float64, n)
	for len(free) > 0 {
		wFree, err := o.solveKKT(mu, sigma, free, targetReturn)
		if err != nil {
			return nil, err
		}

		// Find the most negative free weight.
		worst := -1
		worstVal := -activeSetTolerance
		for k, w := range wFree {
			if w < worstVal {
				worstVal = w
				worst = k
			}
		}

		if worst < 0 {
			for i := range weights {
				weights[i] = 0
			}
			for k, idx := range free {
				weights[idx] = math.Max(wFree[k], 0)
			}
			return weights, o.verify(weights, mu, targetReturn)
		}

		// Clamp it to zero and re-solve on the reduced set. Indices are
		// only ever removed: there is no multiplier check, so a clamped
		// weight is never re-admitted and the loop can stop at a feasible
		// vertex that is not the exact minimizer. The reduced problem may
		// no longer span the target return.
		free = append(free[:worst], free[worst+1:]...)
		if len(free) == 0 {
			return nil, &domain.InfeasibleTargetError{Target: targetReturn, MinReturn: minMu, MaxReturn: maxMu}
		}
		fMin, fMax := mu[free[0]], mu[free[0]]
		for _, idx := range free[1:] {
			fMin = math.Min(fMin, mu[idx])
			fMax = math.Max(fMax, mu[idx])
		}
		if targetReturn < fMin-WeightTolerance || targetReturn > fMax+WeightTolerance {
			return nil, &domain.InfeasibleTargetError{Target: targetReturn, MinReturn: fMin, MaxReturn: fMax}
		}
	}

	return nil, &domain.InfeasibleTargetError{Target: targetReturn, MinReturn: minMu, MaxReturn: maxMu}
}

// solveKKT solves the equality-constrained subproblem on the free index set:
//
//	[ 2Σ_FF  μ_F  1 ] [w_F]   [0]
//	[ μ_F'   0    0 ] [λ1 ] = [target]
//	[ 1'     0    0 ] [λ2 ]   [1]
func (o *Optimizer) solveKKT(mu []float64, sigma [][]float64, free []int, targetReturn float64) ([]float64, error) {
	nf := len(free)
	dim := nf + 2

	kkt := mat.NewDense(dim, dim, nil)
	rhs := mat.NewVecDense(dim, nil)

	for a, i := range free {
		for b, j := range free {
			kkt.Set(a, b, 2*sigma[i][j])
		}
		kkt.Set(a, nf, mu[i])
		kkt.Set(a, nf+1, 1)
		kkt.Set(nf, a, mu[i])
		kkt.Set(nf+1, a, 1)
	}
	rhs.SetVec(nf, targetReturn)
	rhs.SetVec(nf+1, 1)

	var solution mat.VecDense
	if err := solution.SolveVec(kkt, rhs); err != nil {
		// A singular KKT system means the constraints are degenerate on
		// this covariance structure; surface it rather than guessing.
		o.log.Warn().Err(err).Int("free", nf).Msg("KKT system is singular")
		return nil, &domain.IllConditionedCovarianceError{Dim: len(mu)}
	}

	wFree := make([]float64, nf)
	for k := range wFree {
		wFree[k] = solution.AtVec(k)
	}
	return wFree, nil
}

// verify checks the numerical contract on the final weights. Violations are
// reported, never silently repaired.
func (o *Optimizer) verify(weights, mu []float64, targetReturn float64) error {
	sum := 0.0
	achieved := 0.0
	for i, w := range weights {
		if w < -WeightTolerance {
			o.log.Error().
				Int("index", i).
				Float64("weight", w).
				Msg("Optimizer produced a negative weight")
			return fmt.Errorf("%w: weight %d is %v, below -%v", errWeightContract, i, w, WeightTolerance)
		}
		sum += w
		achieved += w * mu[i]
	}
	if math.Abs(sum-1) > WeightTolerance {
		o.log.Error().
			Float64("sum", sum).
			Msg("Optimizer produced weights that do not sum to 1")
		return fmt.Errorf("%w: weights sum to %v, want 1 within %v", errWeightContract, sum, WeightTolerance)
	}

	o.log.Debug().
		Float64("target_return", targetReturn).
		Float64("achieved_return", achieved).
		Int("num_assets", len(weights)).
		Msg("Optimization complete")
	return nil
}
