package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recommendation pipeline. Each failure carries enough
// structured context to be diagnosed without re-running the request, and all of
// them are terminal: the pipeline either succeeds fully or the request fails.
// Retry policy, if any, belongs to the calling layer.
var (
	ErrInsufficientHistory      = errors.New("insufficient aligned price history")
	ErrNoUsableInstruments      = errors.New("no instruments with sufficient valid returns")
	ErrInfeasibleTarget         = errors.New("target return is not achievable long-only")
	ErrIllConditionedCovariance = errors.New("covariance matrix is not positive semi-definite")
	ErrDegenerateBaseline       = errors.New("baseline portfolio variance is zero")
	ErrFeatureDimensionMismatch = errors.New("feature matrix width does not match schema")
	ErrInvalidTarget            = errors.New("target return must be a finite number")
	ErrScorerUnavailable        = errors.New("scorer call failed")
)

// InsufficientHistoryError reports too few aligned calendar dates across the
// fetched instruments.
type InsufficientHistoryError struct {
	AlignedDates int
	Required     int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient aligned price history: %d aligned dates, need at least %d", e.AlignedDates, e.Required)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// NoUsableInstrumentsError reports that the sufficiency filter emptied the universe.
type NoUsableInstrumentsError struct {
	Examined int
	MinValid int
}

func (e *NoUsableInstrumentsError) Error() string {
	return fmt.Sprintf("no usable instruments: %d examined, none had %d valid returns", e.Examined, e.MinValid)
}

func (e *NoUsableInstrumentsError) Unwrap() error { return ErrNoUsableInstruments }

// InfeasibleTargetError reports a target return outside the achievable
// long-only range [MinReturn, MaxReturn].
type InfeasibleTargetError struct {
	Target    float64
	MinReturn float64
	MaxReturn float64
}

func (e *InfeasibleTargetError) Error() string {
	return fmt.Sprintf("infeasible target return %.4f: achievable long-only range is [%.4f, %.4f]", e.Target, e.MinReturn, e.MaxReturn)
}

func (e *InfeasibleTargetError) Unwrap() error { return ErrInfeasibleTarget }

// IllConditionedCovarianceError reports a covariance matrix that failed the
// positive semi-definiteness check before optimization.
type IllConditionedCovarianceError struct {
	Dim int
}

func (e *IllConditionedCovarianceError) Error() string {
	return fmt.Sprintf("covariance matrix (%dx%d) is not positive semi-definite", e.Dim, e.Dim)
}

func (e *IllConditionedCovarianceError) Unwrap() error { return ErrIllConditionedCovariance }

// DegenerateBaselineError reports a baseline weight vector with (near) zero
// portfolio variance, for which Sharpe is undefined.
type DegenerateBaselineError struct {
	Variance float64
}

func (e *DegenerateBaselineError) Error() string {
	return fmt.Sprintf("degenerate baseline: portfolio variance %.3e is too small for Sharpe", e.Variance)
}

func (e *DegenerateBaselineError) Unwrap() error { return ErrDegenerateBaseline }

// FeatureDimensionMismatchError reports a feature matrix whose column count
// disagrees with the versioned schema shared with the scorer.
type FeatureDimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *FeatureDimensionMismatchError) Error() string {
	return fmt.Sprintf("feature dimension mismatch: schema has %d columns, matrix has %d", e.Expected, e.Got)
}

func (e *FeatureDimensionMismatchError) Unwrap() error { return ErrFeatureDimensionMismatch }

// InvalidTargetError reports a non-finite target return in the request.
type InvalidTargetError struct {
	Value float64
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target return: %v is not finite", e.Value)
}

func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

// ScorerUnavailableError wraps a failed or timed-out scorer invocation.
type ScorerUnavailableError struct {
	Cause error
}

func (e *ScorerUnavailableError) Error() string {
	return fmt.Sprintf("scorer unavailable: %v", e.Cause)
}

func (e *ScorerUnavailableError) Unwrap() error { return ErrScorerUnavailable }
