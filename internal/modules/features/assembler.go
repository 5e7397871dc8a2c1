package features

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/modules/marginal"
)

// Assembler merges marginal-utility deltas, momentum/fundamental signals, and
// the requested target return into one feature row per candidate.
type Assembler struct {
	schema Schema
	log    zerolog.Logger
}

// NewAssembler creates a feature assembler for the current schema.
func NewAssembler(log zerolog.Logger) *Assembler {
	return &Assembler{
		schema: CurrentSchema(),
		log:    log.With().Str("component", "features").Logger(),
	}
}

// Schema returns the schema this assembler builds against.
func (a *Assembler) Schema() Schema {
	return a.schema
}

// Build returns the feature matrix; row i corresponds to candidates[i].
// Missing marginal metrics or fundamentals default to 0 for every field, so
// the scorer always receives a well-formed numeric row. The target return is
// broadcast into every row so one trained scorer can adapt across
// target-return regimes.
func (a *Assembler) Build(
	candidates []string,
	marginalMap map[string]marginal.Metrics,
	fundamentals map[string]domain.FundamentalRow,
	targetReturn float64,
) [][]float64 {
	matrix := make([][]float64, len(candidates))
	for i, ticker := range candidates {
		m := marginalMap[ticker]  // zero value when absent
		f := fundamentals[ticker] // zero value when absent

		matrix[i] = []float64{
			sanitize(m.DeltaSharpe),
			sanitize(m.DeltaCvar),
			sanitize(f.Mom6),
			sanitize(f.Mom12),
			sanitize(f.Beta),
			sanitize(f.DivYield),
			sanitize(f.LogCap),
			sanitize(targetReturn),
		}
	}

	a.log.Debug().
		Int("rows", len(matrix)).
		Int("columns", len(a.schema.Columns)).
		Msg("Assembled feature matrix")

	return matrix
}

// sanitize maps NaN and infinities to 0; the scorer must never see them.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
