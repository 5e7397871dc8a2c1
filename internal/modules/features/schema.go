// Package features assembles the fixed-order numeric feature matrix consumed
// by the external scoring model.
package features

import (
	"github.com/quantfolio/advisor/internal/domain"
)

// SchemaVersion identifies the feature column contract. It must be bumped
// whenever the column list changes in any way; the scorer checks it against
// the version its model was trained with.
const SchemaVersion = 1

// Columns is the frozen column order shared with the scorer. Permuting it
// without bumping SchemaVersion silently corrupts every score downstream.
var Columns = []string{
	"deltaSharpe",
	"deltaCvar",
	"mom6",
	"mom12",
	"beta",
	"divYield",
	"logCap",
	"targetReturn",
}

// Schema pairs the column list with its version for transport and validation.
type Schema struct {
	Version int      `json:"version"`
	Columns []string `json:"columns"`
}

// CurrentSchema returns the active feature schema.
func CurrentSchema() Schema {
	return Schema{Version: SchemaVersion, Columns: Columns}
}

// Validate asserts that a feature matrix is compatible with this schema
// before it is handed to the scorer. Width mismatches must be caught here,
// not after scoring.
func (s Schema) Validate(matrix [][]float64) error {
	for _, row := range matrix {
		if len(row) != len(s.Columns) {
			return &domain.FeatureDimensionMismatchError{Expected: len(s.Columns), Got: len(row)}
		}
	}
	return nil
}
