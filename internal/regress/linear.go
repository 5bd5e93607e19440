package regress

import (
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// Linear is a fitted ordinary least squares model. Only the coefficients
// are persisted, so a loaded model predicts without refitting.
type Linear struct {
	Intercept float64   `json:"intercept"`
	Coeffs    []float64 `json:"coeffs"`
}

// FitLinear fits an OLS model of target on rows.
func FitLinear(rows [][]float64, target []float64, names []string) (*Linear, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("regress: no training rows")
	}
	if len(rows) != len(target) {
		return nil, fmt.Errorf("regress: %d rows but %d targets", len(rows), len(target))
	}

	// Constant columns make the normal equations singular, which the
	// solver reports as NaN coefficients rather than an error. Drop them
	// before fitting; their coefficient is zero by definition.
	varying := varyingColumns(rows)
	if len(varying) == 0 {
		return nil, fmt.Errorf("regress: all feature columns are constant")
	}

	r := new(regression.Regression)
	r.SetObserved("target")
	for i, col := range varying {
		r.SetVar(i, names[col])
	}
	for i, row := range rows {
		point := make([]float64, len(varying))
		for j, col := range varying {
			point[j] = row[col]
		}
		r.Train(regression.DataPoint(target[i], point))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("regress: fit linear: %w", err)
	}

	coeffs := make([]float64, len(names))
	for i, col := range varying {
		coeffs[col] = r.Coeff(i + 1)
	}
	intercept := r.Coeff(0)
	if math.IsNaN(intercept) {
		return nil, fmt.Errorf("regress: fit linear: singular design matrix")
	}
	for _, c := range coeffs {
		if math.IsNaN(c) {
			return nil, fmt.Errorf("regress: fit linear: singular design matrix")
		}
	}
	return &Linear{Intercept: intercept, Coeffs: coeffs}, nil
}

// varyingColumns returns the indexes of columns whose value is not
// identical across all rows.
func varyingColumns(rows [][]float64) []int {
	var cols []int
	first := rows[0]
	for c := range first {
		for _, row := range rows[1:] {
			if row[c] != first[c] {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}

// Predict evaluates the linear model on one feature row.
func (l *Linear) Predict(row []float64) float64 {
	v := l.Intercept
	for i, c := range l.Coeffs {
		v += c * row[i]
	}
	return v
}
