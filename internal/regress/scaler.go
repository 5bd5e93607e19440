// Package regress holds the fitted pieces of the forecasting models: the
// feature scaler, a bagged regression-tree ensemble, an ordinary
// least-squares alternative, and the evaluation metrics. Everything here is
// deterministic for a given seed and serializes to JSON so a persisted
// bundle reproduces in-memory predictions exactly.
package regress

import "math"

// Scaler standardizes features to zero mean and unit variance using
// statistics fitted on the training partition only.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and population standard deviation.
// Zero-variance columns get a standard deviation of 1 so they pass through
// unchanged instead of dividing by zero.
func FitScaler(rows [][]float64) *Scaler {
	if len(rows) == 0 {
		return &Scaler{}
	}
	cols := len(rows[0])
	s := &Scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}
	n := float64(len(rows))

	for _, row := range rows {
		for c, v := range row {
			s.Mean[c] += v
		}
	}
	for c := range s.Mean {
		s.Mean[c] /= n
	}

	for _, row := range rows {
		for c, v := range row {
			d := v - s.Mean[c]
			s.Std[c] += d * d
		}
	}
	for c := range s.Std {
		s.Std[c] = math.Sqrt(s.Std[c] / n)
		if s.Std[c] == 0 {
			s.Std[c] = 1
		}
	}
	return s
}

// Transform returns a scaled copy of row.
func (s *Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for c, v := range row {
		out[c] = (v - s.Mean[c]) / s.Std[c]
	}
	return out
}

// TransformAll scales every row, returning new slices.
func (s *Scaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
