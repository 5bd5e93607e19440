package regress

import "math"

// Model predicts a single target value from one scaled feature row.
type Model interface {
	Predict(row []float64) float64
}

// MAE returns the mean absolute error of predicted against actual.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// RMSE returns the root mean squared error of predicted against actual.
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// R2 returns the coefficient of determination. A constant actual series
// yields 0 rather than a division by zero.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var mean float64
	for _, y := range actual {
		mean += y
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		ssRes += r * r
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
