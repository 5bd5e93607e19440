package domain

import (
	"fmt"
	"time"
)

// Granularity identifies the temporal resolution of a record series and
// therefore which model, feature set, and calendar stepping apply.
type Granularity string

const (
	// GranularityFine covers sub-daily sensor readings.
	GranularityFine Granularity = "fine"
	// GranularityMonthly covers per-(region, year, month) rollups.
	GranularityMonthly Granularity = "monthly"
)

// Valid reports whether g is one of the defined granularities.
func (g Granularity) Valid() bool {
	return g == GranularityFine || g == GranularityMonthly
}

// MaxLag returns the largest lag offset used during feature derivation.
// Rows whose lags reach before the start of the series are dropped, so a
// series must hold at least MaxLag()+1 points to yield any feature rows.
func (g Granularity) MaxLag() int {
	if g == GranularityMonthly {
		return 12
	}
	return 24
}

// MinTrainingSamples returns the smallest feature-row count the trainer
// accepts: 12 months for monthly models, 10 readings for fine-grained.
func (g Granularity) MinTrainingSamples() int {
	if g == GranularityMonthly {
		return 12
	}
	return 10
}

// Observation is a single fine-grained climate reading. It is produced by
// the ingestion collaborator and read-only inside the engine.
type Observation struct {
	RegionID      int64     `json:"region_id"`
	Timestamp     time.Time `json:"timestamp"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Rainfall      float64   `json:"rainfall"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
	Pressure      float64   `json:"pressure"`
}

// MonthlyAggregate is the per-(region, year, month) rollup of observations.
// The Predicted* fields are set by the prediction job and nil until then.
type MonthlyAggregate struct {
	RegionID         int64   `json:"region_id"`
	Year             int     `json:"year"`
	Month            int     `json:"month"` // 1-12
	AvgTemperature   float64 `json:"avg_temperature"`
	MaxTemperature   float64 `json:"max_temperature"`
	MinTemperature   float64 `json:"min_temperature"`
	TotalRainfall    float64 `json:"total_rainfall"`
	AvgHumidity      float64 `json:"avg_humidity"`
	AvgWindSpeed     float64 `json:"avg_wind_speed"`
	ObservationCount int     `json:"observation_count"`

	PredictedTemperature *float64 `json:"predicted_temperature,omitempty"`
	PredictedRainfall    *float64 `json:"predicted_rainfall,omitempty"`
	PredictionConfidence *float64 `json:"prediction_confidence,omitempty"`
}

// PeriodKey orders aggregates chronologically: year*12 + (month-1).
func (m MonthlyAggregate) PeriodKey() int {
	return m.Year*12 + m.Month - 1
}

// ForecastPoint is one step of a multi-step forecast. Monthly forecasts
// populate Year/Month; fine-grained forecasts populate Timestamp. Label is
// the human-readable period ("Mar 2027" or an RFC 3339 timestamp).
type ForecastPoint struct {
	Step       int       `json:"step"`
	Year       int       `json:"year,omitempty"`
	Month      int       `json:"month,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Label      string    `json:"label"`
	Value      float64   `json:"value"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	Confidence float64   `json:"confidence"` // 0-100, non-increasing with Step
}

// MetricsReport summarizes a training run: fit quality on both partitions
// plus the manifest the model was trained against.
type MetricsReport struct {
	Granularity  Granularity `json:"granularity"`
	ModelType    string      `json:"model_type"`
	SampleCount  int         `json:"n_samples"`
	FeatureCount int         `json:"n_features"`
	TrainMAE     float64     `json:"train_mae"`
	TrainRMSE    float64     `json:"train_rmse"`
	TrainR2      float64     `json:"train_r2"`
	TestMAE      float64     `json:"test_mae"`
	TestRMSE     float64     `json:"test_rmse"`
	TestR2       float64     `json:"test_r2"`
	FeatureNames []string    `json:"feature_names"`
	TrainedAt    time.Time   `json:"trained_at"`
}

// AccuracyBand maps the held-out R2 score to an operator-facing label:
// "excellent" above 0.7, "good" above 0.5, "low" otherwise.
func (r MetricsReport) AccuracyBand() string {
	switch {
	case r.TestR2 > 0.7:
		return "excellent"
	case r.TestR2 > 0.5:
		return "good"
	default:
		return "low"
	}
}

// MonthLabel formats a (year, month) pair the way forecast consumers expect,
// e.g. "Mar 2027".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String()[:3], year)
}

// ObservedOnly filters out prediction-only rows. The prediction job creates
// future months carrying nothing but predicted values; those must never be
// mistaken for history when training or forecasting.
func ObservedOnly(aggs []MonthlyAggregate) []MonthlyAggregate {
	out := make([]MonthlyAggregate, 0, len(aggs))
	for _, a := range aggs {
		if a.ObservationCount > 0 {
			out = append(out, a)
		}
	}
	return out
}
