// Package feature turns chronological climate records into the numeric
// feature matrices the regression models train and predict on.
//
// Derivation is causal: lagged values and rolling statistics look only at
// the current and earlier rows, never ahead. Rows whose lags reach before
// the start of the series are dropped, so a series of length L yields
// exactly L - maxLag rows. Identical input always yields an identical
// matrix; there is no hidden randomness or wall-clock dependence.
package feature

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ecotrack/climate-engine/internal/domain"
)

// Lag offsets are {1,2,3,6,12} monthly and {1,2,3,6,12,24} fine-grained.
// Every offset participates in row dropping even when it does not appear in
// the manifest, so the largest offset (Granularity.MaxLag) defines the
// warm-up rows lost at the start of a series.
const (
	monthlyRollingWindow = 3
	fineRollingWindow    = 6
	annualPeriodMonths   = 12
)

// Matrix is a derived feature matrix with its target vector and ordered
// feature-name manifest. The manifest is authoritative: a trained model
// refuses input whose manifest differs.
type Matrix struct {
	Names  []string
	Rows   [][]float64
	Target []float64

	// Calendar fields of the last surviving row, used by the forecaster to
	// advance periods without consulting the wall clock.
	LastYear  int
	LastMonth int
	LastTime  time.Time
}

// Index returns the column position of a feature name, or -1.
func (m *Matrix) Index(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// LastRow returns a copy of the most recent feature row.
func (m *Matrix) LastRow() []float64 {
	last := m.Rows[len(m.Rows)-1]
	out := make([]float64, len(last))
	copy(out, last)
	return out
}

// DeriveMonthly builds the monthly feature matrix, targeting average
// temperature. Input is copied and sorted by (year, month) regardless of
// caller order. Returns domain.ErrInsufficientData when fewer than
// maxLag+1 aggregates are supplied, since no row would survive lag dropping.
func DeriveMonthly(aggs []domain.MonthlyAggregate) (*Matrix, error) {
	sorted := make([]domain.MonthlyAggregate, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodKey() < sorted[j].PeriodKey()
	})

	maxLag := domain.GranularityMonthly.MaxLag()
	if len(sorted) <= maxLag {
		return nil, fmt.Errorf("deriving monthly features: %d aggregates, need at least %d: %w",
			len(sorted), maxLag+1, domain.ErrInsufficientData)
	}

	temps := make([]float64, len(sorted))
	rains := make([]float64, len(sorted))
	for i, a := range sorted {
		temps[i] = a.AvgTemperature
		rains[i] = a.TotalRainfall
	}

	names := []string{
		"month", "sin_month", "cos_month",
		"temp_lag_1", "temp_lag_2", "temp_lag_3",
		"temp_rolling_mean_3", "temp_rolling_std_3",
		"temp_prev_year",
		"rain_lag_1", "rain_prev_year",
		"region_id",
	}

	m := &Matrix{Names: names}
	for i := maxLag; i < len(sorted); i++ {
		a := sorted[i]
		sin, cos := Cyclical(float64(a.Month), 12)
		mean, std := rollingStats(temps, i, monthlyRollingWindow)

		row := []float64{
			float64(a.Month), sin, cos,
			temps[i-1], temps[i-2], temps[i-3],
			mean, std,
			temps[i-annualPeriodMonths],
			rains[i-1], rains[i-annualPeriodMonths],
			float64(a.RegionID),
		}
		m.Rows = append(m.Rows, row)
		m.Target = append(m.Target, a.AvgTemperature)
	}

	last := sorted[len(sorted)-1]
	m.LastYear, m.LastMonth = last.Year, last.Month
	return m, nil
}

// DeriveFine builds the fine-grained feature matrix from sub-daily
// observations, targeting temperature. Calendar positions are encoded
// cyclically (hour/24, day-of-week/7, day-of-year/365) so midnight sits
// next to 23:00 in feature space. Humidity and rainfall contribute one
// lagged exogenous feature each.
func DeriveFine(obs []domain.Observation) (*Matrix, error) {
	sorted := make([]domain.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	maxLag := domain.GranularityFine.MaxLag()
	if len(sorted) <= maxLag {
		return nil, fmt.Errorf("deriving fine-grained features: %d observations, need at least %d: %w",
			len(sorted), maxLag+1, domain.ErrInsufficientData)
	}

	temps := make([]float64, len(sorted))
	for i, o := range sorted {
		temps[i] = o.Temperature
	}

	names := []string{
		"sin_hour", "cos_hour",
		"sin_dow", "cos_dow",
		"sin_doy", "cos_doy",
		"temp_lag_1", "temp_lag_2", "temp_lag_3",
		"temp_rolling_mean_6", "temp_rolling_std_6",
		"humidity_lag_1", "rainfall_lag_1",
	}

	m := &Matrix{Names: names}
	for i := maxLag; i < len(sorted); i++ {
		o := sorted[i]
		ts := o.Timestamp.UTC()
		sinH, cosH := Cyclical(float64(ts.Hour()), 24)
		sinD, cosD := Cyclical(float64(ts.Weekday()), 7)
		sinY, cosY := Cyclical(float64(ts.YearDay()), 365)
		mean, std := rollingStats(temps, i, fineRollingWindow)

		row := []float64{
			sinH, cosH,
			sinD, cosD,
			sinY, cosY,
			temps[i-1], temps[i-2], temps[i-3],
			mean, std,
			sorted[i-1].Humidity, sorted[i-1].Rainfall,
		}
		m.Rows = append(m.Rows, row)
		m.Target = append(m.Target, o.Temperature)
	}

	m.LastTime = sorted[len(sorted)-1].Timestamp.UTC()
	return m, nil
}

// Cyclical encodes a calendar position on the unit circle so the model sees
// period 12 adjacent to period 1.
func Cyclical(value, cycle float64) (sin, cos float64) {
	theta := 2 * math.Pi * value / cycle
	return math.Sin(theta), math.Cos(theta)
}

// rollingStats computes the trailing mean and sample standard deviation of
// values[max(0,i-window+1) .. i]. A single-point window has no defined
// sample deviation; those rows are always dropped by the lag rule anyway,
// so zero is returned rather than NaN.
func rollingStats(values []float64, i, window int) (mean, std float64) {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	n := float64(i - start + 1)

	var sum float64
	for j := start; j <= i; j++ {
		sum += values[j]
	}
	mean = sum / n

	if n < 2 {
		return mean, 0
	}
	var sq float64
	for j := start; j <= i; j++ {
		d := values[j] - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / (n - 1))
}
