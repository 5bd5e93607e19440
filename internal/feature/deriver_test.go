package feature

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/climate-engine/internal/domain"
)

func monthlySeries(n int) []domain.MonthlyAggregate {
	aggs := make([]domain.MonthlyAggregate, 0, n)
	year, month := 2023, 1
	for i := 0; i < n; i++ {
		aggs = append(aggs, domain.MonthlyAggregate{
			RegionID:         5,
			Year:             year,
			Month:            month,
			AvgTemperature:   float64(10 + i), // strictly increasing, easy to check lags
			TotalRainfall:    float64(100 - i),
			ObservationCount: 30,
		})
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return aggs
}

func hourlySeries(n int) []domain.Observation {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.Observation, 0, n)
	for i := 0; i < n; i++ {
		obs = append(obs, domain.Observation{
			RegionID:    1,
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Temperature: float64(i),
			Humidity:    float64(50 + i%10),
			Rainfall:    float64(i % 3),
		})
	}
	return obs
}

func TestDeriveMonthly(t *testing.T) {
	m, err := DeriveMonthly(monthlySeries(20))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"month", "sin_month", "cos_month",
		"temp_lag_1", "temp_lag_2", "temp_lag_3",
		"temp_rolling_mean_3", "temp_rolling_std_3",
		"temp_prev_year",
		"rain_lag_1", "rain_prev_year",
		"region_id",
	}, m.Names)

	// 20 months, 12 warm-up rows dropped.
	require.Len(t, m.Rows, 8)
	require.Len(t, m.Target, 8)

	// First surviving row is January 2024 (index 12): temp 22.
	row := m.Rows[0]
	assert.Equal(t, 22.0, m.Target[0])
	assert.Equal(t, 1.0, row[m.Index("month")])
	assert.Equal(t, 21.0, row[m.Index("temp_lag_1")])
	assert.Equal(t, 20.0, row[m.Index("temp_lag_2")])
	assert.Equal(t, 19.0, row[m.Index("temp_lag_3")])
	assert.Equal(t, 10.0, row[m.Index("temp_prev_year")])
	assert.Equal(t, 89.0, row[m.Index("rain_lag_1")])
	assert.Equal(t, 100.0, row[m.Index("rain_prev_year")])
	assert.Equal(t, 5.0, row[m.Index("region_id")])

	// Trailing 3-month window over 20, 21, 22.
	assert.InDelta(t, 21.0, row[m.Index("temp_rolling_mean_3")], 1e-12)
	assert.InDelta(t, 1.0, row[m.Index("temp_rolling_std_3")], 1e-12)

	// Calendar anchor is the last input month, August 2024.
	assert.Equal(t, 2024, m.LastYear)
	assert.Equal(t, 8, m.LastMonth)
}

func TestDeriveMonthlyInsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 11, 12} {
		_, err := DeriveMonthly(monthlySeries(n))
		require.Error(t, err, "n=%d", n)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
	}

	// 13 aggregates is the smallest series that yields a row.
	m, err := DeriveMonthly(monthlySeries(13))
	require.NoError(t, err)
	assert.Len(t, m.Rows, 1)
}

func TestDeriveMonthlySortsInput(t *testing.T) {
	aggs := monthlySeries(20)
	shuffled := make([]domain.MonthlyAggregate, len(aggs))
	for i, a := range aggs {
		shuffled[(i*7)%len(aggs)] = a
	}

	sorted, err := DeriveMonthly(aggs)
	require.NoError(t, err)
	fromShuffled, err := DeriveMonthly(shuffled)
	require.NoError(t, err)

	if diff := cmp.Diff(sorted, fromShuffled); diff != "" {
		t.Errorf("matrix differs when input order changes (-want +got):\n%s", diff)
	}
}

func TestDeriveMonthlyDeterministic(t *testing.T) {
	a, err := DeriveMonthly(monthlySeries(30))
	require.NoError(t, err)
	b, err := DeriveMonthly(monthlySeries(30))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated derivation differs (-want +got):\n%s", diff)
	}
}

func TestDeriveFine(t *testing.T) {
	m, err := DeriveFine(hourlySeries(30))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"sin_hour", "cos_hour",
		"sin_dow", "cos_dow",
		"sin_doy", "cos_doy",
		"temp_lag_1", "temp_lag_2", "temp_lag_3",
		"temp_rolling_mean_6", "temp_rolling_std_6",
		"humidity_lag_1", "rainfall_lag_1",
	}, m.Names)

	// 30 readings, 24 warm-up rows dropped.
	require.Len(t, m.Rows, 6)

	row := m.Rows[0]
	assert.Equal(t, 24.0, m.Target[0])
	assert.Equal(t, 23.0, row[m.Index("temp_lag_1")])
	assert.Equal(t, 22.0, row[m.Index("temp_lag_2")])
	assert.Equal(t, 21.0, row[m.Index("temp_lag_3")])
	assert.Equal(t, 53.0, row[m.Index("humidity_lag_1")])
	assert.Equal(t, 2.0, row[m.Index("rainfall_lag_1")])

	// Hour 0 of day: sin 0, cos 1.
	assert.InDelta(t, 0.0, row[m.Index("sin_hour")], 1e-12)
	assert.InDelta(t, 1.0, row[m.Index("cos_hour")], 1e-12)

	last := hourlySeries(30)[29].Timestamp
	assert.True(t, m.LastTime.Equal(last))
}

func TestDeriveFineInsufficientData(t *testing.T) {
	_, err := DeriveFine(hourlySeries(24))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	m, err := DeriveFine(hourlySeries(25))
	require.NoError(t, err)
	assert.Len(t, m.Rows, 1)
}

func TestCyclical(t *testing.T) {
	sin, cos := Cyclical(0, 12)
	assert.InDelta(t, 0.0, sin, 1e-12)
	assert.InDelta(t, 1.0, cos, 1e-12)

	sin, cos = Cyclical(3, 12)
	assert.InDelta(t, 1.0, sin, 1e-12)
	assert.InDelta(t, 0.0, cos, 1e-12)

	// Period 12 wraps back to the start of the cycle.
	sin12, cos12 := Cyclical(12, 12)
	assert.InDelta(t, 0.0, sin12, 1e-12)
	assert.InDelta(t, 1.0, cos12, 1e-12)
}

func TestRollingStats(t *testing.T) {
	values := []float64{2, 4, 6, 8}

	mean, std := rollingStats(values, 3, 3)
	assert.InDelta(t, 6.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)

	// Window clipped at the start of the series.
	mean, std = rollingStats(values, 0, 3)
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.Equal(t, 0.0, std)

	mean, std = rollingStats(values, 1, 3)
	assert.InDelta(t, 3.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt2, std, 1e-12)
}

func TestLastRowIsACopy(t *testing.T) {
	m, err := DeriveMonthly(monthlySeries(20))
	require.NoError(t, err)

	row := m.LastRow()
	row[0] = -999
	assert.NotEqual(t, -999.0, m.Rows[len(m.Rows)-1][0])
}
