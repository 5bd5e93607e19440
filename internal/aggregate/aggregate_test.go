package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/climate-engine/internal/domain"
)

func obsAt(region int64, ts time.Time, temp, humidity, rain, wind float64) domain.Observation {
	return domain.Observation{
		RegionID:    region,
		Timestamp:   ts,
		Temperature: temp,
		Humidity:    humidity,
		Rainfall:    rain,
		WindSpeed:   wind,
	}
}

func TestRollup(t *testing.T) {
	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	obs := []domain.Observation{
		obsAt(1, march, 10, 60, 2, 8),
		obsAt(1, march.Add(time.Hour), 20, 70, 3, 12),
		obsAt(1, march.AddDate(0, 1, 0), 15, 50, 0, 10), // April
		obsAt(2, march, 30, 40, 1, 5),                   // other region
	}

	aggs := Rollup(obs)
	require.Len(t, aggs, 3)

	first := aggs[0]
	assert.Equal(t, int64(1), first.RegionID)
	assert.Equal(t, 2026, first.Year)
	assert.Equal(t, 3, first.Month)
	assert.Equal(t, 2, first.ObservationCount)
	assert.InDelta(t, 15.0, first.AvgTemperature, 1e-12)
	assert.InDelta(t, 20.0, first.MaxTemperature, 1e-12)
	assert.InDelta(t, 10.0, first.MinTemperature, 1e-12)
	assert.InDelta(t, 5.0, first.TotalRainfall, 1e-12)
	assert.InDelta(t, 65.0, first.AvgHumidity, 1e-12)
	assert.InDelta(t, 10.0, first.AvgWindSpeed, 1e-12)

	assert.Equal(t, 4, aggs[1].Month)
	assert.Equal(t, int64(2), aggs[2].RegionID)
}

func TestRollupEmpty(t *testing.T) {
	assert.Empty(t, Rollup(nil))
}

func TestRollupMonthBoundaryUTC(t *testing.T) {
	// 23:30 on March 31 in UTC+2 is still March in local time but April
	// began in UTC; rollup must bucket by UTC.
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2026, time.April, 1, 1, 30, 0, 0, loc)

	aggs := Rollup([]domain.Observation{obsAt(1, ts, 12, 55, 0, 7)})
	require.Len(t, aggs, 1)
	assert.Equal(t, 3, aggs[0].Month)
	assert.Equal(t, 2026, aggs[0].Year)
}
