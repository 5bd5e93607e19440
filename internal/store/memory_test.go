package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/climate-engine/internal/domain"
)

func TestMemoryStoreObservations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	obs := []domain.Observation{
		{RegionID: 2, Timestamp: base.Add(2 * time.Hour), Temperature: 22},
		{RegionID: 1, Timestamp: base, Temperature: 20},
		{RegionID: 1, Timestamp: base.Add(time.Hour), Temperature: 21},
	}
	require.NoError(t, s.InsertObservations(ctx, obs))

	regions, err := s.ListRegions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, regions)

	t.Run("range is half-open and ordered", func(t *testing.T) {
		got, err := s.ObservationsInRange(ctx, 1, base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 20.0, got[0].Temperature)

		got, err = s.ObservationsInRange(ctx, 1, base, base.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	})

	t.Run("unknown region is empty", func(t *testing.T) {
		got, err := s.ObservationsInRange(ctx, 99, base, base.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryStoreAggregates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	agg := domain.MonthlyAggregate{RegionID: 1, Year: 2026, Month: 3, AvgTemperature: 12.5, ObservationCount: 100}
	require.NoError(t, s.UpsertAggregate(ctx, agg))

	exists, err := s.HasAggregate(ctx, 1, 2026, 3)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.HasAggregate(ctx, 1, 2026, 4)
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("history is chronological", func(t *testing.T) {
		require.NoError(t, s.UpsertAggregate(ctx, domain.MonthlyAggregate{RegionID: 1, Year: 2025, Month: 12}))
		history, err := s.MonthlyHistory(ctx, 1)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 12, history[0].Month)
		assert.Equal(t, 3, history[1].Month)
	})

	t.Run("prediction survives aggregate upsert", func(t *testing.T) {
		require.NoError(t, s.UpsertPrediction(ctx, 1, 2026, 3, 14.2, 92))

		updated := agg
		updated.AvgTemperature = 12.6
		require.NoError(t, s.UpsertAggregate(ctx, updated))

		history, err := s.MonthlyHistory(ctx, 1)
		require.NoError(t, err)
		got := history[1]
		assert.InDelta(t, 12.6, got.AvgTemperature, 1e-12)
		require.NotNil(t, got.PredictedTemperature)
		assert.InDelta(t, 14.2, *got.PredictedTemperature, 1e-12)
		require.NotNil(t, got.PredictionConfidence)
		assert.InDelta(t, 92.0, *got.PredictionConfidence, 1e-12)
	})

	t.Run("prediction creates future row", func(t *testing.T) {
		require.NoError(t, s.UpsertPrediction(ctx, 1, 2026, 9, 18.0, 76))
		exists, err := s.HasAggregate(ctx, 1, 2026, 9)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
