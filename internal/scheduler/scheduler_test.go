package scheduler

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/forecast"
	"github.com/ecotrack/climate-engine/internal/jobs"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/store"
)

func testJobs(t *testing.T) (*jobs.AggregationJob, *jobs.PredictionJob) {
	t.Helper()

	mem := store.NewMemoryStore()
	models, err := modelstore.NewFSStore(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	engine := forecast.NewEngine(models, logger, metrics)
	aggregation := jobs.NewAggregationJob(mem, logger, metrics)
	prediction := jobs.NewPredictionJob(mem, engine, aggregation, nil, logger, metrics)
	return aggregation, prediction
}

func TestNewSchedulesBothJobs(t *testing.T) {
	aggregation, prediction := testJobs(t)
	cfg := &config.Config{
		AggregationSpec: "0 2 1 * *",
		PredictionSpec:  "0 4 1 * *",
		MonthsBack:      3,
		ForecastHorizon: 12,
	}

	s, err := New(context.Background(), cfg, aggregation, prediction, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 2)
}

func TestNewRejectsBadSpec(t *testing.T) {
	aggregation, prediction := testJobs(t)
	cfg := &config.Config{
		AggregationSpec: "not a cron spec",
		PredictionSpec:  "0 4 1 * *",
	}

	_, err := New(context.Background(), cfg, aggregation, prediction, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregation")
}
