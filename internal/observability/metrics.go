package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecasting engine.
type Metrics struct {
	TrainingRuns     *prometheus.CounterVec   // labels: granularity, outcome={success,error}
	TrainingDuration *prometheus.HistogramVec // labels: granularity
	ModelTestR2      *prometheus.GaugeVec     // labels: granularity

	ForecastRuns     *prometheus.CounterVec   // labels: granularity, outcome={success,error}
	ForecastDuration *prometheus.HistogramVec // labels: granularity
	ForecastSteps    prometheus.Histogram

	// Aggregation job metrics.
	AggregatesCreated prometheus.Counter
	AggregatesUpdated prometheus.Counter
	AggregatesSkipped prometheus.Counter

	PredictionsStored  prometheus.Counter
	ForecastsPublished prometheus.Counter

	JobRunning *prometheus.GaugeVec // labels: job={aggregation,prediction}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "training_runs_total",
			Help:      "Model training runs by granularity and outcome.",
		}, []string{"granularity", "outcome"}),
		TrainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climate_engine",
			Name:      "training_duration_seconds",
			Help:      "Duration of a complete derive-fit-persist training run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"granularity"}),
		ModelTestR2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "climate_engine",
			Name:      "model_test_r2",
			Help:      "Held-out R2 score of the most recently trained model.",
		}, []string{"granularity"}),
		ForecastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "forecast_runs_total",
			Help:      "Forecast requests by granularity and outcome.",
		}, []string{"granularity", "outcome"}),
		ForecastDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climate_engine",
			Name:      "forecast_duration_seconds",
			Help:      "Duration of a multi-step forecast.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"granularity"}),
		ForecastSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_engine",
			Name:      "forecast_steps",
			Help:      "Number of steps requested per forecast.",
			Buckets:   []float64{1, 3, 6, 12, 24, 48},
		}),
		AggregatesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "aggregates_created_total",
			Help:      "Monthly aggregates created by the aggregation job.",
		}),
		AggregatesUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "aggregates_updated_total",
			Help:      "Monthly aggregates recomputed by a forced aggregation run.",
		}),
		AggregatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "aggregates_skipped_total",
			Help:      "Months skipped because an aggregate already existed.",
		}),
		PredictionsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "predictions_stored_total",
			Help:      "Future-month predictions upserted by the prediction job.",
		}),
		ForecastsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_engine",
			Name:      "forecasts_published_total",
			Help:      "Forecast points published to Kafka.",
		}),
		JobRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "climate_engine",
			Name:      "job_running",
			Help:      "1 while the named scheduled job is active.",
		}, []string{"job"}),
	}

	prometheus.MustRegister(
		m.TrainingRuns,
		m.TrainingDuration,
		m.ModelTestR2,
		m.ForecastRuns,
		m.ForecastDuration,
		m.ForecastSteps,
		m.AggregatesCreated,
		m.AggregatesUpdated,
		m.AggregatesSkipped,
		m.PredictionsStored,
		m.ForecastsPublished,
		m.JobRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		TrainingRuns:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_engine", Name: "training_runs_total"}, []string{"granularity", "outcome"}),
		TrainingDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "climate_engine", Name: "training_duration_seconds"}, []string{"granularity"}),
		ModelTestR2:        prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "climate_engine", Name: "model_test_r2"}, []string{"granularity"}),
		ForecastRuns:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_engine", Name: "forecast_runs_total"}, []string{"granularity", "outcome"}),
		ForecastDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "climate_engine", Name: "forecast_duration_seconds"}, []string{"granularity"}),
		ForecastSteps:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_engine", Name: "forecast_steps"}),
		AggregatesCreated:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_engine", Name: "aggregates_created_total"}),
		AggregatesUpdated:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_engine", Name: "aggregates_updated_total"}),
		AggregatesSkipped:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_engine", Name: "aggregates_skipped_total"}),
		PredictionsStored:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_engine", Name: "predictions_stored_total"}),
		ForecastsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_engine", Name: "forecasts_published_total"}),
		JobRunning:         prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "climate_engine", Name: "job_running"}, []string{"job"}),
	}
}
