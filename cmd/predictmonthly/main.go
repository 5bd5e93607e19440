// Command predictmonthly runs one prediction pass from the command line:
// optionally re-aggregate and retrain, then forecast every region and store
// the predictions.
//
// Usage:
//
//	go run ./cmd/predictmonthly -train -aggregate -horizon 12
//	go run ./cmd/predictmonthly -region 3 -horizon 6
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	kafkaadapter "github.com/ecotrack/climate-engine/internal/adapter/kafka"
	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/forecast"
	"github.com/ecotrack/climate-engine/internal/jobs"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	horizon := flag.Int("horizon", 0, "months to forecast (default: FORECAST_HORIZON)")
	train := flag.Bool("train", false, "retrain the monthly model before forecasting")
	aggregateFirst := flag.Bool("aggregate", false, "run an aggregation pass first")
	force := flag.Bool("force", false, "recompute existing aggregates during the aggregation pass")
	modelType := flag.String("model", "forest", "model type when -train is set: forest or linear")
	region := flag.Int64("region", 0, "restrict the run to one region (default: all)")
	publish := flag.Bool("publish", false, "publish forecasts to Kafka (requires KAFKA_BROKERS)")
	flag.Parse()

	mt := modelstore.ModelType(*modelType)
	if mt != modelstore.ModelForest && mt != modelstore.ModelLinear {
		return fmt.Errorf("invalid -model %q: must be forest or linear", *modelType)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *horizon == 0 {
		*horizon = cfg.ForecastHorizon
	}
	if *publish && !cfg.KafkaEnabled {
		return fmt.Errorf("-publish requires KAFKA_BROKERS")
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()

	ctx := context.Background()
	db, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	models, err := modelstore.NewFSStore(cfg.ModelDir)
	if err != nil {
		return err
	}

	engine := forecast.NewEngine(models, logger, metrics)
	aggregation := jobs.NewAggregationJob(db, logger, metrics)

	var publisher jobs.ForecastPublisher
	if *publish {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer kp.Close() //nolint:errcheck // best-effort close on exit
		publisher = kp
	}

	job := jobs.NewPredictionJob(db, engine, aggregation, publisher, logger, metrics)

	opts := jobs.PredictionOptions{
		Horizon:        *horizon,
		TrainFirst:     *train,
		AggregateFirst: *aggregateFirst,
		Aggregation:    jobs.AggregationOptions{MonthsBack: cfg.MonthsBack, Force: *force},
		ModelType:      mt,
	}
	if *region != 0 {
		opts.Regions = []int64{*region}
		opts.Aggregation.Regions = []int64{*region}
	}

	result, err := job.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("regions forecast: %d\n", result.RegionsForecast)
	fmt.Printf("regions skipped:  %d\n", result.RegionsSkipped)
	fmt.Printf("points stored:    %d\n", result.PointsStored)
	fmt.Printf("points published: %d\n", result.Published)
	fmt.Printf("failures:         %d\n", result.Failed)
	return nil
}
