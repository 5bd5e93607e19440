// Command trainmodel trains one model from the command line and prints its
// evaluation report. Monthly models train on the pooled aggregate history
// of every region; fine-grained models train on one region's recent
// observations.
//
// Usage:
//
//	go run ./cmd/trainmodel -granularity monthly -model forest
//	go run ./cmd/trainmodel -granularity fine -region 3 -days 60
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/forecast"
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
	granularity := flag.String("granularity", "monthly", "model to train: monthly or fine")
	modelType := flag.String("model", "forest", "model type: forest or linear")
	region := flag.Int64("region", 0, "region id (required for fine-grained training)")
	days := flag.Int("days", 60, "days of observations used for fine-grained training")
	flag.Parse()

	g := domain.Granularity(*granularity)
	if !g.Valid() {
		return fmt.Errorf("invalid -granularity %q: must be monthly or fine", *granularity)
	}
	mt := modelstore.ModelType(*modelType)
	if mt != modelstore.ModelForest && mt != modelstore.ModelLinear {
		return fmt.Errorf("invalid -model %q: must be forest or linear", *modelType)
	}
	if g == domain.GranularityFine && *region == 0 {
		return fmt.Errorf("-region is required for fine-grained training")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
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
	trainer := forecast.NewTrainer(models, logger, metrics)

	var report *domain.MetricsReport
	if g == domain.GranularityMonthly {
		report, err = trainMonthly(ctx, db, trainer, mt)
	} else {
		report, err = trainFine(ctx, db, trainer, mt, *region, *days)
	}
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func trainMonthly(ctx context.Context, db *store.PostgresStore, trainer *forecast.Trainer, mt modelstore.ModelType) (*domain.MetricsReport, error) {
	regions, err := db.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	histories := make([][]domain.MonthlyAggregate, 0, len(regions))
	for _, region := range regions {
		history, err := db.MonthlyHistory(ctx, region)
		if err != nil {
			return nil, err
		}
		histories = append(histories, domain.ObservedOnly(history))
	}
	return trainer.TrainMonthlyMulti(histories, mt)
}

func trainFine(ctx context.Context, db *store.PostgresStore, trainer *forecast.Trainer, mt modelstore.ModelType, region int64, days int) (*domain.MetricsReport, error) {
	to := domain.Clock().Now().UTC()
	from := to.AddDate(0, 0, -days)
	obs, err := db.ObservationsInRange(ctx, region, from, to)
	if err != nil {
		return nil, err
	}
	return trainer.TrainFine(obs, mt)
}

func printReport(r *domain.MetricsReport) {
	fmt.Printf("granularity:  %s\n", r.Granularity)
	fmt.Printf("model:        %s\n", r.ModelType)
	fmt.Printf("samples:      %d (%d features)\n", r.SampleCount, r.FeatureCount)
	fmt.Printf("train:        MAE %.3f  RMSE %.3f  R2 %.3f\n", r.TrainMAE, r.TrainRMSE, r.TrainR2)
	fmt.Printf("test:         MAE %.3f  RMSE %.3f  R2 %.3f (%s)\n", r.TestMAE, r.TestRMSE, r.TestR2, r.AccuracyBand())
	fmt.Printf("trained at:   %s\n", r.TrainedAt.Format(time.RFC3339))
}
