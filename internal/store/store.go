// Package store persists observations and monthly aggregates. The
// Postgres implementation backs production; the in-memory implementation
// backs tests and local tooling.
package store

import (
	"context"
	"time"

	"github.com/ecotrack/climate-engine/internal/domain"
)

// ObservationStore reads and writes fine-grained climate readings.
type ObservationStore interface {
	// InsertObservations stores a batch of readings.
	InsertObservations(ctx context.Context, obs []domain.Observation) error
	// ObservationsInRange returns a region's readings with
	// from <= timestamp < to, ordered by timestamp.
	ObservationsInRange(ctx context.Context, regionID int64, from, to time.Time) ([]domain.Observation, error)
	// ListRegions returns every region that has at least one reading.
	ListRegions(ctx context.Context) ([]int64, error)
}

// AggregateStore reads and writes monthly climate summaries.
type AggregateStore interface {
	// MonthlyHistory returns a region's aggregates in chronological order.
	MonthlyHistory(ctx context.Context, regionID int64) ([]domain.MonthlyAggregate, error)
	// HasAggregate reports whether a (region, year, month) rollup exists.
	HasAggregate(ctx context.Context, regionID int64, year, month int) (bool, error)
	// UpsertAggregate inserts or replaces the observed fields of a rollup.
	// Predicted fields of an existing row are preserved.
	UpsertAggregate(ctx context.Context, agg domain.MonthlyAggregate) error
	// UpsertPrediction sets the predicted temperature and confidence on a
	// (region, year, month) row, creating the row when the month lies in
	// the future and has no observed data yet.
	UpsertPrediction(ctx context.Context, regionID int64, year, month int, temperature, confidence float64) error
}

// Store combines both persistence surfaces.
type Store interface {
	ObservationStore
	AggregateStore
}
