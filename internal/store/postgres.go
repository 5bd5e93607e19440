package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecotrack/climate-engine/internal/domain"
)

// PostgresStore implements Store on a pgx connection pool.
//
// Schema:
//
//	CREATE TABLE observations (
//	  id BIGSERIAL PRIMARY KEY,
//	  region_id BIGINT NOT NULL,
//	  ts TIMESTAMPTZ NOT NULL,
//	  temperature DOUBLE PRECISION NOT NULL,
//	  humidity DOUBLE PRECISION NOT NULL,
//	  rainfall DOUBLE PRECISION NOT NULL,
//	  wind_speed DOUBLE PRECISION NOT NULL,
//	  wind_direction DOUBLE PRECISION NOT NULL,
//	  pressure DOUBLE PRECISION NOT NULL
//	);
//	CREATE INDEX idx_observations_region_ts ON observations(region_id, ts);
//
//	CREATE TABLE monthly_aggregates (
//	  region_id BIGINT NOT NULL,
//	  year INT NOT NULL,
//	  month INT NOT NULL,
//	  avg_temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  max_temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  min_temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  total_rainfall DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  avg_humidity DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  avg_wind_speed DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  observation_count INT NOT NULL DEFAULT 0,
//	  predicted_temperature DOUBLE PRECISION,
//	  predicted_rainfall DOUBLE PRECISION,
//	  prediction_confidence DOUBLE PRECISION,
//	  PRIMARY KEY (region_id, year, month)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", errors.Join(domain.ErrPersistence, err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", errors.Join(domain.ErrPersistence, err))
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertObservations stores a batch of readings in one round trip.
func (s *PostgresStore) InsertObservations(ctx context.Context, obs []domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(`
			INSERT INTO observations
			  (region_id, ts, temperature, humidity, rainfall, wind_speed, wind_direction, pressure)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.RegionID, o.Timestamp.UTC(), o.Temperature, o.Humidity,
			o.Rainfall, o.WindSpeed, o.WindDirection, o.Pressure)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert observations: %w", errors.Join(domain.ErrPersistence, err))
	}
	return nil
}

// ObservationsInRange returns a region's readings with from <= ts < to.
func (s *PostgresStore) ObservationsInRange(ctx context.Context, regionID int64, from, to time.Time) ([]domain.Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region_id, ts, temperature, humidity, rainfall, wind_speed, wind_direction, pressure
		FROM observations
		WHERE region_id = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts`,
		regionID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", errors.Join(domain.ErrPersistence, err))
	}
	defer rows.Close()

	var result []domain.Observation
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(&o.RegionID, &o.Timestamp, &o.Temperature, &o.Humidity,
			&o.Rainfall, &o.WindSpeed, &o.WindDirection, &o.Pressure); err != nil {
			return nil, fmt.Errorf("scan observation: %w", errors.Join(domain.ErrPersistence, err))
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", errors.Join(domain.ErrPersistence, err))
	}
	return result, nil
}

// ListRegions returns every region with at least one reading, ascending.
func (s *PostgresStore) ListRegions(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT region_id FROM observations ORDER BY region_id`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", errors.Join(domain.ErrPersistence, err))
	}
	defer rows.Close()

	var regions []int64
	for rows.Next() {
		var r int64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan region: %w", errors.Join(domain.ErrPersistence, err))
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate regions: %w", errors.Join(domain.ErrPersistence, err))
	}
	return regions, nil
}

// MonthlyHistory returns a region's aggregates in chronological order.
func (s *PostgresStore) MonthlyHistory(ctx context.Context, regionID int64) ([]domain.MonthlyAggregate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region_id, year, month,
		       avg_temperature, max_temperature, min_temperature,
		       total_rainfall, avg_humidity, avg_wind_speed, observation_count,
		       predicted_temperature, predicted_rainfall, prediction_confidence
		FROM monthly_aggregates
		WHERE region_id = $1
		ORDER BY year, month`,
		regionID)
	if err != nil {
		return nil, fmt.Errorf("query monthly history: %w", errors.Join(domain.ErrPersistence, err))
	}
	defer rows.Close()

	var result []domain.MonthlyAggregate
	for rows.Next() {
		var a domain.MonthlyAggregate
		if err := rows.Scan(&a.RegionID, &a.Year, &a.Month,
			&a.AvgTemperature, &a.MaxTemperature, &a.MinTemperature,
			&a.TotalRainfall, &a.AvgHumidity, &a.AvgWindSpeed, &a.ObservationCount,
			&a.PredictedTemperature, &a.PredictedRainfall, &a.PredictionConfidence); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", errors.Join(domain.ErrPersistence, err))
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", errors.Join(domain.ErrPersistence, err))
	}
	return result, nil
}

// HasAggregate reports whether a (region, year, month) rollup exists.
func (s *PostgresStore) HasAggregate(ctx context.Context, regionID int64, year, month int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM monthly_aggregates WHERE region_id = $1 AND year = $2 AND month = $3
		)`, regionID, year, month).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check aggregate: %w", errors.Join(domain.ErrPersistence, err))
	}
	return exists, nil
}

// UpsertAggregate inserts or replaces the observed fields of a rollup.
// Predicted fields of an existing row are left untouched.
func (s *PostgresStore) UpsertAggregate(ctx context.Context, agg domain.MonthlyAggregate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monthly_aggregates
		  (region_id, year, month, avg_temperature, max_temperature, min_temperature,
		   total_rainfall, avg_humidity, avg_wind_speed, observation_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (region_id, year, month) DO UPDATE SET
		  avg_temperature = EXCLUDED.avg_temperature,
		  max_temperature = EXCLUDED.max_temperature,
		  min_temperature = EXCLUDED.min_temperature,
		  total_rainfall = EXCLUDED.total_rainfall,
		  avg_humidity = EXCLUDED.avg_humidity,
		  avg_wind_speed = EXCLUDED.avg_wind_speed,
		  observation_count = EXCLUDED.observation_count`,
		agg.RegionID, agg.Year, agg.Month,
		agg.AvgTemperature, agg.MaxTemperature, agg.MinTemperature,
		agg.TotalRainfall, agg.AvgHumidity, agg.AvgWindSpeed, agg.ObservationCount)
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", errors.Join(domain.ErrPersistence, err))
	}
	return nil
}

// UpsertPrediction writes the predicted temperature and confidence for a
// month, creating the row when the month has no observed data yet.
func (s *PostgresStore) UpsertPrediction(ctx context.Context, regionID int64, year, month int, temperature, confidence float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monthly_aggregates
		  (region_id, year, month, predicted_temperature, prediction_confidence)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (region_id, year, month) DO UPDATE SET
		  predicted_temperature = EXCLUDED.predicted_temperature,
		  prediction_confidence = EXCLUDED.prediction_confidence`,
		regionID, year, month, temperature, confidence)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", errors.Join(domain.ErrPersistence, err))
	}
	return nil
}
