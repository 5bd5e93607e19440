// Package domain models the climate records and forecast outputs shared by
// the engine's components.
//
// # Granularities
//
// The engine trains one model per temporal granularity:
//
//	fine-grained  sub-daily readings (Observation), one row per sensor reading
//	monthly       per-(region, year, month) rollups (MonthlyAggregate)
//
// Feature derivation, minimum sample counts, and forecast calendar stepping
// all depend on the granularity; the constants live on Granularity so the
// two sets of rules cannot drift apart silently.
//
// # Record conventions
//
// Observations are owned by the ingestion collaborator and are read-only to
// the engine. MonthlyAggregates are unique per (region, year, month);
// re-running the aggregation job overwrites rather than duplicates. The
// Predicted* fields on MonthlyAggregate are pointers: nil means "no forecast
// stored for this period yet", which is distinct from a forecast of zero.
//
// # Error kinds
//
// Components signal failure classes through the sentinel errors in this
// package (ErrInsufficientData, ErrModelNotTrained, ErrInsufficientHistory,
// ErrFeatureMismatch, ErrPersistence), wrapped with context via
// fmt.Errorf("...: %w", err). Callers branch with errors.Is rather than
// string matching.
package domain
