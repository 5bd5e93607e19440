package domain

import "errors"

var (
	// ErrInsufficientData means the history or sample count is below the
	// granularity's minimum and nothing could be derived or trained.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelNotTrained means a forecast was requested before any model
	// bundle was trained and persisted for the granularity.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrInsufficientHistory means the forecast history is shorter than
	// max lag + 1 points, so no feature window can be derived.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrFeatureMismatch means a freshly derived feature manifest disagrees
	// with the manifest persisted alongside a trained model. The mismatch is
	// never reconciled by padding or truncation.
	ErrFeatureMismatch = errors.New("feature manifest mismatch")

	// ErrPersistence wraps failures reading or writing durable state, a
	// model bundle or a database row alike.
	ErrPersistence = errors.New("persistence failure")
)
