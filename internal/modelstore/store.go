// Package modelstore persists trained model bundles. A bundle is the full
// artifact needed to forecast without refitting: the fitted model, the
// feature scaler, and the feature manifest the model was trained against.
//
// Saves are atomic. A bundle is written to a temp file in the target
// directory and renamed into place, so concurrent readers always see
// either the previous bundle or the new one, never a partial write.
package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/regress"
)

// SchemaVersion identifies the bundle layout. Bundles with a different
// version are rejected at load time.
const SchemaVersion = 1

// ModelType selects which fitted model a bundle carries.
type ModelType string

const (
	ModelForest ModelType = "forest"
	ModelLinear ModelType = "linear"
)

// Bundle is a persisted training artifact.
type Bundle struct {
	SchemaVersion int                  `json:"schema_version"`
	Granularity   domain.Granularity   `json:"granularity"`
	ModelType     ModelType            `json:"model_type"`
	Forest        *regress.Forest      `json:"forest,omitempty"`
	Linear        *regress.Linear      `json:"linear,omitempty"`
	Scaler        *regress.Scaler      `json:"scaler"`
	FeatureNames  []string             `json:"feature_names"`
	Metrics       domain.MetricsReport `json:"metrics"`
	TrainedAt     time.Time            `json:"trained_at"`
}

// Model returns the fitted model inside the bundle.
func (b *Bundle) Model() (regress.Model, error) {
	switch b.ModelType {
	case ModelForest:
		if b.Forest == nil {
			return nil, fmt.Errorf("bundle declares forest model but carries none: %w", domain.ErrPersistence)
		}
		return b.Forest, nil
	case ModelLinear:
		if b.Linear == nil {
			return nil, fmt.Errorf("bundle declares linear model but carries none: %w", domain.ErrPersistence)
		}
		return b.Linear, nil
	default:
		return nil, fmt.Errorf("unknown model type %q: %w", b.ModelType, domain.ErrPersistence)
	}
}

// Store loads and saves model bundles per granularity.
type Store interface {
	Load(g domain.Granularity) (*Bundle, error)
	Save(g domain.Granularity, b *Bundle) error
}

// FSStore keeps one bundle file per granularity under Dir.
type FSStore struct {
	Dir string
}

// NewFSStore returns a store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", errors.Join(domain.ErrPersistence, err))
	}
	return &FSStore{Dir: dir}, nil
}

func (s *FSStore) path(g domain.Granularity) string {
	return filepath.Join(s.Dir, fmt.Sprintf("model_%s.json", g))
}

// Load reads the bundle for g. A missing bundle returns (nil, nil); the
// caller decides whether that is an error.
func (s *FSStore) Load(g domain.Granularity) (*Bundle, error) {
	data, err := os.ReadFile(s.path(g))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", errors.Join(domain.ErrPersistence, err))
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", errors.Join(domain.ErrPersistence, err))
	}
	if b.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("bundle schema version %d, want %d: %w", b.SchemaVersion, SchemaVersion, domain.ErrPersistence)
	}
	return &b, nil
}

// Save writes the bundle for g atomically, replacing any previous bundle.
func (s *FSStore) Save(g domain.Granularity, b *Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", errors.Join(domain.ErrPersistence, err))
	}

	tmp, err := os.CreateTemp(s.Dir, fmt.Sprintf(".model_%s_*.json", g))
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", errors.Join(domain.ErrPersistence, err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp bundle: %w", errors.Join(domain.ErrPersistence, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp bundle: %w", errors.Join(domain.ErrPersistence, err))
	}

	if err := os.Rename(tmpName, s.path(g)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace bundle: %w", errors.Join(domain.ErrPersistence, err))
	}
	return nil
}
