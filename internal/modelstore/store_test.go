package modelstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/regress"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()

	rows := [][]float64{{1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 6}, {6, 7}}
	target := []float64{1, 2, 3, 4, 5, 6}
	forest, err := regress.FitForest(rows, target, regress.ForestConfig{
		NumTrees: 5, MaxDepth: 4, MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: 1,
	})
	require.NoError(t, err)

	return &Bundle{
		SchemaVersion: SchemaVersion,
		Granularity:   domain.GranularityMonthly,
		ModelType:     ModelForest,
		Forest:        forest,
		Scaler:        regress.FitScaler(rows),
		FeatureNames:  []string{"a", "b"},
		TrainedAt:     time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	b := testBundle(t)
	require.NoError(t, store.Save(domain.GranularityMonthly, b))

	loaded, err := store.Load(domain.GranularityMonthly)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, b.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, b.ModelType, loaded.ModelType)
	assert.True(t, b.TrainedAt.Equal(loaded.TrainedAt))

	m, err := loaded.Model()
	require.NoError(t, err)
	orig, err := b.Model()
	require.NoError(t, err)
	probe := loaded.Scaler.Transform([]float64{3.5, 4.5})
	assert.Equal(t, orig.Predict(probe), m.Predict(probe))
}

func TestFSStoreLoadMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	b, err := store.Load(domain.GranularityFine)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFSStoreSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	first := testBundle(t)
	require.NoError(t, store.Save(domain.GranularityMonthly, first))

	second := testBundle(t)
	second.FeatureNames = []string{"a", "b", "c"}
	require.NoError(t, store.Save(domain.GranularityMonthly, second))

	loaded, err := store.Load(domain.GranularityMonthly)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, loaded.FeatureNames)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model_monthly.json", entries[0].Name())
}

func TestFSStoreLoadRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	payload := []byte(`{"schema_version": 99, "granularity": "monthly", "model_type": "forest"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model_monthly.json"), payload, 0o644))

	_, err = store.Load(domain.GranularityMonthly)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestFSStoreLoadRejectsCorruptBundle(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "model_fine.json"), []byte("{nope"), 0o644))

	_, err = store.Load(domain.GranularityFine)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestBundleModelMismatch(t *testing.T) {
	b := &Bundle{SchemaVersion: SchemaVersion, ModelType: ModelLinear}
	_, err := b.Model()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
