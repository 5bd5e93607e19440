package regress

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
)

// ForestConfig holds the hyperparameters of a bagged tree ensemble.
type ForestConfig struct {
	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// MonthlyForestConfig returns the ensemble size used for monthly models.
func MonthlyForestConfig() ForestConfig {
	return ForestConfig{NumTrees: 200, MaxDepth: 15, MinSamplesSplit: 5, MinSamplesLeaf: 2, Seed: 42}
}

// FineForestConfig returns the ensemble size used for fine-grained models.
func FineForestConfig() ForestConfig {
	return ForestConfig{NumTrees: 100, MaxDepth: 10, MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: 42}
}

// Forest is a bagged ensemble of regression trees. A fitted forest is
// fully described by its config and trees, so JSON round-trips reproduce
// predictions exactly.
type Forest struct {
	Config ForestConfig `json:"config"`
	Trees  []*TreeNode  `json:"trees"`
}

// FitForest trains cfg.NumTrees regression trees on bootstrap resamples of
// rows. Tree i draws its resample from a rand seeded with cfg.Seed+i, so the
// fitted forest is identical regardless of how tree construction is
// scheduled across workers.
func FitForest(rows [][]float64, target []float64, cfg ForestConfig) (*Forest, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("regress: no training rows")
	}
	if len(rows) != len(target) {
		return nil, fmt.Errorf("regress: %d rows but %d targets", len(rows), len(target))
	}

	trees := make([]*TreeNode, cfg.NumTrees)
	params := treeParams{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		minSamplesLeaf:  cfg.MinSamplesLeaf,
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > cfg.NumTrees {
		workers = cfg.NumTrees
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range work {
				rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))
				idx := make([]int, len(rows))
				for i := range idx {
					idx[i] = rng.Intn(len(rows))
				}
				trees[t] = buildTree(rows, target, idx, 0, params)
			}
		}()
	}
	for t := 0; t < cfg.NumTrees; t++ {
		work <- t
	}
	close(work)
	wg.Wait()

	return &Forest{Config: cfg, Trees: trees}, nil
}

// Predict returns the mean prediction over all trees.
func (f *Forest) Predict(row []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.Trees))
}
