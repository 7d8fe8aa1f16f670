package advisor

import (
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Grid is the hyperparameter search space. Every combination is evaluated.
type Grid struct {
	Trees           []int `json:"trees" yaml:"trees"`
	MaxDepth        []int `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit []int `json:"min_samples_split" yaml:"min_samples_split"`
}

// DefaultGrid is the standard search space: 27 combinations.
func DefaultGrid() Grid {
	return Grid{
		Trees:           []int{50, 100, 200},
		MaxDepth:        []int{0, 10, 20},
		MinSamplesSplit: []int{2, 5, 10},
	}
}

// Combinations expands the grid in a fixed order: trees, then depth, then
// minimum split size.
func (g Grid) Combinations() []Params {
	var out []Params
	for _, t := range g.Trees {
		for _, d := range g.MaxDepth {
			for _, m := range g.MinSamplesSplit {
				out = append(out, Params{Trees: t, MaxDepth: d, MinSamplesSplit: m})
			}
		}
	}
	return out
}

// Dataset is the training data for model selection.
type Dataset struct {
	Features []string
	IDs      []string
	X        [][]float64
	Y        []float64
}

// SearchOptions controls SelectModel.
type SearchOptions struct {
	Grid    Grid
	Folds   int
	Seed    int64
	Workers int
}

// GridResult is the cross-validated error of one grid point.
type GridResult struct {
	Params  Params  `json:"params"`
	CVError float64 `json:"cv_error"`
}

// Selection is the outcome of a grid search.
type Selection struct {
	Best      Params
	CVError   float64
	Forest    *Forest
	Evaluated []GridResult
}

// SelectModel evaluates every grid point by k-fold cross-validated mean
// squared error and refits the best one on all rows. The result depends only
// on the data, the grid and the seed: fold assignment and every forest are
// seeded, and ties go to the earlier grid point. Workers only changes how many
// grid points are evaluated at once.
func SelectModel(data Dataset, opts SearchOptions) (*Selection, error) {
	n := len(data.X)
	if n < MinTrainingCandidates {
		return nil, &InsufficientTrainingDataError{Have: n, Need: MinTrainingCandidates}
	}
	if len(data.Y) != n {
		return nil, fmt.Errorf("advisor: %d feature rows but %d targets", n, len(data.Y))
	}

	combos := opts.Grid.Combinations()
	if len(combos) == 0 {
		return nil, fmt.Errorf("advisor: hyperparameter grid is empty")
	}
	for _, p := range combos {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("advisor: grid point %s: %w", p, err)
		}
	}

	k := opts.Folds
	if k < 2 {
		return nil, fmt.Errorf("advisor: need at least 2 folds, got %d", k)
	}
	k = min(k, n)

	folds := assignFolds(n, k, opts.Seed)

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]GridResult, len(combos))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range combos {
		i, p := i, p
		g.Go(func() error {
			cv, err := crossValidate(data, folds, k, p, opts.Seed)
			if err != nil {
				return fmt.Errorf("advisor: grid point %s: %w", p, err)
			}
			results[i] = GridResult{Params: p, CVError: cv}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].CVError < results[best].CVError {
			best = i
		}
	}

	forest, err := FitForest(data.X, data.Y, results[best].Params, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, fmt.Errorf("advisor: refit: %w", err)
	}

	return &Selection{
		Best:      results[best].Params,
		CVError:   results[best].CVError,
		Forest:    forest,
		Evaluated: results,
	}, nil
}

// assignFolds shuffles row indices with the seed and deals them round-robin.
func assignFolds(n, k int, seed int64) []int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([]int, n)
	for pos, row := range perm {
		folds[row] = pos % k
	}
	return folds
}

func crossValidate(data Dataset, folds []int, k int, p Params, seed int64) (float64, error) {
	var sse float64
	var count int

	for fold := 0; fold < k; fold++ {
		var trainX [][]float64
		var trainY []float64
		var test []int
		for i := range data.X {
			if folds[i] == fold {
				test = append(test, i)
				continue
			}
			trainX = append(trainX, data.X[i])
			trainY = append(trainY, data.Y[i])
		}
		if len(test) == 0 || len(trainX) == 0 {
			continue
		}

		f, err := FitForest(trainX, trainY, p, rand.New(rand.NewSource(seed+int64(fold)+1)))
		if err != nil {
			return 0, err
		}
		for _, i := range test {
			d := f.Predict(data.X[i]) - data.Y[i]
			sse += d * d
			count++
		}
	}

	if count == 0 {
		return 0, fmt.Errorf("no held-out rows")
	}
	return sse / float64(count), nil
}
