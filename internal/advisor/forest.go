package advisor

import (
	"fmt"
	"math/rand"
	"sort"
)

// Params are the hyperparameters of a random forest regressor.
type Params struct {
	Trees           int `json:"trees" yaml:"trees"`
	MaxDepth        int `json:"max_depth" yaml:"max_depth"` // 0 = unlimited
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split"`
}

func (p Params) String() string {
	depth := "unlimited"
	if p.MaxDepth > 0 {
		depth = fmt.Sprint(p.MaxDepth)
	}
	return fmt.Sprintf("trees=%d max_depth=%s min_samples_split=%d", p.Trees, depth, p.MinSamplesSplit)
}

// Validate checks the hyperparameters are usable.
func (p Params) Validate() error {
	if p.Trees < 1 {
		return fmt.Errorf("trees must be >= 1, got %d", p.Trees)
	}
	if p.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be >= 2, got %d", p.MinSamplesSplit)
	}
	return nil
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Forest is a fitted random forest of CART regression trees.
type Forest struct {
	params      Params
	trees       []*node
	importances []float64
}

// Params returns the hyperparameters the forest was fitted with.
func (f *Forest) Params() Params { return f.params }

// Importances returns the normalized impurity-decrease importance of each
// feature, in feature order. They sum to 1 unless no split was ever made.
func (f *Forest) Importances() []float64 {
	return append([]float64(nil), f.importances...)
}

// Predict averages the predictions of all trees.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

// FitForest trains a forest on bootstrap samples drawn from rng. Every
// feature is considered at every split, so the only randomness is the
// bootstrap; a fixed seed reproduces the forest exactly.
func FitForest(X [][]float64, y []float64, p Params, rng *rand.Rand) (*Forest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("forest: %d rows but %d targets", len(X), len(y))
	}

	nFeatures := len(X[0])
	f := &Forest{params: p, importances: make([]float64, nFeatures)}
	n := len(X)

	for t := 0; t < p.Trees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}

		treeImp := make([]float64, nFeatures)
		b := &builder{X: X, y: y, p: p, importances: treeImp}
		f.trees = append(f.trees, b.build(idx, 0))

		normalizeInPlace(treeImp)
		for j, v := range treeImp {
			f.importances[j] += v
		}
	}
	normalizeInPlace(f.importances)
	return f, nil
}

type builder struct {
	X           [][]float64
	y           []float64
	p           Params
	importances []float64
}

func (b *builder) build(idx []int, depth int) *node {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	if len(idx) < b.p.MinSamplesSplit || (b.p.MaxDepth > 0 && depth >= b.p.MaxDepth) || sse <= 1e-12 {
		return &node{leaf: true, value: mean}
	}

	sp, ok := b.bestSplit(idx, sum, sumSq)
	if !ok {
		return &node{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][sp.feature] <= sp.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[sp.feature] += sse - sp.childSSE

	return &node{
		feature:   sp.feature,
		threshold: sp.threshold,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

type split struct {
	feature   int
	threshold float64
	childSSE  float64
}

// bestSplit finds the split minimizing the summed squared error of both
// children. Ties keep the first candidate in feature then value order.
func (b *builder) bestSplit(idx []int, sum, sumSq float64) (split, bool) {
	best := split{}
	found := false
	n := len(idx)
	sorted := make([]int, n)

	for f := range b.X[idx[0]] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})

		lSum, lSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			yi := b.y[sorted[k]]
			lSum += yi
			lSq += yi * yi

			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}

			ln := float64(k + 1)
			rn := float64(n - k - 1)
			rSum, rSq := sum-lSum, sumSq-lSq
			childSSE := (lSq - lSum*lSum/ln) + (rSq - rSum*rSum/rn)

			if !found || childSSE < best.childSSE {
				best = split{feature: f, threshold: (cur + next) / 2, childSSE: childSSE}
				found = true
			}
		}
	}
	return best, found
}

func normalizeInPlace(v []float64) {
	var total float64
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return
	}
	for i := range v {
		v[i] /= total
	}
}
