package tree

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree minimizing squared error.
type DecisionTreeRegressor struct {
	state *model.StateManager

	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int
	seed           uint64

	tree *Tree
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the tree depth; 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(d *DecisionTreeRegressor) { d.maxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(d *DecisionTreeRegressor) { d.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many randomly drawn features are examined at each
// split; 0 means all.
func WithMaxFeatures(n int) Option {
	return func(d *DecisionTreeRegressor) { d.maxFeatures = n }
}

// WithRandomState seeds the feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(d *DecisionTreeRegressor) { d.seed = seed }
}

// NewDecisionTreeRegressor creates a regression tree.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	d := &DecisionTreeRegressor{
		state:          model.NewStateManager(),
		minSamplesLeaf: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fit grows the tree on every row of X.
func (d *DecisionTreeRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", n, y.Len(), 0)
	}
	switch {
	case d.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", d.maxDepth)
	case d.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", d.minSamplesLeaf)
	case d.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", d.maxFeatures)
	}

	Xd := mat.DenseCopyOf(X)
	grad, hess := SquaredErrorStats(y)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	d.tree = Grow(Xd, grad, hess, indices, GrowConfig{
		MaxDepth:       d.maxDepth,
		MinSamplesLeaf: d.minSamplesLeaf,
		MaxFeatures:    d.maxFeatures,
		Rand:           rand.New(rand.NewPCG(d.seed, d.seed)),
	})
	d.state.SetFitted(p, n)
	return nil
}

// Predict returns one prediction per row of X.
func (d *DecisionTreeRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := d.state.RequirePredictable("DecisionTreeRegressor", X); err != nil {
		return nil, err
	}
	return PredictTrees(X, []*Tree{d.tree}, 1, 0), nil
}

// Tree returns the fitted tree.
func (d *DecisionTreeRegressor) Tree() *Tree {
	return d.tree
}

// SquaredErrorStats returns the gradient -y and unit hessian for which a
// grown tree's leaves hold sample means.
func SquaredErrorStats(y mat.Vector) (grad, hess []float64) {
	n := y.Len()
	grad = make([]float64, n)
	hess = make([]float64, n)
	for i := 0; i < n; i++ {
		grad[i] = -y.AtVec(i)
		hess[i] = 1
	}
	return grad, hess
}

// PredictTrees returns base + scale·Σ tree(x) for every row of X.
func PredictTrees(X mat.Matrix, trees []*Tree, scale, base float64) *mat.VecDense {
	n, p := X.Dims()
	out := mat.NewVecDense(n, nil)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		var sum float64
		for _, t := range trees {
			sum += t.PredictRow(row)
		}
		out.SetVec(i, base+scale*sum)
	}
	return out
}
