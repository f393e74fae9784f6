package ensemble

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/core/parallel"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/sklearn/tree"
)

// RandomForestRegressor averages regression trees grown on bootstrap samples,
// drawing a random subset of features at every split.
type RandomForestRegressor struct {
	state *model.StateManager

	nEstimators    int
	maxFeatures    int
	minSamplesLeaf int
	maxDepth       int
	seed           uint64
	nJobs          int

	trees    []*tree.Tree
	oobCurve []float64
	oobPred  []float64
}

// RandomForestOption configures a RandomForestRegressor.
type RandomForestOption func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.nEstimators = n }
}

// WithMaxFeatures sets the number of features drawn at each split;
// 0 means max(1, P/3).
func WithMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.maxFeatures = n }
}

// WithMinSamplesLeaf sets the minimum leaf size.
func WithMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.minSamplesLeaf = n }
}

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.maxDepth = depth }
}

// WithRandomState seeds bootstrap sampling and feature draws.
func WithRandomState(seed uint64) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.seed = seed }
}

// WithNJobs sets the number of goroutines growing trees; 0 means one per CPU.
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.nJobs = n }
}

// NewRandomForestRegressor creates a forest with 500 trees and leaves of at
// least five samples.
func NewRandomForestRegressor(opts ...RandomForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		state:          model.NewStateManager(),
		nEstimators:    500,
		minSamplesLeaf: 5,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows the forest.
func (rf *RandomForestRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext grows the forest, skipping the remaining trees once ctx is done.
//
// Every tree draws from its own generator seeded from the forest seed, and
// trees are written to fixed slots, so the result does not depend on nJobs.
func (rf *RandomForestRegressor) FitContext(ctx context.Context, X mat.Matrix, y *mat.VecDense) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("RandomForestRegressor.Fit", n, y.Len(), 0)
	}
	switch {
	case rf.nEstimators < 1:
		return errors.NewValidationError("n_trees", "must be >= 1", rf.nEstimators)
	case rf.maxFeatures < 0 || rf.maxFeatures > p:
		return errors.NewValidationError("max_features", "must be in [0, n_features]", rf.maxFeatures)
	case rf.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", rf.minSamplesLeaf)
	case rf.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", rf.maxDepth)
	}

	mtry := rf.maxFeatures
	if mtry == 0 {
		mtry = max(1, p/3)
	}

	Xd := mat.DenseCopyOf(X)
	grad, hess := tree.SquaredErrorStats(y)

	master := rand.New(rand.NewPCG(rf.seed, 0x5eed))
	seeds := make([]uint64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]*tree.Tree, rf.nEstimators)
	inBag := make([][]bool, rf.nEstimators)
	parallel.ParallelizeN(rf.nEstimators, rf.nJobs, func(start, end int) {
		for t := start; t < end; t++ {
			if ctx.Err() != nil {
				return
			}
			r := rand.New(rand.NewPCG(seeds[t], uint64(t)))
			sample := make([]int, n)
			bag := make([]bool, n)
			for i := range sample {
				sample[i] = r.IntN(n)
				bag[sample[i]] = true
			}
			trees[t] = tree.Grow(Xd, grad, hess, sample, tree.GrowConfig{
				MaxDepth:       rf.maxDepth,
				MinSamplesLeaf: rf.minSamplesLeaf,
				MaxFeatures:    mtry,
				Rand:           r,
			})
			inBag[t] = bag
		}
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	rf.trees = trees
	rf.computeOOB(Xd, y, inBag)
	rf.state.SetFitted(p, n)
	return nil
}

// computeOOB records the out-of-bag RMSE after each tree is added. Samples
// that have not yet been out of bag are left out; the value is NaN while no
// sample has an out-of-bag prediction.
func (rf *RandomForestRegressor) computeOOB(X *mat.Dense, y *mat.VecDense, inBag [][]bool) {
	n, _ := X.Dims()
	sum := make([]float64, n)
	count := make([]int, n)
	rf.oobCurve = make([]float64, len(rf.trees))

	for t, tr := range rf.trees {
		for i := 0; i < n; i++ {
			if !inBag[t][i] {
				sum[i] += tr.PredictRow(X.RawRowView(i))
				count[i]++
			}
		}
		var sse float64
		m := 0
		for i := 0; i < n; i++ {
			if count[i] > 0 {
				d := y.AtVec(i) - sum[i]/float64(count[i])
				sse += d * d
				m++
			}
		}
		if m == 0 {
			rf.oobCurve[t] = math.NaN()
		} else {
			rf.oobCurve[t] = math.Sqrt(sse / float64(m))
		}
	}

	rf.oobPred = make([]float64, n)
	for i := range rf.oobPred {
		if count[i] > 0 {
			rf.oobPred[i] = sum[i] / float64(count[i])
		} else {
			rf.oobPred[i] = math.NaN()
		}
	}
}

// Predict averages the trees' predictions.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := rf.state.RequirePredictable("RandomForestRegressor", X); err != nil {
		return nil, err
	}
	return tree.PredictTrees(X, rf.trees, 1/float64(len(rf.trees)), 0), nil
}

// OOBPrediction returns the out-of-bag prediction of every training sample;
// NaN for samples that were in every bootstrap sample.
func (rf *RandomForestRegressor) OOBPrediction() []float64 {
	return append([]float64(nil), rf.oobPred...)
}

// Curve reports the out-of-bag RMSE as trees are added.
func (rf *RandomForestRegressor) Curve() model.Curve {
	return model.Curve{Name: "oob_rmse_by_tree", Values: append([]float64(nil), rf.oobCurve...)}
}

// Trees returns the fitted trees.
func (rf *RandomForestRegressor) Trees() []*tree.Tree {
	return rf.trees
}
