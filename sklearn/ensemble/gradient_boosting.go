package ensemble

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/sklearn/tree"
)

// GradientBoostingRegressor fits an additive model of regularized regression
// trees to the squared-error loss using first and second order statistics.
// Each round grows one tree on a row subsample restricted to a column
// subsample and adds it with shrinkage eta.
type GradientBoostingRegressor struct {
	state *model.StateManager

	nRounds        int
	eta            float64
	maxDepth       int
	subsample      float64
	colsample      float64
	lambda         float64
	gamma          float64
	minChildWeight float64
	seed           uint64
	callbacks      []Callback

	baseScore     float64
	trees         []*tree.Tree
	trainCurve    []float64
	validCurve    []float64
}

// GradientBoostingOption configures a GradientBoostingRegressor.
type GradientBoostingOption func(*GradientBoostingRegressor)

// WithNRounds sets the number of boosting rounds.
func WithNRounds(n int) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.nRounds = n }
}

// WithEta sets the shrinkage applied to every tree, in (0, 1].
func WithEta(eta float64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.eta = eta }
}

// WithTreeDepth sets the maximum depth of each tree; 0 means unlimited.
func WithTreeDepth(depth int) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.maxDepth = depth }
}

// WithSubsample sets the fraction of rows drawn without replacement per round.
func WithSubsample(f float64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.subsample = f }
}

// WithColsample sets the fraction of columns available to each tree.
func WithColsample(f float64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.colsample = f }
}

// WithL2 sets the L2 penalty on leaf weights.
func WithL2(lambda float64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.lambda = lambda }
}

// WithGamma sets the minimum loss reduction needed to split a leaf.
func WithGamma(gamma float64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.gamma = gamma }
}

// WithMinChildWeight sets the minimum hessian sum in a child.
func WithMinChildWeight(w float64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.minChildWeight = w }
}

// WithSeed seeds row and column subsampling.
func WithSeed(seed uint64) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.seed = seed }
}

// WithCallbacks registers callbacks run after every round.
func WithCallbacks(cbs ...Callback) GradientBoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.callbacks = append(gb.callbacks, cbs...) }
}

// NewGradientBoostingRegressor creates a booster with 100 rounds, eta 0.3,
// depth 6, lambda 1 and min_child_weight 1.
func NewGradientBoostingRegressor(opts ...GradientBoostingOption) *GradientBoostingRegressor {
	gb := &GradientBoostingRegressor{
		state:          model.NewStateManager(),
		nRounds:        100,
		eta:            0.3,
		maxDepth:       6,
		subsample:      1,
		colsample:      1,
		lambda:         1,
		minChildWeight: 1,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

func (gb *GradientBoostingRegressor) validate() error {
	switch {
	case gb.nRounds < 1:
		return errors.NewValidationError("n_rounds", "must be >= 1", gb.nRounds)
	case !(gb.eta > 0 && gb.eta <= 1):
		return errors.NewValidationError("eta", "must be in (0, 1]", gb.eta)
	case gb.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", gb.maxDepth)
	case !(gb.subsample > 0 && gb.subsample <= 1):
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.subsample)
	case !(gb.colsample > 0 && gb.colsample <= 1):
		return errors.NewValidationError("colsample", "must be in (0, 1]", gb.colsample)
	case !(gb.lambda >= 0):
		return errors.NewValidationError("lambda", "must be >= 0", gb.lambda)
	case !(gb.gamma >= 0):
		return errors.NewValidationError("gamma", "must be >= 0", gb.gamma)
	case !(gb.minChildWeight >= 0):
		return errors.NewValidationError("min_child_weight", "must be >= 0", gb.minChildWeight)
	}
	return nil
}

// Fit trains on (X, y) for the configured number of rounds.
func (gb *GradientBoostingRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	return gb.FitWithValidation(context.Background(), X, y, nil, nil)
}

// FitContext is Fit with cancellation checked before every round.
func (gb *GradientBoostingRegressor) FitContext(ctx context.Context, X mat.Matrix, y *mat.VecDense) error {
	return gb.FitWithValidation(ctx, X, y, nil, nil)
}

// FitWithValidation trains on (X, y) and, when Xv is not nil, also reports
// the RMSE on (Xv, yv) to callbacks as "valid_rmse" after every round.
func (gb *GradientBoostingRegressor) FitWithValidation(ctx context.Context, X mat.Matrix, y *mat.VecDense, Xv mat.Matrix, yv *mat.VecDense) error {
	if err := gb.validate(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", n, y.Len(), 0)
	}
	var validPred []float64
	if Xv != nil {
		nv, pv := Xv.Dims()
		if pv != p {
			return errors.NewDimensionError("GradientBoostingRegressor.FitWithValidation", p, pv, 1)
		}
		if yv == nil || yv.Len() != nv {
			return errors.NewValueError("GradientBoostingRegressor.FitWithValidation", "validation labels do not match validation features")
		}
		validPred = make([]float64, nv)
	}

	Xd := mat.DenseCopyOf(X)
	r := rand.New(rand.NewPCG(gb.seed, 0xb005))

	gb.baseScore = mat.Sum(y) / float64(n)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = gb.baseScore
	}
	for i := range validPred {
		validPred[i] = gb.baseScore
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	for i := range hess {
		hess[i] = 1
	}

	nRows := max(1, int(math.Round(gb.subsample*float64(n))))
	nCols := max(1, int(math.Round(gb.colsample*float64(p))))

	cbs := NewCallbackList(gb.callbacks...)
	gb.trees = gb.trees[:0]
	gb.trainCurve = gb.trainCurve[:0]
	gb.validCurve = gb.validCurve[:0]

	row := make([]float64, p)
	for round := 0; round < gb.nRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// squared error: g = ŷ - y, h = 1
		for i := 0; i < n; i++ {
			grad[i] = pred[i] - y.AtVec(i)
		}

		rows := sampleIndices(r, n, nRows)
		var cols []int
		if nCols < p {
			cols = sampleIndices(r, p, nCols)
		}

		t := tree.Grow(Xd, grad, hess, rows, tree.GrowConfig{
			MaxDepth:       gb.maxDepth,
			MinChildWeight: gb.minChildWeight,
			Lambda:         gb.lambda,
			Gamma:          gb.gamma,
			Features:       cols,
		})
		gb.trees = append(gb.trees, t)

		var sse float64
		for i := 0; i < n; i++ {
			pred[i] += gb.eta * t.PredictRow(Xd.RawRowView(i))
			d := y.AtVec(i) - pred[i]
			sse += d * d
		}
		trainRMSE := math.Sqrt(sse / float64(n))
		if err := errors.CheckScalar("GradientBoostingRegressor.Fit", trainRMSE, round); err != nil {
			return err
		}
		gb.trainCurve = append(gb.trainCurve, trainRMSE)
		evals := map[string]float64{EvalTrainRMSE: trainRMSE}

		if validPred != nil {
			var vsse float64
			for i := range validPred {
				mat.Row(row, i, Xv)
				validPred[i] += gb.eta * t.PredictRow(row)
				d := yv.AtVec(i) - validPred[i]
				vsse += d * d
			}
			validRMSE := math.Sqrt(vsse / float64(len(validPred)))
			gb.validCurve = append(gb.validCurve, validRMSE)
			evals[EvalValidRMSE] = validRMSE
		}

		if err := cbs.AfterIteration(round, evals); err != nil {
			return errors.Wrapf(err, "callback error at round %d", round)
		}
		if cbs.ShouldStop() {
			break
		}
	}

	gb.state.SetFitted(p, n)
	return nil
}

// sampleIndices draws k distinct indices from [0, n) and returns them sorted.
func sampleIndices(r *rand.Rand, n, k int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := r.Perm(n)[:k]
	slices.Sort(out)
	return out
}

// Predict returns base + eta·Σ tree(x).
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := gb.state.RequirePredictable("GradientBoostingRegressor", X); err != nil {
		return nil, err
	}
	return tree.PredictTrees(X, gb.trees, gb.eta, gb.baseScore), nil
}

// NumTrees returns the number of fitted rounds.
func (gb *GradientBoostingRegressor) NumTrees() int {
	return len(gb.trees)
}

// ValidationCurve returns the per-round validation RMSE recorded by
// FitWithValidation.
func (gb *GradientBoostingRegressor) ValidationCurve() []float64 {
	return append([]float64(nil), gb.validCurve...)
}

// Curve reports the training RMSE after every round.
func (gb *GradientBoostingRegressor) Curve() model.Curve {
	return model.Curve{Name: "train_rmse_by_round", Values: append([]float64(nil), gb.trainCurve...)}
}
