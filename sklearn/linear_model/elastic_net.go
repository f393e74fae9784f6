package linear_model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/preprocessing"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// PathPoint is the solution at one lambda of the regularization path.
type PathPoint struct {
	Lambda    float64
	Coef      []float64
	Intercept float64
	NonZero   int
	TrainRMSE float64
	Iter      int
}

// ElasticNet minimizes
//
//	1/(2n)·‖y - β0 - Xβ‖² + λ·(α‖β‖₁ + (1-α)/2·‖β‖²)
//
// by cyclic coordinate descent. α=1 is the lasso and α=0 ridge regression.
// The solver walks a decreasing lambda path from the smallest lambda that
// zeroes every coefficient down to the requested lambda, warm-starting each
// step from the previous solution.
type ElasticNet struct {
	state *model.StateManager

	alpha       float64
	lambda      float64
	maxIter     int
	tol         float64
	standardize bool
	pathLength  int

	coef_      []float64
	intercept_ float64
	nIter_     int
	path_      []PathPoint
}

// ElasticNetOption は設定オプション
type ElasticNetOption func(*ElasticNet)

// WithAlpha sets the L1/L2 mixing parameter in [0, 1].
func WithAlpha(alpha float64) ElasticNetOption {
	return func(e *ElasticNet) { e.alpha = alpha }
}

// WithLambda sets the overall penalty strength (>= 0).
func WithLambda(lambda float64) ElasticNetOption {
	return func(e *ElasticNet) { e.lambda = lambda }
}

// WithMaxIter sets the maximum number of coordinate descent sweeps per lambda.
func WithMaxIter(n int) ElasticNetOption {
	return func(e *ElasticNet) { e.maxIter = n }
}

// WithTol sets the convergence tolerance on the largest coefficient update.
func WithTol(tol float64) ElasticNetOption {
	return func(e *ElasticNet) { e.tol = tol }
}

// WithStandardize controls whether features are scaled to unit variance
// before fitting. Coefficients are always reported on the original scale.
func WithStandardize(standardize bool) ElasticNetOption {
	return func(e *ElasticNet) { e.standardize = standardize }
}

// WithPathLength sets the number of lambdas on the warm-start path.
// 1 fits the requested lambda directly.
func WithPathLength(n int) ElasticNetOption {
	return func(e *ElasticNet) { e.pathLength = n }
}

// NewElasticNet は新しいElasticNetモデルを作成する
//
//	enet := linear_model.NewElasticNet(linear_model.WithAlpha(0.5), linear_model.WithLambda(0.1))
//	err := enet.Fit(X, y)
func NewElasticNet(options ...ElasticNetOption) *ElasticNet {
	e := &ElasticNet{
		state:       model.NewStateManager(),
		alpha:       1.0,
		lambda:      1.0,
		maxIter:     1000,
		tol:         1e-6,
		standardize: true,
		pathLength:  20,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *ElasticNet) validate() error {
	switch {
	case math.IsNaN(e.alpha) || e.alpha < 0 || e.alpha > 1:
		return errors.NewValidationError("alpha", "must be in [0, 1]", e.alpha)
	case math.IsNaN(e.lambda) || math.IsInf(e.lambda, 0) || e.lambda < 0:
		return errors.NewValidationError("lambda", "must be a finite value >= 0", e.lambda)
	case e.maxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", e.maxIter)
	case !(e.tol > 0):
		return errors.NewValidationError("tol", "must be > 0", e.tol)
	case e.pathLength < 1:
		return errors.NewValidationError("path_length", "must be >= 1", e.pathLength)
	}
	return nil
}

// Fit はモデルを訓練データで学習する
func (e *ElasticNet) Fit(X mat.Matrix, y *mat.VecDense) error {
	return e.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation checked between coordinate sweeps.
func (e *ElasticNet) FitContext(ctx context.Context, X mat.Matrix, y *mat.VecDense) error {
	if err := e.validate(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("ElasticNet.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("ElasticNet.Fit", n, y.Len(), 0)
	}

	scaler := preprocessing.NewStandardScaler(true, e.standardize)
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "ElasticNet.Fit")
	}

	// 列優先で保持（座標降下は列単位でアクセスする）
	cols := make([][]float64, p)
	colSq := make([]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = mat.Col(nil, j, Xs)
		colSq[j] = floats.Dot(cols[j], cols[j]) / float64(n)
	}

	yMean := mat.Sum(y) / float64(n)
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = y.AtVec(i) - yMean
	}

	beta := make([]float64, p)
	path := e.lambdaPath(cols, resid)
	e.path_ = make([]PathPoint, 0, len(path))
	e.nIter_ = 0

	for step, lambda := range path {
		l1 := lambda * e.alpha
		l2 := lambda * (1 - e.alpha)

		iter, converged := 0, false
		for iter < e.maxIter {
			if err := ctx.Err(); err != nil {
				return err
			}
			iter++
			maxDelta := 0.0
			for j := 0; j < p; j++ {
				if colSq[j] == 0 {
					continue
				}
				old := beta[j]
				rho := floats.Dot(cols[j], resid)/float64(n) + colSq[j]*old
				next := errors.SoftThreshold(rho, l1) / (colSq[j] + l2)
				if delta := next - old; delta != 0 {
					// r ← r - x_j·Δβ_j
					floats.AddScaled(resid, -delta, cols[j])
					beta[j] = next
					maxDelta = math.Max(maxDelta, math.Abs(delta)*math.Sqrt(colSq[j]))
				}
			}
			if maxDelta < e.tol {
				converged = true
				break
			}
		}
		e.nIter_ += iter

		if err := errors.CheckNumericalStability("ElasticNet.Fit", beta, iter); err != nil {
			return err
		}
		if !converged && step == len(path)-1 {
			errors.Warn(errors.NewConvergenceWarning("ElasticNet", iter,
				fmt.Sprintf("lambda=%g alpha=%g; consider increasing max_iter or tol", lambda, e.alpha)))
		}

		coef, intercept := unscale(beta, scaler, yMean)
		e.path_ = append(e.path_, PathPoint{
			Lambda:    lambda,
			Coef:      coef,
			Intercept: intercept,
			NonZero:   countNonZero(beta),
			TrainRMSE: math.Sqrt(floats.Dot(resid, resid) / float64(n)),
			Iter:      iter,
		})
	}

	last := e.path_[len(e.path_)-1]
	e.coef_ = last.Coef
	e.intercept_ = last.Intercept
	e.state.SetFitted(p, n)
	return nil
}

// lambdaPath returns a decreasing geometric sequence from lambda_max, the
// smallest lambda with an all-zero solution, ending exactly at e.lambda.
// The path collapses to the single requested lambda when pathLength is 1 or
// the requested lambda is already at least lambda_max.
func (e *ElasticNet) lambdaPath(cols [][]float64, resid []float64) []float64 {
	n := float64(len(resid))
	maxCorr := 0.0
	for _, c := range cols {
		maxCorr = math.Max(maxCorr, math.Abs(floats.Dot(c, resid))/n)
	}
	lambdaMax := maxCorr / math.Max(e.alpha, 1e-3)

	if e.pathLength <= 1 || e.lambda >= lambdaMax || lambdaMax == 0 {
		return []float64{e.lambda}
	}

	end := math.Max(e.lambda, lambdaMax*1e-4)
	steps := e.pathLength
	if end > e.lambda {
		steps-- // the requested lambda is appended below
	}
	path := make([]float64, 0, e.pathLength)
	if steps <= 1 {
		path = append(path, end)
	} else {
		ratio := math.Log(end/lambdaMax) / float64(steps-1)
		for k := 0; k < steps; k++ {
			path = append(path, lambdaMax*math.Exp(ratio*float64(k)))
		}
		path[steps-1] = end
	}
	if end > e.lambda {
		path = append(path, e.lambda)
	}
	return path
}

// unscale maps standardized coefficients back to the original feature scale.
func unscale(beta []float64, scaler *preprocessing.StandardScaler, yMean float64) ([]float64, float64) {
	coef := make([]float64, len(beta))
	intercept := yMean
	for j, b := range beta {
		coef[j] = b / scaler.Scale[j]
		intercept -= coef[j] * scaler.Mean[j]
	}
	return coef, intercept
}

func countNonZero(beta []float64) int {
	nz := 0
	for _, b := range beta {
		if b != 0 {
			nz++
		}
	}
	return nz
}

// Predict は入力データに対する予測を行う
func (e *ElasticNet) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := e.state.RequirePredictable("ElasticNet", X); err != nil {
		return nil, err
	}
	return linearPredict(X, e.coef_, e.intercept_), nil
}

// PredictPath returns one prediction vector per lambda on the fitted path,
// in path order.
func (e *ElasticNet) PredictPath(X mat.Matrix) ([]*mat.VecDense, error) {
	if err := e.state.RequirePredictable("ElasticNet", X); err != nil {
		return nil, err
	}
	out := make([]*mat.VecDense, len(e.path_))
	for i, pp := range e.path_ {
		out[i] = linearPredict(X, pp.Coef, pp.Intercept)
	}
	return out, nil
}

// Coef は学習された重み係数のコピーを返す
func (e *ElasticNet) Coef() []float64 {
	return append([]float64(nil), e.coef_...)
}

// Intercept は学習された切片を返す
func (e *ElasticNet) Intercept() float64 {
	return e.intercept_
}

// NIter returns the total number of coordinate sweeps over the whole path.
func (e *ElasticNet) NIter() int {
	return e.nIter_
}

// Path returns the fitted regularization path.
func (e *ElasticNet) Path() []PathPoint {
	return append([]PathPoint(nil), e.path_...)
}

// Curve reports the training RMSE along the lambda path.
func (e *ElasticNet) Curve() model.Curve {
	values := make([]float64, len(e.path_))
	for i, pp := range e.path_ {
		values[i] = pp.TrainRMSE
	}
	return model.Curve{Name: "train_rmse_by_lambda", Values: values}
}

// IsFitted は学習済みかどうかを返す
func (e *ElasticNet) IsFitted() bool {
	return e.state.IsFitted()
}
