// Package linear_model は線形回帰モデル（最小二乗法と ElasticNet）を提供する。
package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// LinearRegression is an ordinary least squares model solved by QR
// factorization.
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool

	coef_      []float64
	intercept_ float64
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片の学習有無を設定（デフォルト: true）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return errors.NewDimensionError("LinearRegression.Fit", rows, y.Len(), 0)
	}

	// [1 | X]
	XFit := mat.DenseCopyOf(X)
	if lr.fitIntercept {
		XFit = mat.NewDense(rows, cols+1, nil)
		for i := 0; i < rows; i++ {
			XFit.Set(i, 0, 1)
			for j := 0; j < cols; j++ {
				XFit.Set(i, j+1, X.At(i, j))
			}
		}
	}
	_, fitCols := XFit.Dims()
	if rows < fitCols {
		return errors.NewValueError("LinearRegression.Fit", "underdetermined system: fewer samples than coefficients")
	}

	// 正規方程式より数値的に安定なQR分解を使用
	var qr mat.QR
	qr.Factorize(XFit)
	var coefficients mat.VecDense
	if err := qr.SolveVecTo(&coefficients, false, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "least squares solve", errors.Wrap(errors.ErrSingularMatrix, err.Error()))
	}
	if err := errors.CheckVector("LinearRegression.Fit", &coefficients); err != nil {
		return err
	}

	offset := 0
	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = coefficients.AtVec(0)
		offset = 1
	}
	lr.coef_ = make([]float64, cols)
	for j := range lr.coef_ {
		lr.coef_[j] = coefficients.AtVec(j + offset)
	}

	lr.state.SetFitted(cols, rows)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := lr.state.RequirePredictable("LinearRegression", X); err != nil {
		return nil, err
	}
	return linearPredict(X, lr.coef_, lr.intercept_), nil
}

// Coef は学習された重み係数のコピーを返す
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// IsFitted は学習済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// linearPredict computes X·coef + intercept.
func linearPredict(X mat.Matrix, coef []float64, intercept float64) *mat.VecDense {
	rows, _ := X.Dims()
	out := mat.NewVecDense(rows, nil)
	out.MulVec(X, mat.NewVecDense(len(coef), coef))
	for i := 0; i < rows; i++ {
		out.SetVec(i, out.AtVec(i)+intercept)
	}
	return out
}
