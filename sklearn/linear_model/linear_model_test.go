package linear_model

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// makeRegression returns n samples of p standard normal features and
// y = intercept + X·coef + noise·ε.
func makeRegression(n int, coef []float64, intercept, noise float64, seed uint64) (*mat.Dense, *mat.VecDense) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	p := len(coef)
	X := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v := intercept
		for j := 0; j < p; j++ {
			x := r.NormFloat64()
			X.Set(i, j, x)
			v += coef[j] * x
		}
		y.SetVec(i, v+noise*r.NormFloat64())
	}
	return X, y
}

func TestLinearRegressionExact(t *testing.T) {
	X, y := makeRegression(50, []float64{2, -3}, 1, 0, 1)

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{2, -3}, lr.Coef(), 1e-9)
	assert.InDelta(t, 1.0, lr.Intercept(), 1e-9)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, pred, 1e-9))
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(mat.NewDense(3, 2, nil), mat.NewVecDense(2, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestElasticNetLambdaZeroMatchesLeastSquares(t *testing.T) {
	X, y := makeRegression(80, []float64{1.5, -2, 0.5}, 0.3, 0.2, 2)

	ols := NewLinearRegression()
	require.NoError(t, ols.Fit(X, y))

	for _, alpha := range []float64{0, 0.5, 1} {
		enet := NewElasticNet(WithAlpha(alpha), WithLambda(0), WithTol(1e-12), WithMaxIter(100000))
		require.NoError(t, enet.Fit(X, y))
		assert.InDeltaSlice(t, ols.Coef(), enet.Coef(), 1e-6, "alpha=%g", alpha)
		assert.InDelta(t, ols.Intercept(), enet.Intercept(), 1e-6, "alpha=%g", alpha)
	}
}

func TestElasticNetLassoIsSparse(t *testing.T) {
	X, y := makeRegression(200, []float64{3, 0, 0, 0, -2, 0}, 1, 0.1, 3)

	enet := NewElasticNet(WithAlpha(1), WithLambda(0.3))
	require.NoError(t, enet.Fit(X, y))

	coef := enet.Coef()
	assert.Greater(t, coef[0], 2.0)
	assert.Less(t, coef[4], -1.0)
	for _, j := range []int{1, 2, 3, 5} {
		assert.Equal(t, 0.0, coef[j], "coef[%d]", j)
	}
}

func TestElasticNetLargeLambdaGivesMean(t *testing.T) {
	X, y := makeRegression(40, []float64{1, 1}, 5, 0.5, 4)

	enet := NewElasticNet(WithAlpha(0.5), WithLambda(1e6))
	require.NoError(t, enet.Fit(X, y))

	assert.Equal(t, []float64{0, 0}, enet.Coef())
	assert.InDelta(t, mat.Sum(y)/40, enet.Intercept(), 1e-12)
	assert.Len(t, enet.Path(), 1)
}

func TestElasticNetPath(t *testing.T) {
	X, y := makeRegression(100, []float64{2, -1, 0.5, 0}, 0, 0.3, 5)

	enet := NewElasticNet(WithAlpha(0.7), WithLambda(0.01), WithPathLength(15), WithTol(1e-10))
	require.NoError(t, enet.Fit(X, y))

	path := enet.Path()
	require.Len(t, path, 15)
	assert.Equal(t, 0.01, path[len(path)-1].Lambda)
	for i := 1; i < len(path); i++ {
		assert.Less(t, path[i].Lambda, path[i-1].Lambda)
		assert.LessOrEqual(t, path[i].TrainRMSE, path[i-1].TrainRMSE+1e-9)
	}

	curve := enet.Curve()
	assert.Len(t, curve.Values, 15)

	preds, err := enet.PredictPath(X)
	require.NoError(t, err)
	require.Len(t, preds, 15)
	final, err := enet.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(final, preds[14], 1e-12))
}

func TestElasticNetStandardizeInvariance(t *testing.T) {
	X, y := makeRegression(60, []float64{1, 2}, 0, 0.1, 6)
	scaled := mat.DenseCopyOf(X)
	for i := 0; i < 60; i++ {
		scaled.Set(i, 1, 100*X.At(i, 1))
	}

	a := NewElasticNet(WithAlpha(0.5), WithLambda(0.05), WithTol(1e-12), WithMaxIter(100000))
	require.NoError(t, a.Fit(X, y))
	b := NewElasticNet(WithAlpha(0.5), WithLambda(0.05), WithTol(1e-12), WithMaxIter(100000))
	require.NoError(t, b.Fit(scaled, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(pa, pb, 1e-6))
}

func TestElasticNetValidation(t *testing.T) {
	X, y := makeRegression(10, []float64{1}, 0, 0, 7)
	for _, opt := range []ElasticNetOption{
		WithAlpha(-0.1), WithAlpha(1.5), WithLambda(-1), WithMaxIter(0), WithTol(0), WithPathLength(0),
	} {
		err := NewElasticNet(opt).Fit(X, y)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr), "got %v", err)
	}

	_, err := NewElasticNet().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestElasticNetConvergenceWarning(t *testing.T) {
	var mu sync.Mutex
	var warnings []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	defer errors.SetWarningHandler(func(error) {})

	X, y := makeRegression(50, []float64{1, -1, 2}, 0, 0.1, 8)
	enet := NewElasticNet(WithAlpha(0.5), WithLambda(0.001), WithMaxIter(1), WithPathLength(1), WithTol(1e-15))
	require.NoError(t, enet.Fit(X, y))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, warnings)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warnings[0], &cw))
	assert.Equal(t, "ElasticNet", cw.Algorithm)
}

func TestElasticNetCancelled(t *testing.T) {
	X, y := makeRegression(20, []float64{1}, 0, 0, 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewElasticNet().FitContext(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestElasticNetConstantColumn(t *testing.T) {
	X, y := makeRegression(30, []float64{2, 0}, 1, 0, 10)
	for i := 0; i < 30; i++ {
		X.Set(i, 1, 7)
	}
	enet := NewElasticNet(WithAlpha(1), WithLambda(0.01))
	require.NoError(t, enet.Fit(X, y))
	assert.Equal(t, 0.0, enet.Coef()[1])
	assert.False(t, math.IsNaN(enet.Intercept()))
}
