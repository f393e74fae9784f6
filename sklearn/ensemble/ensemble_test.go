package ensemble

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/metrics"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// friedman returns a nonlinear regression problem: y depends on the first
// three of p uniform features.
func friedman(n, p int, seed uint64) (*mat.Dense, *mat.VecDense) {
	r := rand.New(rand.NewPCG(seed, 11))
	X := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, r.Float64())
		}
		x := X.RawRowView(i)
		y.SetVec(i, 10*math.Sin(math.Pi*x[0]*x[1])+20*(x[2]-0.5)*(x[2]-0.5)+0.5*r.NormFloat64())
	}
	return X, y
}

func TestRandomForestBeatsBaseline(t *testing.T) {
	X, y := friedman(300, 5, 1)
	Xt, yt := friedman(200, 5, 2)

	rf := NewRandomForestRegressor(WithNEstimators(60), WithRandomState(7), WithMinSamplesLeaf(3), WithMaxFeatures(3))
	require.NoError(t, rf.Fit(X, y))

	pred, err := rf.Predict(Xt)
	require.NoError(t, err)
	rmse, err := metrics.RMSE(yt, pred)
	require.NoError(t, err)
	assert.Less(t, rmse, 0.6*metrics.StdDev(yt))

	curve := rf.Curve()
	require.Len(t, curve.Values, 60)
	last := curve.Values[59]
	assert.False(t, math.IsNaN(last))
	assert.Less(t, last, metrics.StdDev(y))
}

func TestRandomForestDeterministicAcrossJobs(t *testing.T) {
	X, y := friedman(120, 4, 3)

	a := NewRandomForestRegressor(WithNEstimators(25), WithRandomState(5), WithNJobs(1))
	b := NewRandomForestRegressor(WithNEstimators(25), WithRandomState(5), WithNJobs(8))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, pa.RawVector().Data, pb.RawVector().Data)

	c := NewRandomForestRegressor(WithNEstimators(25), WithRandomState(6))
	require.NoError(t, c.Fit(X, y))
	pc, err := c.Predict(X)
	require.NoError(t, err)
	assert.NotEqual(t, pa.RawVector().Data, pc.RawVector().Data)
}

func TestRandomForestValidation(t *testing.T) {
	X, y := friedman(20, 3, 4)
	for _, opt := range []RandomForestOption{
		WithNEstimators(0), WithMaxFeatures(4), WithMinSamplesLeaf(0), WithMaxDepth(-1),
	} {
		err := NewRandomForestRegressor(opt).Fit(X, y)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr), "got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewRandomForestRegressor(WithNEstimators(5)).FitContext(ctx, X, y), context.Canceled)
}

func TestGradientBoostingConverges(t *testing.T) {
	X, y := friedman(300, 5, 5)
	Xt, yt := friedman(200, 5, 6)

	gb := NewGradientBoostingRegressor(WithNRounds(80), WithEta(0.1), WithTreeDepth(3), WithSeed(1))
	require.NoError(t, gb.Fit(X, y))
	assert.Equal(t, 80, gb.NumTrees())

	curve := gb.Curve().Values
	require.Len(t, curve, 80)
	// With full row sampling every round can only lower the training loss.
	for i := 1; i < len(curve); i++ {
		assert.LessOrEqual(t, curve[i], curve[i-1]+1e-12)
	}
	assert.Less(t, curve[79], 0.5*curve[0])

	pred, err := gb.Predict(Xt)
	require.NoError(t, err)
	rmse, err := metrics.RMSE(yt, pred)
	require.NoError(t, err)
	assert.Less(t, rmse, 0.6*metrics.StdDev(yt))
}

func TestGradientBoostingSubsamplingDeterministic(t *testing.T) {
	X, y := friedman(150, 6, 7)
	fit := func(seed uint64) []float64 {
		gb := NewGradientBoostingRegressor(WithNRounds(20), WithSubsample(0.7), WithColsample(0.5), WithSeed(seed))
		require.NoError(t, gb.Fit(X, y))
		p, err := gb.Predict(X)
		require.NoError(t, err)
		return p.RawVector().Data
	}
	assert.Equal(t, fit(3), fit(3))
	assert.NotEqual(t, fit(3), fit(4))
}

func TestGradientBoostingEarlyStopping(t *testing.T) {
	X, y := friedman(200, 5, 8)
	Xv, yv := friedman(100, 5, 9)

	var history map[string][]float64
	best := -1
	gb := NewGradientBoostingRegressor(
		WithNRounds(500),
		WithEta(0.5),
		WithTreeDepth(6),
		WithCallbacks(RecordEvaluation(&history), EarlyStoppingCallback(5, EvalValidRMSE, &best)),
	)
	require.NoError(t, gb.FitWithValidation(context.Background(), X, y, Xv, yv))

	assert.Less(t, gb.NumTrees(), 500)
	assert.Len(t, history[EvalTrainRMSE], gb.NumTrees())
	assert.Len(t, history[EvalValidRMSE], gb.NumTrees())
	assert.Equal(t, gb.NumTrees()-6, best)
	assert.Equal(t, history[EvalValidRMSE], gb.ValidationCurve())
}

func TestGradientBoostingValidation(t *testing.T) {
	X, y := friedman(20, 3, 10)
	for _, opt := range []GradientBoostingOption{
		WithNRounds(0), WithEta(0), WithEta(1.5), WithSubsample(0), WithColsample(2),
		WithL2(-1), WithGamma(-1), WithMinChildWeight(-1), WithTreeDepth(-1),
	} {
		err := NewGradientBoostingRegressor(opt).Fit(X, y)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr), "got %v", err)
	}

	_, err := NewGradientBoostingRegressor().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestCallbackErrorAborts(t *testing.T) {
	X, y := friedman(30, 2, 11)
	boom := errors.New("boom")
	gb := NewGradientBoostingRegressor(WithNRounds(10), WithCallbacks(func(env *CallbackEnv) error {
		if env.Iteration == 2 {
			return boom
		}
		return nil
	}))
	assert.True(t, errors.Is(gb.Fit(X, y), boom))
}
