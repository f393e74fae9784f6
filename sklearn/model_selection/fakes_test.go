package model_selection

import (
	"context"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// shiftFitter predicts the training mean plus ten times the "lambda" parameter.
// Points matching failOn fail, points matching panicOn panic and points
// matching nanOn predict NaN.
type shiftFitter struct {
	failOn  func(model.Params) bool
	panicOn func(model.Params) bool
	nanOn   func(model.Params) bool
	calls   atomic.Int64
}

func (f *shiftFitter) Name() string         { return "Shift" }
func (f *shiftFitter) ParamNames() []string { return []string{"alpha", "lambda"} }

func (f *shiftFitter) Fit(_ context.Context, X mat.Matrix, y *mat.VecDense, p model.Params) (model.PredictModel, error) {
	f.calls.Add(1)
	if f.failOn != nil && f.failOn(p) {
		return nil, errors.NewValueError("Shift.Fit", "refusing point "+p.String())
	}
	if f.panicOn != nil && f.panicOn(p) {
		panic("shift fitter exploded")
	}
	shift, err := p.Float("lambda", 0)
	if err != nil {
		return nil, err
	}
	value := stat.Mean(y.RawVector().Data, nil) + 10*shift
	if f.nanOn != nil && f.nanOn(p) {
		value = math.NaN()
	}
	return constModel(value), nil
}

type constModel float64

func (c constModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, float64(c))
	}
	return out, nil
}

// blockingFitter waits for ctx to be cancelled.
type blockingFitter struct {
	started chan struct{}
}

func (f *blockingFitter) Name() string         { return "Blocking" }
func (f *blockingFitter) ParamNames() []string { return []string{"alpha", "lambda"} }

func (f *blockingFitter) Fit(ctx context.Context, _ mat.Matrix, _ *mat.VecDense, _ model.Params) (model.PredictModel, error) {
	select {
	case f.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func isPoint(alpha, lambda float64) func(model.Params) bool {
	return func(p model.Params) bool {
		a, _ := p.Float("alpha", math.NaN())
		l, _ := p.Float("lambda", math.NaN())
		return a == alpha && l == lambda
	}
}

func linearDataset(n int) *Dataset {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		x1 := math.Sin(float64(i))
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.SetVec(i, 3*x0-2*x1+0.5)
	}
	d, err := NewDataset(X, y)
	if err != nil {
		panic(err)
	}
	return d
}

func alphaLambdaGrid() *Grid {
	g, err := NewGrid(
		GridParam{Name: "alpha", Values: []interface{}{0.0, 1.0}},
		GridParam{Name: "lambda", Values: []interface{}{1.0, 0.0}},
	)
	if err != nil {
		panic(err)
	}
	return g
}
