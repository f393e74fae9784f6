package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})

	s := NewStandardScalerDefault()
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 5}, s.Mean, 1e-12)
	// 定数列はスケール1
	assert.InDelta(t, 1.0, s.Scale[1], 1e-12)
	assert.InDelta(t, 1.118033988749895, s.Scale[0], 1e-12)

	var sum, sq float64
	for i := 0; i < 4; i++ {
		v := Xs.At(i, 0)
		sum += v
		sq += v * v
		assert.Equal(t, 0.0, Xs.At(i, 1))
	}
	assert.InDelta(t, 0.0, sum, 1e-12)
	assert.InDelta(t, 4.0, sq, 1e-12)

	back, err := s.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()

	_, err := s.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.Fit(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})))
	_, err = s.Transform(mat.NewDense(2, 2, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	err = s.Fit(&mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestStandardScalerWithoutMean(t *testing.T) {
	s := NewStandardScaler(false, false)
	X := mat.NewDense(2, 1, []float64{3, 7})
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(X, Xs))
}
