package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "gridcv: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "gridcv: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestInvalidConfigurationError(t *testing.T) {
	err := NewInvalidConfigurationErrorf("AssignFolds", "fold count %d must be at least 2", 1)
	assert.Equal(t, "gridcv: AssignFolds: invalid configuration: fold count 1 must be at least 2", err.Error())

	var cfgErr *InvalidConfigurationError
	require.True(t, As(err, &cfgErr))
	assert.Equal(t, "AssignFolds", cfgErr.Op)

	wrapped := Wrap(err, "loading experiment")
	assert.True(t, As(wrapped, &cfgErr), "wrapping must keep the typed error reachable")
}

func TestDegenerateFoldError(t *testing.T) {
	err := NewDegenerateFoldError(3, "validation")
	assert.Equal(t, "gridcv: fold 3 has an empty validation split", err.Error())

	var foldErr *DegenerateFoldError
	require.True(t, As(err, &foldErr))
	assert.Equal(t, 3, foldErr.Fold)
}

func TestFitFailureUnwrap(t *testing.T) {
	cause := NewValueError("ElasticNet.Fit", "lambda must be non-negative")
	failure := NewFitFailure("alpha=0,lambda=-1", 2, 4, cause)

	assert.Contains(t, failure.Error(), "point 2 (alpha=0,lambda=-1) on fold 4")

	var valErr *ValueError
	assert.True(t, As(failure, &valErr), "cause must be reachable through Unwrap")
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("ElasticNet", "Predict")
	assert.Equal(t, "gridcv: ElasticNet: this model is not fitted yet. Call Fit() before using Predict()", err.Error())

	var notFittedErr *NotFittedError
	assert.True(t, As(err, &notFittedErr))
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 7, 1)
	assert.Equal(t, "gridcv: Predict: dimension mismatch on axis 1 (features). Expected 10, got 7", err.Error())
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("ElasticNet", 1000, "duality gap above tolerance")
	assert.Equal(t, "ElasticNet failed to converge after 1000 iterations: duality gap above tolerance", warn.Error())
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewConvergenceWarning("ElasticNet", 10, ""))
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0].Error(), "ElasticNet failed to converge"))
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyGrid, "selecting %s", "elasticnet")
	assert.True(t, Is(wrapped, ErrEmptyGrid))
	assert.Contains(t, wrapped.Error(), "selecting elasticnet")
}

func TestNumericalChecks(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("loss", []float64{1, 2, 3}, 0))
	assert.Error(t, CheckScalar("loss", nanValue(), 3))

	var instab *NumericalInstabilityError
	err := CheckNumericalStability("gradient", []float64{1, nanValue()}, 7)
	require.True(t, As(err, &instab))
	assert.Equal(t, 7, instab.Iteration)

	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 2.0, SoftThreshold(3, 1))
	assert.Equal(t, -2.0, SoftThreshold(-3, 1))
	assert.Equal(t, 0.0, SoftThreshold(0.5, 1))
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
