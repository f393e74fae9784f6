package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// Dataset is an immutable set of N labelled samples with P numeric features.
type Dataset struct {
	X *mat.Dense
	Y *mat.VecDense

	// FeatureNames is optional. When set it has one entry per column of X.
	FeatureNames []string
}

// NewDataset checks that X and y describe the same samples.
func NewDataset(X *mat.Dense, y *mat.VecDense) (*Dataset, error) {
	if X == nil || y == nil || X.IsEmpty() || y.Len() == 0 {
		return nil, errors.NewModelError("NewDataset", "empty data", errors.ErrEmptyData)
	}
	r, _ := X.Dims()
	if y.Len() != r {
		return nil, errors.NewDimensionError("NewDataset", r, y.Len(), 0)
	}
	return &Dataset{X: X, Y: y}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if d == nil || d.Y == nil {
		return 0
	}
	return d.Y.Len()
}

// Features returns the number of feature columns.
func (d *Dataset) Features() int {
	if d == nil || d.X == nil || d.X.IsEmpty() {
		return 0
	}
	_, c := d.X.Dims()
	return c
}

// Subset copies the given rows, in the given order, into a new feature
// matrix and label vector.
func (d *Dataset) Subset(indices []int) (*mat.Dense, *mat.VecDense) {
	p := d.Features()
	X := mat.NewDense(len(indices), p, nil)
	y := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		X.SetRow(i, d.X.RawRowView(idx))
		y.SetVec(i, d.Y.AtVec(idx))
	}
	return X, y
}
