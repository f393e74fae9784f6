package model_selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

func rec(i int, valid float64) Record {
	return Record{
		Point:     model.NewParams("i", i),
		Index:     i,
		ValidRMSE: valid,
		TrainRMSE: valid / 2,
		FoldsOK:   5,
	}
}

func unavailable(i int) Record {
	return Record{Point: model.NewParams("i", i), Index: i, ValidRMSE: math.NaN(), TrainRMSE: math.NaN(), FoldsFailed: 5, Unavailable: true}
}

func TestSelectMinimum(t *testing.T) {
	records := []Record{rec(0, 0.9), unavailable(1), rec(2, 0.3), rec(3, 0.5)}
	best, err := Select(records)
	require.NoError(t, err)
	assert.Equal(t, 2, best.Index)
	for _, r := range records {
		if !r.Unavailable {
			assert.LessOrEqual(t, best.ValidRMSE, r.ValidRMSE)
		}
	}
}

func TestSelectTieGoesToFirst(t *testing.T) {
	best, err := Select([]Record{rec(0, 0.7), rec(1, 0.2), rec(2, 0.2)})
	require.NoError(t, err)
	assert.Equal(t, 1, best.Index)
}

func TestSelectEmpty(t *testing.T) {
	_, err := Select(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyGrid))

	_, err = Select([]Record{unavailable(0), unavailable(1)})
	assert.True(t, errors.Is(err, errors.ErrEmptyGrid))
}

func TestRank(t *testing.T) {
	ranked := Rank([]Record{rec(0, 0.5), unavailable(1), rec(2, 0.1), rec(3, 0.5)})
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{2, 0, 3}, []int{ranked[0].Index, ranked[1].Index, ranked[2].Index})
}
