package model_selection

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// Select returns the available record with the lowest mean validation RMSE.
// Exact ties go to the record that comes first in records. It returns
// errors.ErrEmptyGrid when no record is available.
func Select(records []Record) (Record, error) {
	best := -1
	for i, rec := range records {
		if rec.Unavailable || math.IsNaN(rec.ValidRMSE) {
			continue
		}
		if best < 0 || rec.ValidRMSE < records[best].ValidRMSE {
			best = i
		}
	}
	if best < 0 {
		return Record{}, errors.WithStack(errors.ErrEmptyGrid)
	}
	return records[best], nil
}

// Rank returns the available records ordered by mean validation RMSE.
// The sort is stable, so equal errors keep their enumeration order.
func Rank(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !rec.Unavailable && !math.IsNaN(rec.ValidRMSE) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValidRMSE < out[j].ValidRMSE
	})
	return out
}
