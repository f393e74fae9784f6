package model_selection

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// FoldAssignment maps every sample index to a fold id in [0, K()).
type FoldAssignment struct {
	fold []int
	k    int
}

// AssignFolds deterministically assigns n sample indices to k folds.
//
// The indices are shuffled with a PCG generator seeded by seed and dealt out
// in permutation order: the first n%k folds receive n/k+1 indices, the rest
// n/k. Fold sizes therefore differ by at most one, and the same (n, k, seed)
// always yields the same assignment.
func AssignFolds(n, k int, seed uint64) (FoldAssignment, error) {
	if k < 2 {
		return FoldAssignment{}, errors.NewInvalidConfigurationErrorf("AssignFolds", "fold count k=%d must be at least 2", k)
	}
	if k > n {
		return FoldAssignment{}, errors.NewInvalidConfigurationErrorf("AssignFolds", "fold count k=%d exceeds sample count n=%d", k, n)
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)

	fold := make([]int, n)
	size := n / k
	remainder := n % k

	pos := 0
	for f := 0; f < k; f++ {
		m := size
		if f < remainder {
			m++
		}
		for _, idx := range perm[pos : pos+m] {
			fold[idx] = f
		}
		pos += m
	}

	return FoldAssignment{fold: fold, k: k}, nil
}

// NewFoldAssignment wraps an explicit assignment, for example one read from
// disk. Fold ids must lie in [0, k) with k >= 2.
func NewFoldAssignment(fold []int, k int) (FoldAssignment, error) {
	if k < 2 {
		return FoldAssignment{}, errors.NewInvalidConfigurationErrorf("NewFoldAssignment", "fold count k=%d must be at least 2", k)
	}
	for i, f := range fold {
		if f < 0 || f >= k {
			return FoldAssignment{}, errors.NewInvalidConfigurationErrorf("NewFoldAssignment", "sample %d has fold id %d outside [0,%d)", i, f, k)
		}
	}
	cp := make([]int, len(fold))
	copy(cp, fold)
	return FoldAssignment{fold: cp, k: k}, nil
}

// K returns the number of folds.
func (a FoldAssignment) K() int { return a.k }

// Len returns the number of assigned samples.
func (a FoldAssignment) Len() int { return len(a.fold) }

// Of returns the fold id of sample i.
func (a FoldAssignment) Of(i int) int { return a.fold[i] }

// Sizes returns the number of samples in each fold.
func (a FoldAssignment) Sizes() []int {
	sizes := make([]int, a.k)
	for _, f := range a.fold {
		sizes[f]++
	}
	return sizes
}

// Folds returns the ascending sample indices of every fold.
func (a FoldAssignment) Folds() [][]int {
	folds := make([][]int, a.k)
	for i, f := range a.fold {
		folds[f] = append(folds[f], i)
	}
	return folds
}

// Split returns the training indices (fold != f) and validation indices
// (fold == f), both ascending.
func (a FoldAssignment) Split(f int) (train, valid []int) {
	for i, fi := range a.fold {
		if fi == f {
			valid = append(valid, i)
		} else {
			train = append(train, i)
		}
	}
	return train, valid
}
