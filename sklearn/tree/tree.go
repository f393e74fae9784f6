// Package tree implements regression trees grown on first and second order
// loss statistics.
//
// A single growing routine serves both uses in this module: with gradient
// -y and unit hessian and no regularization the leaf value is the sample mean
// and the split gain is half the reduction in squared error, which is the
// classic CART regression tree used by random forests. With the gradients and
// hessians of a boosting round and non-zero Lambda/Gamma it grows the
// regularized trees used by gradient boosting.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is one node of a Tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
	Count     int
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a binary regression tree stored as a flat node slice; Nodes[0] is
// the root. Samples go left when x[Feature] <= Threshold.
type Tree struct {
	Nodes []Node
}

// PredictRow returns the leaf value reached by x.
func (t *Tree) PredictRow(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	c := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			c++
		}
	}
	return c
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var depth func(i int) int
	depth = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return depth(0)
}

// GrowConfig controls tree growth.
type GrowConfig struct {
	// MaxDepth limits the depth; 0 means unlimited.
	MaxDepth int

	// MinSamplesLeaf is the minimum number of samples in each child.
	MinSamplesLeaf int

	// MinChildWeight is the minimum hessian sum in each child.
	MinChildWeight float64

	// Lambda is the L2 penalty on leaf values.
	Lambda float64

	// Gamma is the minimum loss reduction required to split.
	Gamma float64

	// Features restricts the candidate features; nil means every column.
	Features []int

	// MaxFeatures draws this many candidates at random at every node;
	// 0 or a value >= len(Features) means all candidates. Requires Rand.
	MaxFeatures int

	// Rand drives feature subsampling.
	Rand *rand.Rand
}

// minGain keeps floating point noise from producing splits of pure nodes.
const minGain = 1e-12

type grower struct {
	X    *mat.Dense
	grad []float64
	hess []float64
	cfg  GrowConfig

	features []int
	scratch  []int
	order    []int
	tree     *Tree
}

// Grow builds a tree on the rows listed in indices. Rows may repeat, as in a
// bootstrap sample. grad and hess are indexed by row of X.
func Grow(X *mat.Dense, grad, hess []float64, indices []int, cfg GrowConfig) *Tree {
	_, p := X.Dims()
	features := cfg.Features
	if features == nil {
		features = make([]int, p)
		for j := range features {
			features[j] = j
		}
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}
	g := &grower{
		X:        X,
		grad:     grad,
		hess:     hess,
		cfg:      cfg,
		features: features,
		scratch:  make([]int, len(features)),
		tree:     &Tree{},
	}
	idx := append([]int(nil), indices...)
	g.build(idx, 0)
	return g.tree
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (g *grower) build(indices []int, depth int) int {
	nodeIdx := len(g.tree.Nodes)
	var sumG, sumH float64
	for _, i := range indices {
		sumG += g.grad[i]
		sumH += g.hess[i]
	}
	g.tree.Nodes = append(g.tree.Nodes, Node{
		Left:  -1,
		Right: -1,
		Value: g.leafValue(sumG, sumH),
		Count: len(indices),
	})

	if (g.cfg.MaxDepth > 0 && depth >= g.cfg.MaxDepth) || len(indices) < 2*g.cfg.MinSamplesLeaf {
		return nodeIdx
	}

	best := split{gain: math.Inf(-1)}
	for _, f := range g.candidates() {
		if s, ok := g.bestSplitForFeature(indices, f, sumG, sumH); ok && s.gain > best.gain {
			best = s
		}
	}
	if best.gain <= minGain {
		return nodeIdx
	}

	left, right := partition(g.X, indices, best.feature, best.threshold)
	n := &g.tree.Nodes[nodeIdx]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Gain = best.gain

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.tree.Nodes[nodeIdx].Left = l
	g.tree.Nodes[nodeIdx].Right = r
	return nodeIdx
}

// candidates returns the features examined at the current node.
func (g *grower) candidates() []int {
	m := g.cfg.MaxFeatures
	if m <= 0 || m >= len(g.features) || g.cfg.Rand == nil {
		return g.features
	}
	copy(g.scratch, g.features)
	// partial Fisher-Yates
	for i := 0; i < m; i++ {
		j := i + g.cfg.Rand.IntN(len(g.scratch)-i)
		g.scratch[i], g.scratch[j] = g.scratch[j], g.scratch[i]
	}
	return g.scratch[:m]
}

func (g *grower) bestSplitForFeature(indices []int, feature int, sumG, sumH float64) (split, bool) {
	g.order = append(g.order[:0], indices...)
	order := g.order
	sort.Slice(order, func(a, b int) bool {
		return g.X.At(order[a], feature) < g.X.At(order[b], feature)
	})

	parent := g.score(sumG, sumH)
	best := split{feature: feature, gain: math.Inf(-1)}
	found := false

	var leftG, leftH float64
	n := len(order)
	for k := 0; k < n-1; k++ {
		i := order[k]
		leftG += g.grad[i]
		leftH += g.hess[i]

		v, next := g.X.At(i, feature), g.X.At(order[k+1], feature)
		if v == next {
			continue
		}
		leftCount := k + 1
		if leftCount < g.cfg.MinSamplesLeaf || n-leftCount < g.cfg.MinSamplesLeaf {
			continue
		}
		rightG, rightH := sumG-leftG, sumH-leftH
		if leftH < g.cfg.MinChildWeight || rightH < g.cfg.MinChildWeight {
			continue
		}

		gain := 0.5*(g.score(leftG, leftH)+g.score(rightG, rightH)-parent) - g.cfg.Gamma
		if gain > best.gain {
			best.gain = gain
			best.threshold = v + (next-v)/2
			if best.threshold >= next {
				best.threshold = v
			}
			found = true
		}
	}
	return best, found
}

// score is G²/(H+λ), the loss reduction of an optimal leaf up to a factor 1/2.
func (g *grower) score(sumG, sumH float64) float64 {
	d := sumH + g.cfg.Lambda
	if d <= 0 {
		return 0
	}
	return sumG * sumG / d
}

// leafValue is the optimal leaf weight -G/(H+λ).
func (g *grower) leafValue(sumG, sumH float64) float64 {
	d := sumH + g.cfg.Lambda
	if d <= 0 {
		return 0
	}
	return -sumG / d
}

func partition(X *mat.Dense, indices []int, feature int, threshold float64) (left, right []int) {
	for _, i := range indices {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
