/*
 * Copyright 2022 Google LLC.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package decisiontree contains a CART decision tree classifier and the tree
// structures shared with the forest estimators.
package decisiontree

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Condition routes the rows with "x[Feature] >= Threshold" to the positive
// child.
type Condition struct {
	Feature   int
	Threshold float64
}

// Node is a tree node.
type Node struct {
	// nil for leaves.
	Condition *Condition

	// Class distribution of a leaf. Indexed by class position.
	Distribution []float64

	PositiveChild *Node
	NegativeChild *Node
}

// IsLeaf tests if a node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.PositiveChild == nil
}

// NumLeafs is the number of leafs in a sub-tree.
func (n *Node) NumLeafs() int {
	if n.IsLeaf() {
		return 1
	}
	return n.PositiveChild.NumLeafs() + n.NegativeChild.NumLeafs()
}

// NumNonLeafs is the number of non-leaf nodes in a sub-tree.
func (n *Node) NumNonLeafs() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + n.PositiveChild.NumNonLeafs() + n.NegativeChild.NumNonLeafs()
}

// Depth is the number of edges on the longest path to a leaf.
func (n *Node) Depth() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(n.PositiveChild.Depth(), n.NegativeChild.Depth())
}

// Leaf returns the leaf reached by the row "x".
func (n *Node) Leaf(x []float64) *Node {
	node := n
	for !node.IsLeaf() {
		if x[node.Condition.Feature] >= node.Condition.Threshold {
			node = node.PositiveChild
		} else {
			node = node.NegativeChild
		}
	}
	return node
}

func (n *Node) clone() *Node {
	clone := &Node{Distribution: append([]float64(nil), n.Distribution...)}
	if n.Condition != nil {
		condition := *n.Condition
		clone.Condition = &condition
		clone.PositiveChild = n.PositiveChild.clone()
		clone.NegativeChild = n.NegativeChild.clone()
	}
	return clone
}

// Tree is a decision tree.
type Tree struct {
	// Root node of the tree. nil if the tree is empty.
	Root *Node
}

// Forest is a collection of trees.
type Forest struct {
	Trees []*Tree
}

// NumLeafs is the number of leafs in the forest.
func (f *Forest) NumLeafs() int {
	count := 0
	for _, tree := range f.Trees {
		if tree.Root != nil {
			count += tree.Root.NumLeafs()
		}
	}
	return count
}

// NumNonLeafs is the number of non-leaf nodes in the forest.
func (f *Forest) NumNonLeafs() int {
	count := 0
	for _, tree := range f.Trees {
		if tree.Root != nil {
			count += tree.Root.NumNonLeafs()
		}
	}
	return count
}

// Splits must decrease the impurity by more than this amount.
const minImpurityDecrease = 1e-12

// DefaultMinSamplesSplit is the default minimum number of rows to split a node.
const DefaultMinSamplesSplit = 2

// Classifier is a CART classifier growing binary axis-aligned splits that
// minimize the weighted gini impurity.
type Classifier struct {
	estimator.Logging

	// Maximum depth of the tree. 0 means unlimited.
	MaxDepth int
	// Nodes with fewer rows are not split.
	MinSamplesSplit int
	// Number of features sampled at each node. 0 means all the features.
	MaxFeatures int
	// Seed of the feature sampling.
	Seed uint64

	numFeatures int
	classes     []int
	tree        *Tree
}

var _ estimator.WeightedClassifier = (*Classifier)(nil)

// NewClassifier creates an unfitted tree with the default options.
func NewClassifier() *Classifier {
	return &Classifier{MinSamplesSplit: DefaultMinSamplesSplit}
}

// Fit fits the tree.
func (c *Classifier) Fit(x mat.Matrix, y []int) error {
	return c.FitWeighted(x, y, nil)
}

// FitWeighted fits the tree.
func (c *Classifier) FitWeighted(x mat.Matrix, y []int, weights []float64) error {
	return c.FitClasses(x, y, weights, estimator.UniqueClasses(y))
}

// FitClasses fits the tree with the output columns given by "classes", which
// must be sorted and may contain classes absent from "y".
func (c *Classifier) FitClasses(x mat.Matrix, y []int, weights []float64, classes []int) error {
	if err := estimator.CheckFitArgs(x, len(y), weights); err != nil {
		return fmt.Errorf("decision tree: %w", err)
	}
	numRows, numFeatures := x.Dims()
	classIndex := estimator.ClassIndex(classes)
	b := &builder{
		classifier: c,
		x:          mat.DenseCopyOf(x),
		targets:    make([]int, numRows),
		weights:    estimator.UniformWeights(weights, numRows),
		numClasses: len(classes),
		rng:        rand.New(rand.NewPCG(c.Seed, 0)),
	}
	for i, label := range y {
		position, ok := classIndex[label]
		if !ok {
			return fmt.Errorf("decision tree: unknown class %d", label)
		}
		b.targets[i] = position
	}
	rows := make([]int, numRows)
	for i := range rows {
		rows[i] = i
	}

	c.numFeatures = numFeatures
	c.classes = append([]int{}, classes...)
	c.tree = &Tree{Root: b.build(rows, 0)}
	return nil
}

// Tree returns the fitted tree. nil if not fitted.
func (c *Classifier) Tree() *Tree {
	return c.tree
}

// Classes returns the sorted classes seen during fitting.
func (c *Classifier) Classes() []int {
	return append([]int{}, c.classes...)
}

// PredictProba returns the leaf distribution of each row.
func (c *Classifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if c.tree == nil {
		return nil, fmt.Errorf("decision tree: not fitted")
	}
	numRows := estimator.Rows(x)
	if numRows == 0 {
		return &mat.Dense{}, nil
	}
	if _, cols := x.Dims(); cols != c.numFeatures {
		return nil, fmt.Errorf("decision tree: %w: %d features, expecting %d", dataset.ErrShapeMismatch, cols, c.numFeatures)
	}
	proba := mat.NewDense(numRows, len(c.classes), nil)
	row := make([]float64, c.numFeatures)
	for i := 0; i < numRows; i++ {
		mat.Row(row, i, x)
		proba.SetRow(i, c.tree.Root.Leaf(row).Distribution)
	}
	return proba, nil
}

// Clone returns an independent copy.
func (c *Classifier) Clone() estimator.Estimator {
	clone := *c
	if c.tree != nil {
		clone.classes = append([]int{}, c.classes...)
		clone.tree = &Tree{Root: c.tree.Root.clone()}
	}
	return &clone
}

type builder struct {
	classifier *Classifier
	x          *mat.Dense
	targets    []int
	weights    []float64
	numClasses int
	rng        *rand.Rand
}

func (b *builder) build(rows []int, depth int) *Node {
	counts := b.counts(rows)
	total := floats.Sum(counts)
	impurity := gini(counts, total)

	stop := (b.classifier.MaxDepth > 0 && depth >= b.classifier.MaxDepth) ||
		len(rows) < max(b.classifier.MinSamplesSplit, 2) ||
		impurity == 0
	if !stop {
		if condition, score := b.bestCondition(rows, total); condition != nil && score < impurity-minImpurityDecrease {
			var positive, negative []int
			for _, row := range rows {
				if b.x.At(row, condition.Feature) >= condition.Threshold {
					positive = append(positive, row)
				} else {
					negative = append(negative, row)
				}
			}
			if len(positive) > 0 && len(negative) > 0 {
				return &Node{
					Condition:     condition,
					PositiveChild: b.build(positive, depth+1),
					NegativeChild: b.build(negative, depth+1),
				}
			}
		}
	}
	return &Node{Distribution: normalize(counts, total)}
}

// bestCondition returns the split with the lowest weighted impurity and its
// impurity. Ties keep the first candidate (lowest feature, lowest threshold).
func (b *builder) bestCondition(rows []int, total float64) (*Condition, float64) {
	var best *Condition
	bestScore := 0.0
	if total <= 0 {
		return nil, 0
	}

	sorted := append([]int{}, rows...)
	negative := make([]float64, b.numClasses)
	positive := make([]float64, b.numClasses)
	for _, feature := range b.features() {
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x.At(sorted[i], feature) < b.x.At(sorted[j], feature)
		})
		for k := range negative {
			negative[k] = 0
		}
		copy(positive, b.counts(sorted))
		negativeTotal := 0.0

		for i := 0; i < len(sorted)-1; i++ {
			row := sorted[i]
			w := b.weights[row]
			negative[b.targets[row]] += w
			positive[b.targets[row]] -= w
			negativeTotal += w

			value, next := b.x.At(row, feature), b.x.At(sorted[i+1], feature)
			if value == next {
				continue
			}
			positiveTotal := total - negativeTotal
			score := (negativeTotal*gini(negative, negativeTotal) + positiveTotal*gini(positive, positiveTotal)) / total
			if best == nil || score < bestScore {
				// The midpoint of two adjacent floats can round down to "value".
				threshold := value + (next-value)/2
				if threshold <= value {
					threshold = next
				}
				best = &Condition{Feature: feature, Threshold: threshold}
				bestScore = score
			}
		}
	}
	return best, bestScore
}

// features returns the candidate features of a node, in increasing order.
func (b *builder) features() []int {
	numFeatures := b.x.RawMatrix().Cols
	maxFeatures := b.classifier.MaxFeatures
	if maxFeatures <= 0 || maxFeatures >= numFeatures {
		features := make([]int, numFeatures)
		for i := range features {
			features[i] = i
		}
		return features
	}
	features := b.rng.Perm(numFeatures)[:maxFeatures]
	sort.Ints(features)
	return features
}

func (b *builder) counts(rows []int) []float64 {
	counts := make([]float64, b.numClasses)
	for _, row := range rows {
		counts[b.targets[row]] += b.weights[row]
	}
	return counts
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, count := range counts {
		p := count / total
		sum += p * p
	}
	return 1 - sum
}

// normalize converts counts into a distribution. Zero counts give the uniform
// distribution.
func normalize(counts []float64, total float64) []float64 {
	distribution := make([]float64, len(counts))
	for k, count := range counts {
		if total > 0 {
			distribution[k] = count / total
		} else {
			distribution[k] = 1 / float64(len(counts))
		}
	}
	return distribution
}
