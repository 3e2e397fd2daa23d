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

// Package randomforest contains a random forest classifier: an average of
// decision trees grown on bootstrap samples of the training rows.
package randomforest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/opendataval/opendataval/port/go/estimator"
	"github.com/opendataval/opendataval/port/go/estimator/decisiontree"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// DefaultNumTrees is the default number of trees.
const DefaultNumTrees = 100

// Classifier is a random forest classifier.
type Classifier struct {
	estimator.Logging

	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	// Number of features sampled at each node. 0 means the square root of the
	// number of features.
	MaxFeatures int
	// Grow each tree on a bootstrap sample. Otherwise, each tree sees all the
	// rows.
	Bootstrap bool
	Seed      uint64

	classes []int
	trees   []*decisiontree.Classifier
}

var _ estimator.WeightedClassifier = (*Classifier)(nil)

// NewClassifier creates an unfitted forest with the default options.
func NewClassifier() *Classifier {
	return &Classifier{
		NumTrees:        DefaultNumTrees,
		MinSamplesSplit: decisiontree.DefaultMinSamplesSplit,
		Bootstrap:       true,
	}
}

// Fit fits the forest.
func (c *Classifier) Fit(x mat.Matrix, y []int) error {
	return c.FitWeighted(x, y, nil)
}

// FitWeighted fits the forest. The weight of a row in a tree is its sample
// weight times the number of times it was drawn in the bootstrap sample.
//
// The bootstrap samples only depend on "Seed": fitting twice on the same data
// gives the same forest.
func (c *Classifier) FitWeighted(x mat.Matrix, y []int, weights []float64) error {
	if err := estimator.CheckFitArgs(x, len(y), weights); err != nil {
		return fmt.Errorf("random forest: %w", err)
	}
	if c.NumTrees <= 0 {
		return fmt.Errorf("random forest: the number of trees must be positive, got %d", c.NumTrees)
	}
	numRows, numFeatures := x.Dims()
	classes := estimator.UniqueClasses(y)
	weights = estimator.UniformWeights(weights, numRows)
	maxFeatures := c.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(numFeatures))))
	}

	// The random draws happen sequentially, before the trees are grown in
	// parallel.
	rng := rand.New(rand.NewPCG(c.Seed, 0))
	trees := make([]*decisiontree.Classifier, c.NumTrees)
	samples := make([][]int, c.NumTrees)
	for treeIdx := range trees {
		trees[treeIdx] = &decisiontree.Classifier{
			MaxDepth:        c.MaxDepth,
			MinSamplesSplit: c.MinSamplesSplit,
			MaxFeatures:     maxFeatures,
			Seed:            rng.Uint64(),
		}
		counts := make([]int, numRows)
		for i := range counts {
			if c.Bootstrap {
				counts[rng.IntN(numRows)]++
			} else {
				counts[i] = 1
			}
		}
		samples[treeIdx] = counts
	}

	errs := make([]error, c.NumTrees)
	var wg sync.WaitGroup
	for treeIdx := range trees {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()
			treeX, treeY, treeWeights := sample(x, y, weights, samples[treeIdx])
			errs[treeIdx] = trees[treeIdx].FitClasses(treeX, treeY, treeWeights, classes)
		}(treeIdx)
	}
	wg.Wait()
	if err := multierr.Combine(errs...); err != nil {
		return fmt.Errorf("random forest: %w", err)
	}

	c.classes = classes
	c.trees = trees
	return nil
}

// sample returns the rows drawn at least once.
func sample(x mat.Matrix, y []int, weights []float64, counts []int) (*mat.Dense, []int, []float64) {
	_, numFeatures := x.Dims()
	var rows []int
	for row, count := range counts {
		if count > 0 {
			rows = append(rows, row)
		}
	}
	sampleX := mat.NewDense(len(rows), numFeatures, nil)
	sampleY := make([]int, len(rows))
	sampleWeights := make([]float64, len(rows))
	for i, row := range rows {
		for j := 0; j < numFeatures; j++ {
			sampleX.Set(i, j, x.At(row, j))
		}
		sampleY[i] = y[row]
		sampleWeights[i] = float64(counts[row]) * weights[row]
	}
	return sampleX, sampleY, sampleWeights
}

// Forest returns the fitted trees.
func (c *Classifier) Forest() *decisiontree.Forest {
	forest := &decisiontree.Forest{}
	for _, tree := range c.trees {
		forest.Trees = append(forest.Trees, tree.Tree())
	}
	return forest
}

// Classes returns the sorted classes seen during fitting.
func (c *Classifier) Classes() []int {
	return append([]int{}, c.classes...)
}

// PredictProba returns the average of the tree probabilities.
func (c *Classifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if c.trees == nil {
		return nil, fmt.Errorf("random forest: not fitted")
	}
	if estimator.Rows(x) == 0 {
		return &mat.Dense{}, nil
	}
	var sum *mat.Dense
	for _, tree := range c.trees {
		proba, err := tree.PredictProba(x)
		if err != nil {
			return nil, fmt.Errorf("random forest: %w", err)
		}
		if sum == nil {
			sum = proba
		} else {
			sum.Add(sum, proba)
		}
	}
	sum.Scale(1/float64(len(c.trees)), sum)
	return sum, nil
}

// Clone returns an independent copy.
func (c *Classifier) Clone() estimator.Estimator {
	clone := *c
	if c.trees != nil {
		clone.classes = append([]int{}, c.classes...)
		clone.trees = make([]*decisiontree.Classifier, len(c.trees))
		for i, tree := range c.trees {
			clone.trees[i] = tree.Clone().(*decisiontree.Classifier)
		}
	}
	return &clone
}
