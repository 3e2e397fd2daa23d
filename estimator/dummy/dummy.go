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

// Package dummy contains estimators that ignore the covariates. They are used
// as baselines and as fallbacks when the training data is degenerate.
package dummy

import (
	"fmt"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Strategy is the prediction rule of a dummy classifier.
type Strategy string

const (
	// Constant always predicts "ConstantClass".
	Constant Strategy = "constant"
	// MostFrequent always predicts the class with the largest total weight.
	// Ties are broken in favor of the smallest class.
	MostFrequent Strategy = "most_frequent"
	// Prior predicts the weighted class frequencies.
	Prior Strategy = "prior"
)

// Classifier is a classifier returning the same distribution for every row.
//
// Unlike the other classifiers, the columns of the output are indexed by the
// class value: column k is the probability of class k.
type Classifier struct {
	estimator.Logging

	Strategy      Strategy
	ConstantClass int

	// Probability of each class. Indexed by class value.
	proba []float64
}

var _ estimator.WeightedClassifier = (*Classifier)(nil)

// NewClassifier creates an unfitted dummy classifier.
func NewClassifier(strategy Strategy) *Classifier {
	return &Classifier{Strategy: strategy}
}

// Fit fits the classifier.
func (c *Classifier) Fit(x mat.Matrix, y []int) error {
	return c.FitWeighted(x, y, nil)
}

// FitWeighted fits the classifier.
func (c *Classifier) FitWeighted(x mat.Matrix, y []int, weights []float64) error {
	if err := estimator.CheckFitArgs(x, len(y), weights); err != nil {
		return fmt.Errorf("dummy classifier: %w", err)
	}
	maxClass := 0
	for _, label := range y {
		if label < 0 {
			return fmt.Errorf("dummy classifier: negative class %d", label)
		}
		maxClass = max(maxClass, label)
	}

	switch c.Strategy {
	case Constant:
		if c.ConstantClass < 0 {
			return fmt.Errorf("dummy classifier: negative constant class %d", c.ConstantClass)
		}
		c.proba = make([]float64, max(maxClass, c.ConstantClass)+1)
		c.proba[c.ConstantClass] = 1

	case MostFrequent, Prior:
		counts := make([]float64, maxClass+1)
		weights = estimator.UniformWeights(weights, len(y))
		for rowIdx, label := range y {
			counts[label] += weights[rowIdx]
		}
		sum := floats.Sum(counts)
		if c.Strategy == MostFrequent || sum == 0 {
			// floats.MaxIdx returns the first maximum.
			c.proba = make([]float64, len(counts))
			c.proba[floats.MaxIdx(counts)] = 1
		} else {
			floats.Scale(1/sum, counts)
			c.proba = counts
		}

	default:
		return fmt.Errorf("dummy classifier: unknown strategy %q", c.Strategy)
	}
	return nil
}

// SetNumClasses forces the number of output columns. Missing classes are
// predicted with a zero probability. Classes beyond "numClasses" are dropped.
func (c *Classifier) SetNumClasses(numClasses int) {
	proba := make([]float64, numClasses)
	copy(proba, c.proba)
	c.proba = proba
}

// Classes returns 0, 1, ..., n-1 where n is the number of output columns.
func (c *Classifier) Classes() []int {
	classes := make([]int, len(c.proba))
	for i := range classes {
		classes[i] = i
	}
	return classes
}

// PredictProba returns the fitted distribution for each row of "x".
func (c *Classifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if c.proba == nil {
		return nil, fmt.Errorf("dummy classifier: not fitted")
	}
	numRows := estimator.Rows(x)
	output := dataset.NewDense(numRows, len(c.proba), nil)
	for i := 0; i < numRows; i++ {
		output.SetRow(i, c.proba)
	}
	return output, nil
}

// Clone returns an independent copy.
func (c *Classifier) Clone() estimator.Estimator {
	clone := *c
	if c.proba != nil {
		clone.proba = append([]float64{}, c.proba...)
	}
	return &clone
}

// Regressor predicts the weighted mean of each training output.
type Regressor struct {
	estimator.Logging

	means []float64
}

var _ estimator.WeightedRegressor = (*Regressor)(nil)

// NewRegressor creates an unfitted mean regressor.
func NewRegressor() *Regressor {
	return &Regressor{}
}

// Fit fits the regressor.
func (r *Regressor) Fit(x, y mat.Matrix) error {
	return r.FitWeighted(x, y, nil)
}

// FitWeighted fits the regressor.
func (r *Regressor) FitWeighted(x, y mat.Matrix, weights []float64) error {
	if err := estimator.CheckFitArgs(x, estimator.Rows(y), weights); err != nil {
		return fmt.Errorf("dummy regressor: %w", err)
	}
	if weights != nil && floats.Sum(weights) == 0 {
		weights = nil
	}
	numRows, numOutputs := y.Dims()
	column := make([]float64, numRows)
	r.means = make([]float64, numOutputs)
	for j := range r.means {
		mat.Col(column, j, y)
		r.means[j] = stat.Mean(column, weights)
	}
	return nil
}

// Predict returns the fitted means for each row of "x".
func (r *Regressor) Predict(x mat.Matrix) (*mat.Dense, error) {
	if r.means == nil {
		return nil, fmt.Errorf("dummy regressor: not fitted")
	}
	numRows := estimator.Rows(x)
	output := dataset.NewDense(numRows, len(r.means), nil)
	for i := 0; i < numRows; i++ {
		output.SetRow(i, r.means)
	}
	return output, nil
}

// Clone returns an independent copy.
func (r *Regressor) Clone() estimator.Estimator {
	clone := *r
	if r.means != nil {
		clone.means = append([]float64{}, r.means...)
	}
	return &clone
}
