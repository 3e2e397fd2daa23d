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

package adapter

import (
	"fmt"
	"math/rand/v2"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"github.com/opendataval/opendataval/port/go/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ClassifierAdapter wraps a classifier supporting sample weights.
//
// A fallback substituted by a degenerate fit does not discard the wrapped
// classifier: the next fit on rows covering every class uses it again.
type ClassifierAdapter struct {
	base

	wrapped estimator.WeightedClassifier
	// Estimator answering the predictions: "wrapped" or a fallback.
	active estimator.Classifier
}

var _ model.Model = (*ClassifierAdapter)(nil)

// NewClassifierAdapter creates an adapter predicting "numClasses" columns.
func NewClassifierAdapter(name string, numClasses int, est estimator.WeightedClassifier, dtype dataset.DType) (*ClassifierAdapter, error) {
	if numClasses < 1 {
		return nil, fmt.Errorf("%s: the number of classes must be positive, got %d", name, numClasses)
	}
	return &ClassifierAdapter{
		base:    base{name: name, numClasses: numClasses, dtype: dtype},
		wrapped: est,
	}, nil
}

// Estimator returns the estimator answering the predictions: the wrapped
// estimator, or the fallback substituted by the last fit. Nil before the
// first fit.
func (a *ClassifierAdapter) Estimator() estimator.Classifier {
	return a.active
}

// Fit fits the classifier. "y" holds either the class indices (one column) or
// one-hot class memberships (NumClasses columns). The fit options are ignored.
func (a *ClassifierAdapter) Fit(x, y mat.Matrix, weights []float64, _ ...model.FitOption) (model.Model, error) {
	batch, err := materialize(x, y, weights)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	labels, err := classLabels(batch, a.numClasses)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	fallback, err := a.classifierFallback(batch, labels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	if fallback != nil {
		a.active = fallback
		return a, nil
	}

	// A nil batch.Weights is the unweighted fit.
	err = estimator.Quietly(a.wrapped, func() error {
		return a.wrapped.FitWeighted(batch.X, labels, batch.Weights)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	a.active = a.wrapped
	return a, nil
}

// Predict returns the class probabilities.
func (a *ClassifierAdapter) Predict(x mat.Matrix) (*mat.Dense, error) {
	return a.predictProba(a.active, x)
}

func (a *ClassifierAdapter) Clone() model.Model {
	clone := &ClassifierAdapter{
		base:    a.base,
		wrapped: a.wrapped.Clone().(estimator.WeightedClassifier),
	}
	clone.active = cloneActive[estimator.Classifier](a.active, a.wrapped, clone.wrapped)
	return clone
}

// cloneActive returns the clone of "active": "clonedWrapped" if "active" is
// the wrapped estimator, an independent copy otherwise.
func cloneActive[T estimator.Estimator](active, wrapped, clonedWrapped T) T {
	switch {
	case any(active) == nil:
		return active
	case any(active) == any(wrapped):
		return clonedWrapped
	}
	return active.Clone().(T)
}

// UnweightedClassifierAdapter wraps a classifier without support for sample
// weights. Weighted fits are approximated by fitting the classifier on a
// bootstrap sample: as many rows as the training set, drawn with replacement
// with a probability proportional to their weight.
//
// Unlike ClassifierAdapter, weighted fits are random: the random generator is
// seeded at construction and advances at each weighted fit.
type UnweightedClassifierAdapter struct {
	base

	wrapped estimator.Classifier
	active  estimator.Classifier
	source  *rand.PCG
}

var _ model.Model = (*UnweightedClassifierAdapter)(nil)

// NewUnweightedClassifierAdapter creates an adapter predicting "numClasses"
// columns. "seed" seeds the bootstrap samples.
func NewUnweightedClassifierAdapter(name string, numClasses int, est estimator.Classifier, dtype dataset.DType, seed uint64) (*UnweightedClassifierAdapter, error) {
	if numClasses < 1 {
		return nil, fmt.Errorf("%s: the number of classes must be positive, got %d", name, numClasses)
	}
	return &UnweightedClassifierAdapter{
		base:    base{name: name, numClasses: numClasses, dtype: dtype},
		wrapped: est,
		source:  rand.NewPCG(seed, 0),
	}, nil
}

// Estimator returns the estimator answering the predictions.
func (a *UnweightedClassifierAdapter) Estimator() estimator.Classifier {
	return a.active
}

// Fit fits the classifier. See ClassifierAdapter.Fit.
func (a *UnweightedClassifierAdapter) Fit(x, y mat.Matrix, weights []float64, _ ...model.FitOption) (model.Model, error) {
	batch, err := materialize(x, y, weights)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	labels, err := classLabels(batch, a.numClasses)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	fallback, err := a.classifierFallback(batch, labels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	if fallback != nil {
		a.active = fallback
		return a, nil
	}

	features := batch.X
	if batch.Weighted() {
		features, labels, err = a.resample(batch.X, labels, batch.Weights)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
	}
	err = estimator.Quietly(a.wrapped, func() error {
		return a.wrapped.Fit(features, labels)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	a.active = a.wrapped
	return a, nil
}

// resample draws len(labels) rows with replacement, with probabilities
// proportional to "weights".
func (a *UnweightedClassifierAdapter) resample(x *mat.Dense, labels []int, weights []float64) (*mat.Dense, []int, error) {
	sum := floats.Sum(weights)
	if sum <= 0 {
		return nil, nil, fmt.Errorf("cannot resample rows with a zero total weight")
	}
	proba := make([]float64, len(weights))
	floats.ScaleTo(proba, 1/sum, weights)
	categorical := distuv.NewCategorical(proba, pcgSource{a.source})

	numRows, numFeatures := x.Dims()
	sampleX := mat.NewDense(numRows, numFeatures, nil)
	sampleLabels := make([]int, numRows)
	for i := 0; i < numRows; i++ {
		row := int(categorical.Rand())
		sampleX.SetRow(i, x.RawRowView(row))
		sampleLabels[i] = labels[row]
	}
	return sampleX, sampleLabels, nil
}

// pcgSource exposes a PCG as the single-seed random source expected by
// distuv.
type pcgSource struct {
	*rand.PCG
}

func (s pcgSource) Seed(seed uint64) {
	s.PCG.Seed(seed, 0)
}

// Predict returns the class probabilities.
func (a *UnweightedClassifierAdapter) Predict(x mat.Matrix) (*mat.Dense, error) {
	return a.predictProba(a.active, x)
}

// Clone returns an independent copy. The copy draws the same bootstrap
// samples as the original.
func (a *UnweightedClassifierAdapter) Clone() model.Model {
	source := *a.source
	clone := &UnweightedClassifierAdapter{
		base:    a.base,
		wrapped: a.wrapped.Clone().(estimator.Classifier),
		source:  &source,
	}
	clone.active = cloneActive[estimator.Classifier](a.active, a.wrapped, clone.wrapped)
	return clone
}
