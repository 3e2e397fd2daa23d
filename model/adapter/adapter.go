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

// Package adapter exposes estimators that are fitted once, in a single call,
// behind the "model.Model" interface.
//
// An adapter assembles the training rows into a single batch, substitutes a
// fallback estimator when the rows are degenerate (no rows, or some classes
// missing), and otherwise delegates to the wrapped estimator. After a
// successful fit, an adapter always predicts "NumClasses()" columns.
//
// The package registers the "LogisticRegression", "DecisionTreeClassifier",
// "RandomForestClassifier", "KNeighborsClassifier" and "LinearRegression"
// models.
package adapter

import (
	"fmt"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"github.com/opendataval/opendataval/port/go/estimator/dummy"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// base holds the fields shared by all the adapters.
type base struct {
	name       string
	numClasses int
	dtype      dataset.DType
}

// Name is the registered name of the model.
func (b *base) Name() string { return b.name }

// NumClasses is the number of output columns.
func (b *base) NumClasses() int { return b.numClasses }

// DType is the numeric type of the predictions.
func (b *base) DType() dataset.DType { return b.dtype }

func (b *base) logger() *zap.Logger {
	return zap.L().Named("adapter").With(zap.String("model", b.name))
}

// materialize collects the training rows into a single batch.
func materialize(x, y mat.Matrix, weights []float64) (*dataset.Batch, error) {
	ds, err := dataset.New(x, y, weights)
	if err != nil {
		return nil, err
	}
	return ds.Full(), nil
}

// classLabels converts the labels of a batch (class indices or class
// memberships) into class indices in [0, numClasses).
func classLabels(batch *dataset.Batch, numClasses int) ([]int, error) {
	if batch.Len() == 0 {
		return nil, nil
	}
	labels := dataset.ArgMax(batch.Y)
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("label %d of row %d is not in [0, %d)", label, i, numClasses)
		}
	}
	return labels, nil
}

// classifierFallback returns the estimator to use instead of the wrapped one
// for degenerate training rows, or nil if the rows are not degenerate.
//
// Without rows, the fallback always predicts class 0. With some classes
// missing, the fallback always predicts the class with the largest total
// sample weight (the most frequent class when unweighted).
func (b *base) classifierFallback(batch *dataset.Batch, labels []int) (estimator.Classifier, error) {
	if batch.Len() == 0 {
		fallback := dummy.NewClassifier(dummy.Constant)
		fallback.ConstantClass = 0
		fallback.SetLogger(zap.NewNop())
		if err := fallback.Fit(mat.NewDense(1, 1, nil), []int{0}); err != nil {
			return nil, err
		}
		fallback.SetNumClasses(b.numClasses)
		b.logger().Debug("No training rows, predicting class 0")
		return fallback, nil
	}

	observed := estimator.UniqueClasses(labels)
	if len(observed) < b.numClasses {
		fallback := dummy.NewClassifier(dummy.MostFrequent)
		err := estimator.Quietly(fallback, func() error {
			return fallback.FitWeighted(batch.X, labels, batch.Weights)
		})
		if err != nil {
			return nil, err
		}
		fallback.SetNumClasses(b.numClasses)
		b.logger().Debug("Missing classes in the training rows, predicting the most frequent class",
			zap.Int("observed_classes", len(observed)), zap.Int("num_classes", b.numClasses))
		return fallback, nil
	}
	return nil, nil
}

// predictProba returns the class probabilities of "est" with one column per
// class in [0, numClasses). Classes unknown to the estimator get a zero
// probability.
func (b *base) predictProba(est estimator.Classifier, x mat.Matrix) (*mat.Dense, error) {
	if est == nil {
		return nil, fmt.Errorf("%s: not fitted", b.name)
	}
	features := dataset.ToDense(x)
	if features.IsEmpty() {
		return &mat.Dense{}, nil
	}
	proba, err := est.PredictProba(features)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	classes := est.Classes()
	numRows, numCols := proba.Dims()
	if numCols != len(classes) {
		return nil, fmt.Errorf("%s: %d probability columns for %d classes", b.name, numCols, len(classes))
	}

	output := mat.NewDense(numRows, b.numClasses, nil)
	column := make([]float64, numRows)
	for k, class := range classes {
		if class < 0 || class >= b.numClasses {
			continue
		}
		output.SetCol(class, mat.Col(column, k, proba))
	}
	return dataset.Cast(output, b.dtype), nil
}
