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

// Package estimator defines the interfaces of the estimators that are fitted
// once, in a single non-iterative call, on a set of rows.
package estimator

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Estimator is the base interface of all estimators.
type Estimator interface {
	// Clone returns an independent copy of the estimator in its current
	// state. The copy has the same concrete type as the receiver.
	Clone() Estimator
}

// Classifier is a classification estimator fitted on class indices.
type Classifier interface {
	Estimator

	// Fit fits the estimator. "y" holds the class index of each row.
	Fit(x mat.Matrix, y []int) error

	// PredictProba returns the class probabilities of each row. Column k is
	// the probability of "Classes()[k]".
	PredictProba(x mat.Matrix) (*mat.Dense, error)

	// Classes returns the sorted classes seen during fitting.
	Classes() []int
}

// WeightedClassifier is a classifier supporting per-row sample weights.
type WeightedClassifier interface {
	Classifier

	// FitWeighted fits the estimator. A nil "weights" is equivalent to Fit.
	FitWeighted(x mat.Matrix, y []int, weights []float64) error
}

// Regressor is a regression estimator with one or more outputs.
type Regressor interface {
	Estimator

	// Fit fits the estimator. "y" has one column per output.
	Fit(x, y mat.Matrix) error

	// Predict returns the predicted outputs of each row.
	Predict(x mat.Matrix) (*mat.Dense, error)
}

// WeightedRegressor is a regressor supporting per-row sample weights.
type WeightedRegressor interface {
	Regressor

	// FitWeighted fits the estimator. A nil "weights" is equivalent to Fit.
	FitWeighted(x, y mat.Matrix, weights []float64) error
}

// Logged is implemented by estimators that report warnings (e.g. a solver
// not converging).
type Logged interface {
	// SetLogger replaces the logger of the estimator and returns the previous
	// one. A nil logger means the global zap logger.
	SetLogger(logger *zap.Logger) *zap.Logger
}

// Logging implements Logged. Embed it in estimators.
type Logging struct {
	logger *zap.Logger
}

// SetLogger replaces the logger and returns the previous one.
func (l *Logging) SetLogger(logger *zap.Logger) *zap.Logger {
	previous := l.logger
	l.logger = logger
	return previous
}

// Logger is the logger to report warnings to.
func (l *Logging) Logger() *zap.Logger {
	if l.logger == nil {
		return zap.L()
	}
	return l.logger
}

// Quietly runs "fn" with the warnings of "est" silenced. The logger of the
// estimator is restored afterwards.
func Quietly(est Estimator, fn func() error) error {
	logged, ok := est.(Logged)
	if !ok {
		return fn()
	}
	previous := logged.SetLogger(zap.NewNop())
	defer logged.SetLogger(previous)
	return fn()
}

// Rows is the number of rows of a possibly nil or empty matrix.
func Rows(x mat.Matrix) int {
	if x == nil {
		return 0
	}
	if dense, ok := x.(*mat.Dense); ok && (dense == nil || dense.IsEmpty()) {
		return 0
	}
	r, _ := x.Dims()
	return r
}

// CheckFitArgs checks the alignment of the arguments of a fit call.
func CheckFitArgs(x mat.Matrix, numLabels int, weights []float64) error {
	numRows := Rows(x)
	if numRows == 0 {
		return fmt.Errorf("cannot fit on zero rows")
	}
	if numRows != numLabels {
		return fmt.Errorf("%d rows and %d labels", numRows, numLabels)
	}
	if weights != nil && len(weights) != numRows {
		return fmt.Errorf("%d rows and %d sample weights", numRows, len(weights))
	}
	return nil
}

// UniformWeights returns "weights", or n unit weights if "weights" is nil.
func UniformWeights(weights []float64, n int) []float64 {
	if weights != nil {
		return weights
	}
	uniform := make([]float64, n)
	for i := range uniform {
		uniform[i] = 1
	}
	return uniform
}

// UniqueClasses returns the sorted distinct values of "y".
func UniqueClasses(y []int) []int {
	seen := make(map[int]bool, len(y))
	classes := make([]int, 0)
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Ints(classes)
	return classes
}

// ClassIndex maps each class to its position in "classes".
func ClassIndex(classes []int) map[int]int {
	index := make(map[int]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}
	return index
}
