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

package linear

import (
	"fmt"
	"math"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	// DefaultC is the default inverse regularization strength.
	DefaultC = 1.0
	// DefaultMaxIterations is the default number of L-BFGS iterations.
	DefaultMaxIterations = 100
	// DefaultTolerance is the default gradient norm at which L-BFGS stops.
	DefaultTolerance = 1e-4
)

// LogisticRegression is a multinomial logistic regression classifier. It
// minimizes the weighted log loss plus an L2 penalty of 1/(2C) on the
// non-intercept coefficients with L-BFGS.
type LogisticRegression struct {
	estimator.Logging

	// Inverse regularization strength. Must be positive.
	C             float64
	MaxIterations int
	Tolerance     float64

	classes []int
	// Coefficients with shape (classes, features + 1). The last column is the
	// intercept.
	coef *mat.Dense
}

var _ estimator.WeightedClassifier = (*LogisticRegression)(nil)

// NewLogisticRegression creates an unfitted classifier with the default options.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		C:             DefaultC,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Fit fits the classifier.
func (m *LogisticRegression) Fit(x mat.Matrix, y []int) error {
	return m.FitWeighted(x, y, nil)
}

// FitWeighted fits the classifier.
func (m *LogisticRegression) FitWeighted(x mat.Matrix, y []int, weights []float64) error {
	if err := estimator.CheckFitArgs(x, len(y), weights); err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	if m.C <= 0 {
		return fmt.Errorf("logistic regression: C must be positive, got %v", m.C)
	}
	classes := estimator.UniqueClasses(y)
	if len(classes) < 2 {
		return ErrSingleClass
	}
	if _, c := x.Dims(); c == 0 {
		return fmt.Errorf("logistic regression: no features")
	}
	classIndex := estimator.ClassIndex(classes)
	targets := make([]int, len(y))
	for i, label := range y {
		targets[i] = classIndex[label]
	}
	weights = estimator.UniformWeights(weights, len(y))

	features := withBias(x)
	numRows, numCols := features.Dims()
	numClasses := len(classes)
	objective := &logLoss{
		features:   features,
		targets:    targets,
		weights:    weights,
		numClasses: numClasses,
		penalty:    1 / m.C,
		logits:     mat.NewDense(numRows, numClasses, nil),
	}

	problem := optimize.Problem{
		Func: objective.value,
		Grad: objective.gradient,
	}
	settings := &optimize.Settings{
		MajorIterations:   m.MaxIterations,
		GradientThreshold: m.Tolerance,
	}
	result, err := optimize.Minimize(problem, make([]float64, numClasses*numCols), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	converged := result.Status == optimize.GradientThreshold || result.Status == optimize.FunctionConvergence
	if err != nil || !converged {
		m.Logger().Warn("Logistic regression did not converge",
			zap.Stringer("status", result.Status),
			zap.Int("iterations", result.MajorIterations),
			zap.Error(err))
	}

	m.classes = classes
	m.coef = mat.NewDense(numClasses, numCols, append([]float64{}, result.X...))
	return nil
}

// Classes returns the sorted classes seen during fitting.
func (m *LogisticRegression) Classes() []int {
	return append([]int{}, m.classes...)
}

// PredictProba returns the class probabilities.
func (m *LogisticRegression) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if m.coef == nil {
		return nil, fmt.Errorf("logistic regression: not fitted")
	}
	numRows := estimator.Rows(x)
	numClasses, numCols := m.coef.Dims()
	if numRows == 0 {
		return &mat.Dense{}, nil
	}
	if _, c := x.Dims(); c+1 != numCols {
		return nil, fmt.Errorf("logistic regression: %w: %d features, expecting %d", dataset.ErrShapeMismatch, c, numCols-1)
	}
	proba := mat.NewDense(numRows, numClasses, nil)
	proba.Mul(withBias(x), m.coef.T())
	for i := 0; i < numRows; i++ {
		softmaxInPlace(proba.RawRowView(i))
	}
	return proba, nil
}

// Clone returns an independent copy.
func (m *LogisticRegression) Clone() estimator.Estimator {
	clone := *m
	if m.coef != nil {
		clone.coef = mat.DenseCopyOf(m.coef)
		clone.classes = append([]int{}, m.classes...)
	}
	return &clone
}

// logLoss is the penalized weighted multinomial log loss.
type logLoss struct {
	features   *mat.Dense
	targets    []int
	weights    []float64
	numClasses int
	penalty    float64

	// Buffer of shape (rows, classes).
	logits *mat.Dense
}

// probabilities computes the class probabilities for the parameters "params"
// into "l.logits" and returns the log loss (without penalty).
func (l *logLoss) probabilities(params []float64) float64 {
	_, numCols := l.features.Dims()
	coef := mat.NewDense(l.numClasses, numCols, params)
	l.logits.Mul(l.features, coef.T())
	loss := 0.0
	for i, target := range l.targets {
		row := l.logits.RawRowView(i)
		loss -= l.weights[i] * (row[target] - floats.LogSumExp(row))
		softmaxInPlace(row)
	}
	return loss
}

func (l *logLoss) value(params []float64) float64 {
	return l.probabilities(params) + 0.5*l.penalty*l.squaredNorm(params)
}

func (l *logLoss) gradient(grad, params []float64) {
	l.probabilities(params)
	_, numCols := l.features.Dims()
	for i, target := range l.targets {
		row := l.logits.RawRowView(i)
		row[target] -= 1
		floats.Scale(l.weights[i], row)
	}
	// grad = (proba - onehot)^T * features
	g := mat.NewDense(l.numClasses, numCols, grad)
	g.Mul(l.logits.T(), l.features)
	for k := 0; k < l.numClasses; k++ {
		for j := 0; j < numCols; j++ {
			idx := k*numCols + j
			if j != numCols-1 {
				grad[idx] += l.penalty * params[idx]
			}
		}
	}
}

func (l *logLoss) squaredNorm(params []float64) float64 {
	_, numCols := l.features.Dims()
	sum := 0.0
	for idx, v := range params {
		// The intercept is not penalized.
		if idx%numCols != numCols-1 {
			sum += v * v
		}
	}
	return sum
}

// withBias returns "x" with an extra column of ones.
func withBias(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	features := mat.NewDense(r, c+1, nil)
	features.Slice(0, r, 0, c).(*mat.Dense).Copy(x)
	for i := 0; i < r; i++ {
		features.Set(i, c, 1)
	}
	return features
}

func softmaxInPlace(row []float64) {
	maxValue := floats.Max(row)
	sum := 0.0
	for j, v := range row {
		row[j] = math.Exp(v - maxValue)
		sum += row[j]
	}
	floats.Scale(1/sum, row)
}
