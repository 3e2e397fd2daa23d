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

// Package linear contains linear estimators: a least squares regressor and a
// multinomial logistic regression classifier.
package linear

import (
	"errors"
	"fmt"
	"math"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ErrSingleClass is returned when fitting a classifier on a single class.
var ErrSingleClass = errors.New("linear: at least two classes are needed")

// LinearRegression is a weighted least squares regressor with one or more
// outputs. Rank deficient problems get the minimum norm solution.
type LinearRegression struct {
	estimator.Logging

	FitIntercept bool

	// Coefficients with shape (features, outputs).
	coef      *mat.Dense
	intercept []float64
}

var _ estimator.WeightedRegressor = (*LinearRegression)(nil)

// NewLinearRegression creates an unfitted regressor with an intercept.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{FitIntercept: true}
}

// Fit fits the regressor.
func (m *LinearRegression) Fit(x, y mat.Matrix) error {
	return m.FitWeighted(x, y, nil)
}

// FitWeighted fits the regressor. Each row is scaled by the square root of its
// weight, which turns the weighted problem into an ordinary one.
func (m *LinearRegression) FitWeighted(x, y mat.Matrix, weights []float64) error {
	if err := estimator.CheckFitArgs(x, estimator.Rows(y), weights); err != nil {
		return fmt.Errorf("linear regression: %w", err)
	}
	numRows, numFeatures := x.Dims()
	_, numOutputs := y.Dims()
	if numFeatures == 0 {
		return fmt.Errorf("linear regression: no features")
	}
	numCols := numFeatures
	if m.FitIntercept {
		numCols++
	}

	design := mat.NewDense(numRows, numCols, nil)
	target := mat.NewDense(numRows, numOutputs, nil)
	for i := 0; i < numRows; i++ {
		scale := 1.0
		if weights != nil {
			scale = math.Sqrt(weights[i])
		}
		for j := 0; j < numFeatures; j++ {
			design.Set(i, j, scale*x.At(i, j))
		}
		if m.FitIntercept {
			design.Set(i, numFeatures, scale)
		}
		for j := 0; j < numOutputs; j++ {
			target.Set(i, j, scale*y.At(i, j))
		}
	}

	m.coef = mat.NewDense(numFeatures, numOutputs, nil)
	m.intercept = make([]float64, numOutputs)

	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDThin) {
		return fmt.Errorf("linear regression: singular value decomposition failed")
	}
	rank := svd.Rank(epsilon * float64(max(numRows, numCols)))
	if rank == 0 {
		m.Logger().Warn("Linear regression design has rank zero, all coefficients are zero",
			zap.Int("rows", numRows))
		return nil
	}
	var solution mat.Dense
	svd.SolveTo(&solution, target, rank)

	m.coef.Copy(solution.Slice(0, numFeatures, 0, numOutputs))
	if m.FitIntercept {
		mat.Row(m.intercept, numFeatures, &solution)
	}
	return nil
}

// Coefficients returns a copy of the coefficients, with shape (features,
// outputs), and of the intercepts.
func (m *LinearRegression) Coefficients() (*mat.Dense, []float64) {
	if m.coef == nil {
		return nil, nil
	}
	return mat.DenseCopyOf(m.coef), append([]float64{}, m.intercept...)
}

// Predict returns the predicted outputs.
func (m *LinearRegression) Predict(x mat.Matrix) (*mat.Dense, error) {
	if m.coef == nil {
		return nil, fmt.Errorf("linear regression: not fitted")
	}
	numFeatures, numOutputs := m.coef.Dims()
	numRows := estimator.Rows(x)
	if numRows == 0 {
		return &mat.Dense{}, nil
	}
	if _, c := x.Dims(); c != numFeatures {
		return nil, fmt.Errorf("linear regression: %w: %d features, expecting %d", dataset.ErrShapeMismatch, c, numFeatures)
	}
	output := mat.NewDense(numRows, numOutputs, nil)
	output.Mul(x, m.coef)
	output.Apply(func(_, j int, v float64) float64 { return v + m.intercept[j] }, output)
	return output, nil
}

// Clone returns an independent copy.
func (m *LinearRegression) Clone() estimator.Estimator {
	clone := *m
	if m.coef != nil {
		clone.coef = mat.DenseCopyOf(m.coef)
		clone.intercept = append([]float64{}, m.intercept...)
	}
	return &clone
}

// Machine epsilon of float64.
const epsilon = 2.220446049250313e-16
