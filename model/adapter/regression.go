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

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"github.com/opendataval/opendataval/port/go/estimator/dummy"
	"github.com/opendataval/opendataval/port/go/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// RegressionAdapter wraps a regressor supporting sample weights. NumClasses
// is the number of outputs.
type RegressionAdapter struct {
	base

	wrapped estimator.WeightedRegressor
	active  estimator.Regressor
}

var _ model.Model = (*RegressionAdapter)(nil)

// NewRegressionAdapter creates an adapter predicting "numOutputs" columns. A
// zero "numOutputs" means a scalar regression.
func NewRegressionAdapter(name string, numOutputs int, est estimator.WeightedRegressor, dtype dataset.DType) (*RegressionAdapter, error) {
	if numOutputs == 0 {
		numOutputs = 1
	}
	if numOutputs < 0 {
		return nil, fmt.Errorf("%s: the number of outputs must be positive, got %d", name, numOutputs)
	}
	return &RegressionAdapter{
		base:    base{name: name, numClasses: numOutputs, dtype: dtype},
		wrapped: est,
	}, nil
}

// Estimator returns the estimator answering the predictions.
func (a *RegressionAdapter) Estimator() estimator.Regressor {
	return a.active
}

// Fit fits the regressor. Without rows, the regressor is replaced by a
// fallback predicting zeros. The fit options are ignored.
func (a *RegressionAdapter) Fit(x, y mat.Matrix, weights []float64, _ ...model.FitOption) (model.Model, error) {
	batch, err := materialize(x, y, weights)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	if batch.Len() == 0 {
		// The mean of a single zero row.
		fallback := dummy.NewRegressor()
		fallback.SetLogger(zap.NewNop())
		if err := fallback.Fit(mat.NewDense(1, 1, nil), mat.NewDense(1, a.numClasses, nil)); err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		a.active = fallback
		a.logger().Debug("No training rows, predicting zeros")
		return a, nil
	}
	if _, c := batch.Y.Dims(); c != a.numClasses {
		return nil, fmt.Errorf("%s: %w: labels have %d columns, expecting %d", a.name, dataset.ErrShapeMismatch, c, a.numClasses)
	}

	err = estimator.Quietly(a.wrapped, func() error {
		return a.wrapped.FitWeighted(batch.X, batch.Y, batch.Weights)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	a.active = a.wrapped
	return a, nil
}

// Predict returns the predictions with shape (rows, NumClasses()).
func (a *RegressionAdapter) Predict(x mat.Matrix) (*mat.Dense, error) {
	if a.active == nil {
		return nil, fmt.Errorf("%s: not fitted", a.name)
	}
	features := dataset.ToDense(x)
	if features.IsEmpty() {
		return &mat.Dense{}, nil
	}
	prediction, err := a.active.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	numRows, _ := features.Dims()
	r, c := prediction.Dims()
	if r*c != numRows*a.numClasses {
		return nil, fmt.Errorf("%s: %w: %d predictions for %d rows and %d outputs", a.name, dataset.ErrShapeMismatch,
			r*c, numRows, a.numClasses)
	}
	output := mat.NewDense(numRows, a.numClasses, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			flat := i*c + j
			output.Set(flat/a.numClasses, flat%a.numClasses, prediction.At(i, j))
		}
	}
	return dataset.Cast(output, a.dtype), nil
}

func (a *RegressionAdapter) Clone() model.Model {
	clone := &RegressionAdapter{
		base:    a.base,
		wrapped: a.wrapped.Clone().(estimator.WeightedRegressor),
	}
	clone.active = cloneActive[estimator.Regressor](a.active, a.wrapped, clone.wrapped)
	return clone
}
