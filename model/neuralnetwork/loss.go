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

package neuralnetwork

import (
	"fmt"
	"math"

	"github.com/opendataval/opendataval/port/go/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Loss is a loss function without reduction: it returns one value per element
// (or per row) of the output.
type Loss interface {
	Name() string

	// Elements returns the unreduced loss of "output" against "target".
	Elements(output, target *mat.Dense) (*mat.Dense, error)

	// Gradient returns the gradient, with respect to "output", of the sum of
	// the elements weighted by "upstream". "upstream" has the shape of the
	// matrix returned by Elements.
	Gradient(output, target, upstream *mat.Dense) (*mat.Dense, error)
}

// Evaluate computes the mean loss and its gradient with respect to "output".
// With sample weights, the loss of each row is multiplied by the weight of
// the row before averaging over all the elements. Unit weights give the same
// value and gradient as no weights.
func Evaluate(loss Loss, output, target *mat.Dense, weights []float64) (float64, *mat.Dense, error) {
	elements, err := loss.Elements(output, target)
	if err != nil {
		return 0, nil, err
	}
	numRows, numCols := elements.Dims()
	if weights != nil && len(weights) != numRows {
		return 0, nil, fmt.Errorf("%s: %w: %d weights for %d rows", loss.Name(), dataset.ErrShapeMismatch, len(weights), numRows)
	}
	numElements := float64(numRows * numCols)

	upstream := mat.NewDense(numRows, numCols, nil)
	sum := 0.0
	for i := 0; i < numRows; i++ {
		weight := 1.0
		if weights != nil {
			weight = weights[i]
		}
		for j := 0; j < numCols; j++ {
			sum += elements.At(i, j) * weight
			upstream.Set(i, j, weight/numElements)
		}
	}
	grad, err := loss.Gradient(output, target, upstream)
	if err != nil {
		return 0, nil, err
	}
	return sum / numElements, grad, nil
}

func checkSameShape(name string, output, target *mat.Dense) error {
	outputRows, outputCols := output.Dims()
	targetRows, targetCols := target.Dims()
	if outputRows != targetRows || outputCols != targetCols {
		return fmt.Errorf("%s: %w: output (%d, %d) and target (%d, %d)", name, dataset.ErrShapeMismatch,
			outputRows, outputCols, targetRows, targetCols)
	}
	return nil
}

// Probabilities are clamped to [probabilityEpsilon, 1 - probabilityEpsilon]
// before taking their log.
const probabilityEpsilon = 1e-12

// BinaryCrossEntropy is the element-wise binary cross entropy between
// probabilities and binary targets.
type BinaryCrossEntropy struct{}

func (BinaryCrossEntropy) Name() string { return "binary_cross_entropy" }

func (l BinaryCrossEntropy) Elements(output, target *mat.Dense) (*mat.Dense, error) {
	if err := checkSameShape(l.Name(), output, target); err != nil {
		return nil, err
	}
	var elements mat.Dense
	elements.Apply(func(i, j int, p float64) float64 {
		p = clampProbability(p)
		y := target.At(i, j)
		return -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}, output)
	return &elements, nil
}

func (l BinaryCrossEntropy) Gradient(output, target, upstream *mat.Dense) (*mat.Dense, error) {
	if err := checkSameShape(l.Name(), output, target); err != nil {
		return nil, err
	}
	var grad mat.Dense
	grad.Apply(func(i, j int, p float64) float64 {
		p = clampProbability(p)
		return upstream.At(i, j) * (p - target.At(i, j)) / (p * (1 - p))
	}, output)
	return &grad, nil
}

func clampProbability(p float64) float64 {
	return math.Min(math.Max(p, probabilityEpsilon), 1-probabilityEpsilon)
}

// CrossEntropy is the categorical cross entropy between the log-softmax of the
// outputs and (one-hot or soft) class memberships. It has one value per row.
type CrossEntropy struct{}

func (CrossEntropy) Name() string { return "cross_entropy" }

func (l CrossEntropy) Elements(output, target *mat.Dense) (*mat.Dense, error) {
	if err := checkSameShape(l.Name(), output, target); err != nil {
		return nil, err
	}
	numRows, _ := output.Dims()
	elements := mat.NewDense(numRows, 1, nil)
	for i := 0; i < numRows; i++ {
		logProba := logSoftmax(output.RawRowView(i))
		elements.Set(i, 0, -floats.Dot(target.RawRowView(i), logProba))
	}
	return elements, nil
}

func (l CrossEntropy) Gradient(output, target, upstream *mat.Dense) (*mat.Dense, error) {
	if err := checkSameShape(l.Name(), output, target); err != nil {
		return nil, err
	}
	grad := mat.DenseCopyOf(output)
	numRows, _ := output.Dims()
	for i := 0; i < numRows; i++ {
		// d/do_j = softmax_j * sum_k y_k - y_j
		row := grad.RawRowView(i)
		softmaxInPlace(row)
		targetRow := target.RawRowView(i)
		targetSum := floats.Sum(targetRow)
		for j := range row {
			row[j] = upstream.At(i, 0) * (row[j]*targetSum - targetRow[j])
		}
	}
	return grad, nil
}

// MeanSquaredError is the element-wise squared error.
type MeanSquaredError struct{}

func (MeanSquaredError) Name() string { return "mean_squared_error" }

func (l MeanSquaredError) Elements(output, target *mat.Dense) (*mat.Dense, error) {
	if err := checkSameShape(l.Name(), output, target); err != nil {
		return nil, err
	}
	var elements mat.Dense
	elements.Apply(func(i, j int, o float64) float64 {
		diff := o - target.At(i, j)
		return diff * diff
	}, output)
	return &elements, nil
}

func (l MeanSquaredError) Gradient(output, target, upstream *mat.Dense) (*mat.Dense, error) {
	if err := checkSameShape(l.Name(), output, target); err != nil {
		return nil, err
	}
	var grad mat.Dense
	grad.Apply(func(i, j int, o float64) float64 {
		return upstream.At(i, j) * 2 * (o - target.At(i, j))
	}, output)
	return &grad, nil
}
