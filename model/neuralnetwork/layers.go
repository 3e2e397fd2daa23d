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
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/opendataval/opendataval/port/go/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Parameter is a learnable tensor and its accumulated gradient.
type Parameter struct {
	Value *mat.Dense
	Grad  *mat.Dense

	device Device
}

func newParameter(r, c int) *Parameter {
	return &Parameter{
		Value:  mat.NewDense(r, c, nil),
		Grad:   mat.NewDense(r, c, nil),
		device: CPU,
	}
}

// Device is the device holding the parameter.
func (p *Parameter) Device() Device {
	return p.device
}

func (p *Parameter) clone() *Parameter {
	return &Parameter{
		Value:  mat.DenseCopyOf(p.Value),
		Grad:   mat.DenseCopyOf(p.Grad),
		device: p.device,
	}
}

// Layer is a differentiable function of a batch of row vectors.
type Layer interface {
	// Forward computes the output of the layer. If "track" is set, the layer
	// records what Backward needs.
	Forward(x *mat.Dense, track bool) (*mat.Dense, error)

	// Backward accumulates the gradient of the parameters and returns the
	// gradient with respect to the input of the last tracked Forward.
	Backward(grad *mat.Dense) (*mat.Dense, error)

	// Parameters returns the learnable parameters. Nil for stateless layers.
	Parameters() []*Parameter

	// SetTraining switches the layer between training and evaluation mode.
	SetTraining(training bool)

	// Clone returns an independent copy.
	Clone() Layer
}

var errNotTracked = errors.New("neuralnetwork: backward without a tracked forward pass")

// Linear is a fully connected layer: y = xW + b.
type Linear struct {
	// Shape (in, out).
	Weight *Parameter
	// Shape (1, out).
	Bias *Parameter

	input *mat.Dense
}

// NewLinear creates a linear layer with Xavier uniform weights and zero biases.
func NewLinear(inputDim, outputDim int, rng *rand.Rand) *Linear {
	l := &Linear{
		Weight: newParameter(inputDim, outputDim),
		Bias:   newParameter(1, outputDim),
	}
	// W ~ U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
	bound := math.Sqrt(6 / float64(inputDim+outputDim))
	weights := l.Weight.Value.RawMatrix().Data
	for i := range weights {
		weights[i] = (2*rng.Float64() - 1) * bound
	}
	return l
}

func (l *Linear) Forward(x *mat.Dense, track bool) (*mat.Dense, error) {
	inputDim, outputDim := l.Weight.Value.Dims()
	numRows, numCols := x.Dims()
	if numCols != inputDim {
		return nil, fmt.Errorf("linear layer: %w: %d input features, expecting %d", dataset.ErrShapeMismatch, numCols, inputDim)
	}
	output := mat.NewDense(numRows, outputDim, nil)
	output.Mul(x, l.Weight.Value)
	bias := l.Bias.Value.RawRowView(0)
	for i := 0; i < numRows; i++ {
		floats.Add(output.RawRowView(i), bias)
	}
	if track {
		l.input = x
	}
	return output, nil
}

func (l *Linear) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if l.input == nil {
		return nil, errNotTracked
	}
	var weightGrad mat.Dense
	weightGrad.Mul(l.input.T(), grad)
	l.Weight.Grad.Add(l.Weight.Grad, &weightGrad)

	biasGrad := l.Bias.Grad.RawRowView(0)
	numRows, _ := grad.Dims()
	for i := 0; i < numRows; i++ {
		floats.Add(biasGrad, grad.RawRowView(i))
	}

	var inputGrad mat.Dense
	inputGrad.Mul(grad, l.Weight.Value.T())
	return &inputGrad, nil
}

func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.Weight, l.Bias}
}

func (l *Linear) SetTraining(bool) {}

func (l *Linear) Clone() Layer {
	return &Linear{Weight: l.Weight.clone(), Bias: l.Bias.clone()}
}

// ReLU is the rectified linear unit.
type ReLU struct {
	input *mat.Dense
}

func (r *ReLU) Forward(x *mat.Dense, track bool) (*mat.Dense, error) {
	var output mat.Dense
	output.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, x)
	if track {
		r.input = x
	}
	return &output, nil
}

func (r *ReLU) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if r.input == nil {
		return nil, errNotTracked
	}
	var inputGrad mat.Dense
	inputGrad.Apply(func(i, j int, g float64) float64 {
		if r.input.At(i, j) > 0 {
			return g
		}
		return 0
	}, grad)
	return &inputGrad, nil
}

func (r *ReLU) Parameters() []*Parameter { return nil }

func (r *ReLU) SetTraining(bool) {}

func (r *ReLU) Clone() Layer { return &ReLU{} }

// Dropout zeroes each value with probability "P" in training mode, and scales
// the others by 1/(1-P). It is the identity in evaluation mode.
type Dropout struct {
	P float64

	training bool
	source   *rand.PCG
	mask     *mat.Dense
}

// NewDropout creates a dropout layer drawing its masks from "source".
func NewDropout(p float64, source *rand.PCG) *Dropout {
	return &Dropout{P: p, source: source, training: true}
}

func (d *Dropout) Forward(x *mat.Dense, track bool) (*mat.Dense, error) {
	if !d.training || d.P == 0 {
		if track {
			d.mask = nil
		}
		return mat.DenseCopyOf(x), nil
	}
	rng := rand.New(d.source)
	numRows, numCols := x.Dims()
	mask := mat.NewDense(numRows, numCols, nil)
	keep := 1 / (1 - d.P)
	mask.Apply(func(_, _ int, _ float64) float64 {
		if rng.Float64() < d.P {
			return 0
		}
		return keep
	}, mask)

	var output mat.Dense
	output.MulElem(x, mask)
	if track {
		d.mask = mask
	}
	return &output, nil
}

func (d *Dropout) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if d.mask == nil {
		return mat.DenseCopyOf(grad), nil
	}
	var inputGrad mat.Dense
	inputGrad.MulElem(grad, d.mask)
	return &inputGrad, nil
}

func (d *Dropout) Parameters() []*Parameter { return nil }

func (d *Dropout) SetTraining(training bool) { d.training = training }

func (d *Dropout) Clone() Layer {
	source := *d.source
	return &Dropout{P: d.P, training: d.training, source: &source}
}

// Softmax normalizes each row into a probability distribution.
type Softmax struct {
	output *mat.Dense
}

func (s *Softmax) Forward(x *mat.Dense, track bool) (*mat.Dense, error) {
	output := mat.DenseCopyOf(x)
	numRows, _ := output.Dims()
	for i := 0; i < numRows; i++ {
		softmaxInPlace(output.RawRowView(i))
	}
	if track {
		s.output = output
	}
	return output, nil
}

func (s *Softmax) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if s.output == nil {
		return nil, errNotTracked
	}
	inputGrad := mat.DenseCopyOf(grad)
	numRows, _ := grad.Dims()
	for i := 0; i < numRows; i++ {
		// dx_j = s_j * (g_j - sum_k g_k s_k)
		proba := s.output.RawRowView(i)
		row := inputGrad.RawRowView(i)
		dot := floats.Dot(row, proba)
		for j := range row {
			row[j] = proba[j] * (row[j] - dot)
		}
	}
	return inputGrad, nil
}

func (s *Softmax) Parameters() []*Parameter { return nil }

func (s *Softmax) SetTraining(bool) {}

func (s *Softmax) Clone() Layer { return &Softmax{} }

func softmaxInPlace(row []float64) {
	maxValue := floats.Max(row)
	sum := 0.0
	for j, v := range row {
		row[j] = math.Exp(v - maxValue)
		sum += row[j]
	}
	floats.Scale(1/sum, row)
}

// logSoftmax returns the log of the softmax of "row".
func logSoftmax(row []float64) []float64 {
	logSum := floats.LogSumExp(row)
	output := make([]float64, len(row))
	for j, v := range row {
		output[j] = v - logSum
	}
	return output
}
