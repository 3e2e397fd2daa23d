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
	"math/rand/v2"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// TrainingPolicy selects the loss and the target encoding of a training loop.
type TrainingPolicy interface {
	// Criterion is the loss minimized by the training loop.
	Criterion() Loss

	// Targets converts the labels of a fit call into the targets of the loss.
	Targets(y mat.Matrix) (*mat.Dense, error)
}

// ClassificationTraining trains a classifier producing class probabilities.
// Two classes use the binary cross entropy; more use the categorical cross
// entropy.
type ClassificationTraining struct {
	NumClasses int
}

func (p ClassificationTraining) Criterion() Loss {
	if p.NumClasses == 2 {
		return BinaryCrossEntropy{}
	}
	return CrossEntropy{}
}

// Targets one-hot encodes the labels. Labels are either class indices (one
// column) or class memberships (NumClasses columns).
func (p ClassificationTraining) Targets(y mat.Matrix) (*mat.Dense, error) {
	return dataset.OneHot(y, p.NumClasses)
}

// RegressionTraining trains a regression with the mean squared error.
type RegressionTraining struct {
	NumOutputs int
}

func (p RegressionTraining) Criterion() Loss {
	return MeanSquaredError{}
}

func (p RegressionTraining) Targets(y mat.Matrix) (*mat.Dense, error) {
	targets := dataset.ToDense(y)
	if targets.IsEmpty() {
		return targets, nil
	}
	if _, c := targets.Dims(); c != p.NumOutputs {
		return nil, fmt.Errorf("%w: labels have %d columns, expecting %d", dataset.ErrShapeMismatch, c, p.NumOutputs)
	}
	return targets, nil
}

// InferencePolicy computes the predictions of a network.
type InferencePolicy interface {
	Infer(net *Network, x mat.Matrix) (*mat.Dense, error)
}

// EvalInference runs a single forward pass in evaluation mode, without
// gradient tracking. A dataset is first collected into a single batch.
// Zero rows give an empty matrix.
type EvalInference struct{}

func (EvalInference) Infer(net *Network, x mat.Matrix) (*mat.Dense, error) {
	batch := &dataset.Batch{X: dataset.ToDense(x)}
	if batch.X.IsEmpty() {
		return &mat.Dense{}, nil
	}
	batch, err := toDevice(batch, net.Device())
	if err != nil {
		return nil, err
	}
	net.Eval()
	previous := net.SetGradEnabled(false)
	defer net.SetGradEnabled(previous)
	return net.Forward(batch.X)
}

// Train runs the training loop: for each epoch, the rows are shuffled with
// "shuffle" and split into batches; each batch gets one Adam step. Training
// on zero rows leaves the network unchanged.
//
// A diverging loss is not detected.
func Train(net *Network, policy TrainingPolicy, x, y mat.Matrix, weights []float64,
	options model.FitOptions, shuffle *rand.Rand) error {

	targets, err := policy.Targets(y)
	if err != nil {
		return err
	}
	ds, err := dataset.New(x, targets, weights)
	if err != nil {
		return err
	}
	logger := zap.L().Named("neuralnetwork")
	if ds.Len() == 0 {
		logger.Debug("No training rows")
		return nil
	}
	loader, err := dataset.NewLoader(ds, shuffle, dataset.LoaderConfig{
		BatchSize: options.BatchSize,
		Shuffle:   true,
	})
	if err != nil {
		return err
	}
	adamConfig := DefaultAdamConfig()
	adamConfig.LearningRate = options.LearningRate
	optimizer, err := NewAdam(net.Parameters(), adamConfig)
	if err != nil {
		return err
	}
	criterion := policy.Criterion()
	device := net.Device()

	net.Train()
	previous := net.SetGradEnabled(true)
	defer net.SetGradEnabled(previous)

	for epoch := 0; epoch < options.Epochs; epoch++ {
		sumLoss := 0.0
		batches, stop := loader.Epoch()
		for batch := range batches {
			loss, err := step(net, optimizer, criterion, batch, device)
			if err != nil {
				stop()
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			sumLoss += loss
		}
		stop()
		logger.Debug("Epoch done",
			zap.Int("epoch", epoch),
			zap.String("loss_name", criterion.Name()),
			zap.Float64("mean_loss", sumLoss/float64(loader.Len())))
	}
	return nil
}

// step applies one optimizer step on a batch and returns the batch loss.
func step(net *Network, optimizer *Adam, criterion Loss, batch *dataset.Batch, device Device) (float64, error) {
	batch, err := toDevice(batch, device)
	if err != nil {
		return 0, err
	}
	// Batches without weights are (covariates, labels) pairs.
	var weights []float64
	if batch.Weighted() {
		weights = batch.Weights
	}

	optimizer.ZeroGrad()
	output, err := net.Forward(batch.X)
	if err != nil {
		return 0, err
	}
	loss, grad, err := Evaluate(criterion, output, batch.Y, weights)
	if err != nil {
		return 0, err
	}
	if err := net.Backward(grad); err != nil {
		return 0, err
	}
	optimizer.Step()
	return loss, nil
}
