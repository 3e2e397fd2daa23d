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

package model

// Default values of the fit options.
const (
	DefaultBatchSize    = 32
	DefaultEpochs       = 1
	DefaultLearningRate = 0.01
)

// FitOptions are the training-loop parameters of a fit call. Models that are
// fitted once ignore them.
type FitOptions struct {
	// Number of rows per gradient step.
	BatchSize int

	// Number of passes over the training rows.
	Epochs int

	// Learning rate of the optimizer.
	LearningRate float64
}

// FitOption changes a FitOptions.
type FitOption func(*FitOptions)

// WithBatchSize sets the number of rows per gradient step.
func WithBatchSize(batchSize int) FitOption {
	return func(o *FitOptions) { o.BatchSize = batchSize }
}

// WithEpochs sets the number of passes over the training rows.
func WithEpochs(epochs int) FitOption {
	return func(o *FitOptions) { o.Epochs = epochs }
}

// WithLearningRate sets the learning rate of the optimizer.
func WithLearningRate(lr float64) FitOption {
	return func(o *FitOptions) { o.LearningRate = lr }
}

// NewFitOptions applies "opts" on top of the default options.
func NewFitOptions(opts ...FitOption) FitOptions {
	options := FitOptions{
		BatchSize:    DefaultBatchSize,
		Epochs:       DefaultEpochs,
		LearningRate: DefaultLearningRate,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
