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

// Package neuralnetwork contains gradient-trained predictors: multi-layer
// perceptrons for classification and regression, together with the layers,
// losses, optimizer and training loop they are built from.
//
// The package registers the "ClassifierMLP" and "RegressionMLP" models.
package neuralnetwork

import (
	"fmt"
	"math/rand/v2"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/model"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

const (
	// ClassifierMLPName is the registered name of ClassifierMLP.
	ClassifierMLPName = "ClassifierMLP"
	// RegressionMLPName is the registered name of RegressionMLP.
	RegressionMLPName = "RegressionMLP"
)

// Streams of the random generator, for a given seed.
const (
	initStream    = 1
	shuffleStream = 2
	// Dropout layer i uses stream dropoutStream + i.
	dropoutStream = 3
)

// Config configures a multi-layer perceptron.
type Config struct {
	// Number of input features. Required.
	InputDim int `json:"input_dim"`

	// Width of the hidden layers. Each hidden layer is followed by a ReLU.
	HiddenDims []int `json:"hidden_dims"`

	// Dropout probability after each hidden layer. 0 disables dropout.
	Dropout float64 `json:"dropout"`

	// Seed of the initialization, shuffling and dropout.
	Seed uint64 `json:"seed"`

	// Numeric type of the predictions: "float32" (default) or "float64".
	DType string `json:"dtype"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{HiddenDims: []int{25}}
}

func (c Config) validate() error {
	var err error
	if c.InputDim <= 0 {
		err = multierr.Append(err, fmt.Errorf("input_dim must be positive, got %d", c.InputDim))
	}
	for i, dim := range c.HiddenDims {
		if dim <= 0 {
			err = multierr.Append(err, fmt.Errorf("hidden_dims[%d] must be positive, got %d", i, dim))
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		err = multierr.Append(err, fmt.Errorf("dropout must be in [0, 1), got %v", c.Dropout))
	}
	if _, dtypeErr := dataset.ParseDType(c.DType); dtypeErr != nil {
		err = multierr.Append(err, dtypeErr)
	}
	return err
}

// predictor is the state shared by the perceptrons.
type predictor struct {
	numClasses int
	config     Config
	dtype      dataset.DType
	net        *Network
	training   TrainingPolicy
	inference  InferencePolicy
	shuffle    *rand.PCG
}

func newPredictor(numClasses int, config Config, training TrainingPolicy, head ...Layer) (predictor, error) {
	if err := config.validate(); err != nil {
		return predictor{}, err
	}
	dtype, _ := dataset.ParseDType(config.DType)

	initRNG := rand.New(rand.NewPCG(config.Seed, initStream))
	var layers []Layer
	inputDim := config.InputDim
	for i, dim := range config.HiddenDims {
		layers = append(layers, NewLinear(inputDim, dim, initRNG), &ReLU{})
		if config.Dropout > 0 {
			layers = append(layers, NewDropout(config.Dropout, rand.NewPCG(config.Seed, dropoutStream+uint64(i))))
		}
		inputDim = dim
	}
	layers = append(layers, NewLinear(inputDim, numClasses, initRNG))
	layers = append(layers, head...)

	return predictor{
		numClasses: numClasses,
		config:     config,
		dtype:      dtype,
		net:        NewNetwork(layers...),
		training:   training,
		inference:  EvalInference{},
		shuffle:    rand.NewPCG(config.Seed, shuffleStream),
	}, nil
}

func (p *predictor) fit(x, y mat.Matrix, weights []float64, opts []model.FitOption) error {
	return Train(p.net, p.training, x, y, weights, model.NewFitOptions(opts...), rand.New(p.shuffle))
}

func (p *predictor) predict(x mat.Matrix) (*mat.Dense, error) {
	output, err := p.inference.Infer(p.net, x)
	if err != nil {
		return nil, err
	}
	return dataset.Cast(output, p.dtype), nil
}

func (p *predictor) clone() predictor {
	clone := *p
	clone.config.HiddenDims = append([]int(nil), p.config.HiddenDims...)
	clone.net = p.net.Clone()
	shuffle := *p.shuffle
	clone.shuffle = &shuffle
	return clone
}

// NumClasses is the number of output columns.
func (p *predictor) NumClasses() int { return p.numClasses }

// Network returns the underlying network.
func (p *predictor) Network() *Network { return p.net }

// Device is the device holding the parameters.
func (p *predictor) Device() Device { return p.net.Device() }

// To moves the parameters to "device".
func (p *predictor) To(device Device) error { return p.net.To(device) }

// ClassifierMLP is a multi-layer perceptron returning class probabilities.
type ClassifierMLP struct {
	predictor
}

var _ model.Model = (*ClassifierMLP)(nil)

// NewClassifierMLP creates an untrained classifier.
func NewClassifierMLP(numClasses int, config Config) (*ClassifierMLP, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("%s: at least two classes are needed, got %d", ClassifierMLPName, numClasses)
	}
	p, err := newPredictor(numClasses, config, ClassificationTraining{NumClasses: numClasses}, &Softmax{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ClassifierMLPName, err)
	}
	return &ClassifierMLP{p}, nil
}

func (m *ClassifierMLP) Name() string { return ClassifierMLPName }

// Fit trains the classifier. "y" holds either the class indices (one column)
// or one-hot class memberships.
func (m *ClassifierMLP) Fit(x, y mat.Matrix, weights []float64, opts ...model.FitOption) (model.Model, error) {
	if err := m.fit(x, y, weights, opts); err != nil {
		return nil, fmt.Errorf("%s: %w", ClassifierMLPName, err)
	}
	return m, nil
}

// Predict returns the class probabilities.
func (m *ClassifierMLP) Predict(x mat.Matrix) (*mat.Dense, error) {
	return m.predict(x)
}

func (m *ClassifierMLP) Clone() model.Model {
	return &ClassifierMLP{m.clone()}
}

// RegressionMLP is a multi-layer perceptron with a linear output.
type RegressionMLP struct {
	predictor
}

var _ model.Model = (*RegressionMLP)(nil)

// NewRegressionMLP creates an untrained regression with "numOutputs" outputs.
func NewRegressionMLP(numOutputs int, config Config) (*RegressionMLP, error) {
	if numOutputs < 1 {
		return nil, fmt.Errorf("%s: at least one output is needed, got %d", RegressionMLPName, numOutputs)
	}
	p, err := newPredictor(numOutputs, config, RegressionTraining{NumOutputs: numOutputs})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", RegressionMLPName, err)
	}
	return &RegressionMLP{p}, nil
}

func (m *RegressionMLP) Name() string { return RegressionMLPName }

func (m *RegressionMLP) Fit(x, y mat.Matrix, weights []float64, opts ...model.FitOption) (model.Model, error) {
	if err := m.fit(x, y, weights, opts); err != nil {
		return nil, fmt.Errorf("%s: %w", RegressionMLPName, err)
	}
	return m, nil
}

func (m *RegressionMLP) Predict(x mat.Matrix) (*mat.Dense, error) {
	return m.predict(x)
}

func (m *RegressionMLP) Clone() model.Model {
	return &RegressionMLP{m.clone()}
}

func configFromHeader(header *model.Header) (Config, error) {
	config := DefaultConfig()
	if err := model.DecodeOptions(header, &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func init() {
	model.Register(ClassifierMLPName, func(header *model.Header) (model.Model, error) {
		config, err := configFromHeader(header)
		if err != nil {
			return nil, err
		}
		numClasses := header.NumClasses
		if numClasses == 0 {
			numClasses = 2
		}
		m, err := NewClassifierMLP(numClasses, config)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	model.Register(RegressionMLPName, func(header *model.Header) (model.Model, error) {
		config, err := configFromHeader(header)
		if err != nil {
			return nil, err
		}
		numOutputs := header.NumClasses
		if numOutputs == 0 {
			numOutputs = 1
		}
		m, err := NewRegressionMLP(numOutputs, config)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}
