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
	"github.com/opendataval/opendataval/port/go/estimator/decisiontree"
	"github.com/opendataval/opendataval/port/go/estimator/linear"
	"github.com/opendataval/opendataval/port/go/estimator/neighbors"
	"github.com/opendataval/opendataval/port/go/estimator/randomforest"
	"github.com/opendataval/opendataval/port/go/model"
	"go.uber.org/multierr"
)

// Registered names of the adapters.
const (
	LogisticRegressionName     = "LogisticRegression"
	DecisionTreeClassifierName = "DecisionTreeClassifier"
	RandomForestClassifierName = "RandomForestClassifier"
	KNeighborsClassifierName   = "KNeighborsClassifier"
	LinearRegressionName       = "LinearRegression"
)

// LogisticRegressionConfig configures the "LogisticRegression" model.
type LogisticRegressionConfig struct {
	C             float64 `json:"c"`
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	DType         string  `json:"dtype"`
}

func (c *LogisticRegressionConfig) validate() error {
	var err error
	if c.C <= 0 {
		err = multierr.Append(err, fmt.Errorf("c must be positive, got %v", c.C))
	}
	if c.MaxIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations))
	}
	if c.Tolerance < 0 {
		err = multierr.Append(err, fmt.Errorf("tolerance cannot be negative, got %v", c.Tolerance))
	}
	return err
}

// DecisionTreeConfig configures the "DecisionTreeClassifier" model.
type DecisionTreeConfig struct {
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MaxFeatures     int    `json:"max_features"`
	Seed            uint64 `json:"seed"`
	DType           string `json:"dtype"`
}

func (c *DecisionTreeConfig) validate() error {
	return validateTree(c.MaxDepth, c.MinSamplesSplit, c.MaxFeatures)
}

func validateTree(maxDepth, minSamplesSplit, maxFeatures int) error {
	var err error
	if maxDepth < 0 {
		err = multierr.Append(err, fmt.Errorf("max_depth cannot be negative, got %d", maxDepth))
	}
	if minSamplesSplit < 2 {
		err = multierr.Append(err, fmt.Errorf("min_samples_split must be at least 2, got %d", minSamplesSplit))
	}
	if maxFeatures < 0 {
		err = multierr.Append(err, fmt.Errorf("max_features cannot be negative, got %d", maxFeatures))
	}
	return err
}

// RandomForestConfig configures the "RandomForestClassifier" model.
type RandomForestConfig struct {
	NumTrees        int    `json:"num_trees"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MaxFeatures     int    `json:"max_features"`
	Bootstrap       bool   `json:"bootstrap"`
	Seed            uint64 `json:"seed"`
	DType           string `json:"dtype"`
}

func (c *RandomForestConfig) validate() error {
	err := validateTree(c.MaxDepth, c.MinSamplesSplit, c.MaxFeatures)
	if c.NumTrees <= 0 {
		err = multierr.Append(err, fmt.Errorf("num_trees must be positive, got %d", c.NumTrees))
	}
	return err
}

// KNeighborsConfig configures the "KNeighborsClassifier" model.
type KNeighborsConfig struct {
	NumNeighbors int `json:"n_neighbors"`
	// Seed of the bootstrap samples of weighted fits.
	Seed  uint64 `json:"seed"`
	DType string `json:"dtype"`
}

func (c *KNeighborsConfig) validate() error {
	if c.NumNeighbors <= 0 {
		return fmt.Errorf("n_neighbors must be positive, got %d", c.NumNeighbors)
	}
	return nil
}

// LinearRegressionConfig configures the "LinearRegression" model.
type LinearRegressionConfig struct {
	FitIntercept bool   `json:"fit_intercept"`
	DType        string `json:"dtype"`
}

func (c *LinearRegressionConfig) validate() error { return nil }

type validator interface {
	validate() error
}

// decode decodes the options of "header" on top of the defaults in "config",
// then validates the result. It returns the output type.
func decode(header *model.Header, config validator, dtype *string) (dataset.DType, error) {
	if err := model.DecodeOptions(header, config); err != nil {
		return 0, err
	}
	err := config.validate()
	parsed, dtypeErr := dataset.ParseDType(*dtype)
	if err = multierr.Append(err, dtypeErr); err != nil {
		return 0, fmt.Errorf("invalid options for model %q: %w", header.Name, err)
	}
	return parsed, nil
}

// numClassesOrDefault returns the number of classes of the header, or 2.
func numClassesOrDefault(header *model.Header) int {
	if header.NumClasses == 0 {
		return 2
	}
	return header.NumClasses
}

func buildLogisticRegression(header *model.Header) (model.Model, error) {
	config := &LogisticRegressionConfig{
		C:             linear.DefaultC,
		MaxIterations: linear.DefaultMaxIterations,
		Tolerance:     linear.DefaultTolerance,
	}
	dtype, err := decode(header, config, &config.DType)
	if err != nil {
		return nil, err
	}
	est := linear.NewLogisticRegression()
	est.C = config.C
	est.MaxIterations = config.MaxIterations
	est.Tolerance = config.Tolerance
	m, err := NewClassifierAdapter(LogisticRegressionName, numClassesOrDefault(header), est, dtype)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildDecisionTree(header *model.Header) (model.Model, error) {
	config := &DecisionTreeConfig{MinSamplesSplit: decisiontree.DefaultMinSamplesSplit}
	dtype, err := decode(header, config, &config.DType)
	if err != nil {
		return nil, err
	}
	est := &decisiontree.Classifier{
		MaxDepth:        config.MaxDepth,
		MinSamplesSplit: config.MinSamplesSplit,
		MaxFeatures:     config.MaxFeatures,
		Seed:            config.Seed,
	}
	m, err := NewClassifierAdapter(DecisionTreeClassifierName, numClassesOrDefault(header), est, dtype)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildRandomForest(header *model.Header) (model.Model, error) {
	config := &RandomForestConfig{
		NumTrees:        randomforest.DefaultNumTrees,
		MinSamplesSplit: decisiontree.DefaultMinSamplesSplit,
		Bootstrap:       true,
	}
	dtype, err := decode(header, config, &config.DType)
	if err != nil {
		return nil, err
	}
	est := &randomforest.Classifier{
		NumTrees:        config.NumTrees,
		MaxDepth:        config.MaxDepth,
		MinSamplesSplit: config.MinSamplesSplit,
		MaxFeatures:     config.MaxFeatures,
		Bootstrap:       config.Bootstrap,
		Seed:            config.Seed,
	}
	m, err := NewClassifierAdapter(RandomForestClassifierName, numClassesOrDefault(header), est, dtype)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildKNeighbors(header *model.Header) (model.Model, error) {
	config := &KNeighborsConfig{NumNeighbors: neighbors.DefaultK}
	dtype, err := decode(header, config, &config.DType)
	if err != nil {
		return nil, err
	}
	est := neighbors.NewKNeighborsClassifier(config.NumNeighbors)
	m, err := NewUnweightedClassifierAdapter(KNeighborsClassifierName, numClassesOrDefault(header), est, dtype, config.Seed)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildLinearRegression(header *model.Header) (model.Model, error) {
	config := &LinearRegressionConfig{FitIntercept: true}
	dtype, err := decode(header, config, &config.DType)
	if err != nil {
		return nil, err
	}
	est := linear.NewLinearRegression()
	est.FitIntercept = config.FitIntercept
	m, err := NewRegressionAdapter(LinearRegressionName, header.NumClasses, est, dtype)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func init() {
	model.Register(LogisticRegressionName, buildLogisticRegression)
	model.Register(DecisionTreeClassifierName, buildDecisionTree)
	model.Register(RandomForestClassifierName, buildRandomForest)
	model.Register(KNeighborsClassifierName, buildKNeighbors)
	model.Register(LinearRegressionName, buildLinearRegression)
}
