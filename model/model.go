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

// Package model defines the "Model" interface.
package model

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Model is the interface shared by all the predictors, whether they are trained
// with gradient steps or fitted once.
//
// Examples:
//
// // Create a new model from its header.
// model, err := io.NewModel(&model.Header{Name: "LogisticRegression", NumClasses: 2})
//
// // Train it, and generate predictions.
// model, err = model.Fit(x, y, nil)
// predictions, err := model.Predict(x)
//
// // Start a new experiment from the same state.
// experiment := model.Clone()
type Model interface {

	// Registered name of the model.
	Name() string

	// Number of columns in the predictions. 1 for scalar regression.
	NumClasses() int

	// Fit trains the model on the covariates "x" and labels "y". "weights"
	// contains one non-negative weight per row; nil means uniform weights.
	// Fit returns the model itself. Fitting on zero rows succeeds and
	// gives a usable, low information, model.
	Fit(x, y mat.Matrix, weights []float64, opts ...FitOption) (Model, error)

	// Predict returns one row of "NumClasses()" values per row of "x".
	Predict(x mat.Matrix) (*mat.Dense, error)

	// Clone returns an independent copy of the model in its current state.
	Clone() Model
}

// Builder creates an untrained model from its header.
type Builder func(header *Header) (Model, error)

// RegisteredBuilders is the list of model builders, keyed by the lowercase name of the model type.
// Only register (change) this during the runtime initialization, in `init()` function, through
// `Register`. End users probably want to use `io.NewModel()` to create models instead.
var RegisteredBuilders = make(map[string]Builder)

// Register registers the builder of a model type. The name is lowercased. A
// previous registration under the same name is replaced.
func Register(name string, builder Builder) {
	RegisteredBuilders[strings.ToLower(name)] = builder
}

// Lookup finds the builder registered under "name", ignoring case.
func Lookup(name string) (Builder, bool) {
	builder, found := RegisteredBuilders[strings.ToLower(name)]
	return builder, found
}

// Names returns the registered model names, sorted.
func Names() []string {
	names := make([]string, 0, len(RegisteredBuilders))
	for name := range RegisteredBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
