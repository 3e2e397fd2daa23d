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

// Package canonical registers the "canonical" models.
//
// Model implementations are made accessible through a registration mechanism for three main usecases:
// - A user wants all the available official models (called "canonical" models") to be available.
//
//	In this case, the user import this "canonical" package. Importing this package registers the
//	neural network models and the classical estimator adapters.
//
// - A user is developing a custom model. This implementation is not canonical. The user import the
//
//	implementation package manually once, and the package calls "model.Register" in its "init()".
//
// - A user is developing a size critical binary that only needs one family of models. The user
//
//	import the implementation package of the corresponding family.
//
// Models are looked up by name, ignoring case, e.g. "classifiermlp" and "ClassifierMLP" resolve
// to the same builder.
package canonical

import (
	_ "github.com/opendataval/opendataval/port/go/model/adapter"       // Okay
	_ "github.com/opendataval/opendataval/port/go/model/neuralnetwork" // Okay
)
