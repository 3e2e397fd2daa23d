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

// Package canonical is an alias for the `model/io` package that also links
// all the canonical model support along. Most of the time one wants to use
// this package instead of `model/io`. But to decrease code bloat, one can
// also depend on `model/io` and only the specific type of model desired.
package canonical

import (
	model_io "github.com/opendataval/opendataval/port/go/model/io"

	// Include "canonical" model support.
	_ "github.com/opendataval/opendataval/port/go/model/canonical"
)

var (
	// NewModel creates an untrained model from its header.
	// This is just an alias, see implementation in `model/io.go`
	NewModel = model_io.NewModel

	// ParseHeader parses a YAML serialized header.
	// This is just an alias, see implementation in `model/io.go`
	ParseHeader = model_io.ParseHeader

	// LoadHeader reads a YAML header file.
	// This is just an alias, see implementation in `model/io.go`
	LoadHeader = model_io.LoadHeader

	// LoadModel creates a model from a header file or a model directory.
	// This is just an alias, see implementation in `model/io.go`
	LoadModel = model_io.LoadModel

	// LoadModelWithPrefix creates a model from a model directory holding a
	// "<prefix>header.yaml" file.
	// This is just an alias, see implementation in `model/io.go`
	LoadModelWithPrefix = model_io.LoadModelWithPrefix
)
