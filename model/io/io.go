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

// Package io contains utilities to save and load model headers, and to create
// models from them. It doesn't include any actual model type support by
// default. Consider using instead the subpackage `canonical` that includes the
// canonical (standard) model types support.
//
// A header is stored as a YAML document:
//
//	name: LogisticRegression
//	num_classes: 3
//	options:
//	  c: 0.5
//	  dtype: float64
package io

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opendataval/opendataval/port/go/model"
	"github.com/opendataval/opendataval/port/go/utils/file"
)

// Filename of the header in a model directory.
const modelHeaderFileName = "header.yaml"

type yamlHeader struct {
	Name       string                 `yaml:"name"`
	NumClasses int                    `yaml:"num_classes,omitempty"`
	Options    map[string]interface{} `yaml:"options,omitempty"`
}

// NewModel creates an untrained model from its header.
func NewModel(header *model.Header) (model.Model, error) {
	if header == nil {
		return nil, fmt.Errorf("nil model header")
	}
	builder, hasBuilder := model.Lookup(header.Name)
	if !hasBuilder {
		return nil, fmt.Errorf(
			"unknown model %q. The available models are: %v. This may be because this type of model "+
				"was not imported -- directly or through the \"canonical\" package that automatically "+
				"imports all implemented models",
			header.Name, model.Names())
	}
	return builder(header)
}

// ParseHeader parses a YAML serialized header. Unknown top level keys are
// rejected.
func ParseHeader(data []byte) (*model.Header, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var raw yamlHeader
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty model header")
		}
		return nil, fmt.Errorf("cannot parse model header: %w", err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("model header without a \"name\"")
	}
	if raw.NumClasses < 0 {
		return nil, fmt.Errorf("model header with a negative \"num_classes\": %d", raw.NumClasses)
	}
	return model.NewHeader(raw.Name, raw.NumClasses, raw.Options)
}

// MarshalHeader serializes a header into YAML.
func MarshalHeader(header *model.Header) ([]byte, error) {
	raw := yamlHeader{Name: header.Name, NumClasses: header.NumClasses}
	if header.Options != nil {
		raw.Options = header.Options.AsMap()
	}
	return yaml.Marshal(&raw)
}

// LoadHeader reads a YAML header file.
func LoadHeader(path string) (*model.Header, error) {
	data, err := file.ReadFile(context.Background(), path)
	if err != nil {
		return nil, err
	}
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, nil
}

// SaveHeader writes a header to a YAML file.
func SaveHeader(path string, header *model.Header) error {
	data, err := MarshalHeader(header)
	if err != nil {
		return err
	}
	return file.WriteFile(context.Background(), path, data)
}

// LoadModel creates a model from a header file, or from a model directory
// containing a single "*header.yaml" file.
func LoadModel(modelPath string) (model.Model, error) {
	if filepath.Ext(modelPath) == ".yaml" || filepath.Ext(modelPath) == ".yml" {
		header, err := LoadHeader(modelPath)
		if err != nil {
			return nil, err
		}
		return NewModel(header)
	}
	prefix, err := DetectFilePrefix(modelPath)
	if err != nil {
		return nil, err
	}
	return LoadModelWithPrefix(modelPath, prefix)
}

// LoadModelWithPrefix creates a model from the "<prefix>header.yaml" file of
// a model directory.
//
// The "prefix" is a string append to the name of the header file. Using a
// prefix make it possible to store multiple model configurations in the same
// directory.
func LoadModelWithPrefix(modelPath string, prefix string) (model.Model, error) {
	header, err := LoadHeader(filepath.Join(modelPath, prefix+modelHeaderFileName))
	if err != nil {
		return nil, err
	}
	return NewModel(header)
}

// DetectFilePrefix detect the prefix of the header in a model directory.
func DetectFilePrefix(modelPath string) (string, error) {
	files, err := file.Match(context.Background(), filepath.Join(modelPath, "*"+modelHeaderFileName))
	if err != nil {
		return "", err
	}
	if len(files) != 1 {
		return "", fmt.Errorf("file prefix cannot be autodetected: %v headers exist in %v. A model directory should contain a single filename finishing by %q",
			len(files), modelPath, modelHeaderFileName)
	}
	headerFilename := filepath.Base(files[0])
	return headerFilename[:len(headerFilename)-len(modelHeaderFileName)], nil
}
