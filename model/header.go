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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Header describes how to build a model: its registered name, the width of
// its output and the options of the model type.
type Header struct {
	// Name of the model type. Matched case-insensitively against the registry.
	Name string

	// NumClasses is the number of output columns. Zero lets the model type
	// pick its default (e.g. 1 for regressions).
	NumClasses int

	// Options of the model type. Each model type decodes them into its own
	// configuration structure with "DecodeOptions". nil means all defaults.
	Options *structpb.Struct
}

// NewHeader creates a header. "options" should only contain JSON-like values
// (numbers, strings, booleans, []interface{} and map[string]interface{}).
func NewHeader(name string, numClasses int, options map[string]interface{}) (*Header, error) {
	header := &Header{Name: name, NumClasses: numClasses}
	if options != nil {
		pbOptions, err := structpb.NewStruct(options)
		if err != nil {
			return nil, fmt.Errorf("invalid options for model %q: %w", name, err)
		}
		header.Options = pbOptions
	}
	return header, nil
}

// Key is the registry key of the header.
func (h *Header) Key() string {
	return strings.ToLower(h.Name)
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	clone := &Header{Name: h.Name, NumClasses: h.NumClasses}
	if h.Options != nil {
		clone.Options = proto.Clone(h.Options).(*structpb.Struct)
	}
	return clone
}

// DecodeOptions decodes the options of the header into "config", a pointer to
// a configuration structure with json tags. Options not matching a field of
// the configuration are rejected. Fields without a matching option keep their
// current value.
func DecodeOptions(header *Header, config interface{}) error {
	if header == nil || header.Options == nil {
		return nil
	}
	serialized, err := protojson.Marshal(header.Options)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(serialized))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("invalid options for model %q: %w", header.Name, err)
	}
	return nil
}
