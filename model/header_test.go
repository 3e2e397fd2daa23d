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
	"testing"

	"github.com/opendataval/opendataval/port/go/utils/test"
)

type testConfig struct {
	Rate   float64 `json:"rate"`
	Layers []int   `json:"layers"`
	Name   string  `json:"name"`
	Keep   int     `json:"keep"`
}

func TestNewHeader(t *testing.T) {
	header, err := NewHeader("ClassifierMLP", 3, map[string]interface{}{"rate": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, header.Key(), "classifiermlp", "")
	test.CheckEq(t, header.NumClasses, 3, "")
	test.CheckEq(t, header.Options.AsMap(), map[string]interface{}{"rate": 0.5}, "")

	empty, err := NewHeader("x", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Options != nil {
		t.Error("nil options should stay nil")
	}

	if _, err := NewHeader("x", 0, map[string]interface{}{"bad": make(chan int)}); err == nil {
		t.Error("expected an error for a non JSON-like option")
	}
}

func TestHeaderClone(t *testing.T) {
	header, err := NewHeader("m", 2, map[string]interface{}{"rate": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	clone := header.Clone()
	clone.Options.Fields["rate"].Kind = nil
	clone.NumClasses = 4
	test.CheckEq(t, header.Options.AsMap(), map[string]interface{}{"rate": 0.5}, "")
	test.CheckEq(t, header.NumClasses, 2, "")
}

func TestDecodeOptions(t *testing.T) {
	header, err := NewHeader("m", 2, map[string]interface{}{
		"rate":   0.25,
		"layers": []interface{}{4, 8},
		"name":   "abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	config := testConfig{Rate: 1, Keep: 7}
	if err := DecodeOptions(header, &config); err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, config, testConfig{Rate: 0.25, Layers: []int{4, 8}, Name: "abc", Keep: 7}, "")
}

func TestDecodeOptionsDefaults(t *testing.T) {
	config := testConfig{Rate: 1}
	if err := DecodeOptions(nil, &config); err != nil {
		t.Fatal(err)
	}
	if err := DecodeOptions(&Header{Name: "m"}, &config); err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, config, testConfig{Rate: 1}, "")
}

func TestDecodeOptionsErrors(t *testing.T) {
	unknown, err := NewHeader("m", 2, map[string]interface{}{"unknown": 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := DecodeOptions(unknown, &testConfig{}); err == nil {
		t.Error("expected an error for an unknown option")
	}

	wrongType, err := NewHeader("m", 2, map[string]interface{}{"rate": "fast"})
	if err != nil {
		t.Fatal(err)
	}
	if err := DecodeOptions(wrongType, &testConfig{}); err == nil {
		t.Error("expected an error for a badly typed option")
	}
}
