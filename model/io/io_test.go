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

package io

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/model"
	_ "github.com/opendataval/opendataval/port/go/model/canonical"
	"github.com/opendataval/opendataval/port/go/utils/test"
)

const logisticHeader = `
name: LogisticRegression
num_classes: 3
options:
  c: 0.5
  max_iterations: 50
  dtype: float64
`

func TestParseHeader(t *testing.T) {
	header, err := ParseHeader([]byte(logisticHeader))
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, header.Name, "LogisticRegression", "")
	test.CheckEq(t, header.NumClasses, 3, "")
	options := header.Options.AsMap()
	test.CheckEq(t, options["c"], 0.5, "")
	test.CheckEq(t, options["max_iterations"], 50.0, "")
	test.CheckEq(t, options["dtype"], "float64", "")
}

func TestParseHeaderErrors(t *testing.T) {
	for _, data := range []string{
		"",
		"num_classes: 2\n",
		"name: ClassifierMLP\nnum_classes: -1\n",
		"name: ClassifierMLP\nunknown: 1\n",
		"name: [\n",
	} {
		if _, err := ParseHeader([]byte(data)); err == nil {
			t.Errorf("expected an error for %q", data)
		}
	}
}

func TestNewModel(t *testing.T) {
	header, err := ParseHeader([]byte(logisticHeader))
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(header)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, m.Name(), "LogisticRegression", "")
	test.CheckEq(t, m.NumClasses(), 3, "")
	typed, ok := m.(interface{ DType() dataset.DType })
	if !ok {
		t.Fatalf("%T does not expose its dtype", m)
	}
	test.CheckEq(t, typed.DType(), dataset.Float64, "")

	x := mat.NewDense(6, 1, []float64{0, 0.1, 1, 1.1, 2, 2.1})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 2, 2})
	if _, err := m.Fit(x, y, nil); err != nil {
		t.Fatal(err)
	}
	predictions, err := m.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckDims(t, predictions, 6, 3, "")
}

func TestNewModelCaseInsensitive(t *testing.T) {
	for _, name := range []string{"classifiermlp", "CLASSIFIERMLP", "ClassifierMLP"} {
		header, err := model.NewHeader(name, 2, map[string]interface{}{"input_dim": 4})
		if err != nil {
			t.Fatal(err)
		}
		m, err := NewModel(header)
		if err != nil {
			t.Fatal(err)
		}
		test.CheckEq(t, m.NumClasses(), 2, name)
	}
}

func TestNewModelUnknown(t *testing.T) {
	_, err := NewModel(&model.Header{Name: "NotAModel"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "linearregression") {
		t.Errorf("the error should list the available models: %v", err)
	}
	if _, err := NewModel(nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSaveLoadHeader(t *testing.T) {
	header, err := model.NewHeader("RandomForestClassifier", 2, map[string]interface{}{
		"num_trees": 10,
		"bootstrap": true,
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "forest_header.yaml")
	if err := SaveHeader(path, header); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, loaded.Name, header.Name, "")
	test.CheckEq(t, loaded.NumClasses, header.NumClasses, "")
	test.CheckEq(t, loaded.Options.AsMap(), header.Options.AsMap(), "")

	m, err := LoadModel(path)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, m.Name(), "RandomForestClassifier", "")
}

func TestLoadModelDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mlp_header.yaml"), []byte("name: RegressionMLP\nnum_classes: 2\noptions:\n  input_dim: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	prefix, err := DetectFilePrefix(dir)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, prefix, "mlp_", "")

	m, err := LoadModel(dir)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, m.Name(), "RegressionMLP", "")
	test.CheckEq(t, m.NumClasses(), 2, "")

	if _, err := LoadModel(t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory without header")
	}
}
