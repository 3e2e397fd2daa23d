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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opendataval/opendataval/port/go/utils/test"
)

// writeFiles writes a model header and a small two-class csv dataset.
func writeFiles(t *testing.T, header string) (string, string) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "header.yaml")
	if err := os.WriteFile(modelPath, []byte(header), 0644); err != nil {
		t.Fatal(err)
	}
	var csvContent strings.Builder
	csvContent.WriteString("f1,f2,w,label\n")
	for i := 0; i < 20; i++ {
		label := i % 2
		fmt.Fprintf(&csvContent, "%d,%d,%d,%d\n", label+i%3, i%4, 1+i%2, label)
	}
	datasetPath := filepath.Join(dir, "train.csv")
	if err := os.WriteFile(datasetPath, []byte(csvContent.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return modelPath, "csv:" + datasetPath
}

func defaultOptions() *Options {
	return &Options{
		numRuns:      2,
		epochs:       2,
		batchSize:    8,
		learningRate: 0.01,
		labelColumns: 1,
		weightColumn: "w",
	}
}

func TestBenchmarkMLP(t *testing.T) {
	modelPath, datasetPath := writeFiles(t, "name: ClassifierMLP\nnum_classes: 2\noptions:\n  input_dim: 2\n")
	if err := Run(modelPath, datasetPath, defaultOptions()); err != nil {
		t.Fatal(err)
	}
}

func TestBenchmarkAdapter(t *testing.T) {
	modelPath, datasetPath := writeFiles(t, "name: LogisticRegression\nnum_classes: 2\n")
	if err := Run(modelPath, datasetPath, defaultOptions()); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDatasetCsv(t *testing.T) {
	_, datasetPath := writeFiles(t, "name: LinearRegression\n")
	ds, err := loadDataset(datasetPath, defaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, ds.Len(), 20, "")
	test.CheckEq(t, ds.NumFeatures(), 2, "")
	test.CheckEq(t, ds.LabelDim(), 1, "")
	test.CheckEq(t, ds.HasWeights(), true, "")
	sample := ds.Sample(1)
	test.CheckEq(t, sample.X, []float64{2, 1}, "")
	test.CheckEq(t, sample.Y, []float64{1}, "")
	test.CheckEq(t, sample.Weight, 2.0, "")
}

func TestUnitRunShape(t *testing.T) {
	modelPath, datasetPath := writeFiles(t, "name: LinearRegression\n")
	options := defaultOptions()
	options.weightColumn = ""
	options.labelColumns = 2
	ds, err := loadDataset(datasetPath, options)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, ds.NumFeatures(), 2, "")

	header := "name: LinearRegression\nnum_classes: 2\n"
	if err := os.WriteFile(modelPath, []byte(header), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Run(modelPath, datasetPath, options); err != nil {
		t.Fatal(err)
	}
}

func TestRunErrors(t *testing.T) {
	modelPath, datasetPath := writeFiles(t, "name: LogisticRegression\n")

	options := defaultOptions()
	options.numRuns = 0
	if err := Run(modelPath, datasetPath, options); err == nil {
		t.Error("expected an error for numRuns=0")
	}

	if err := Run(modelPath, strings.TrimPrefix(datasetPath, "csv:"), defaultOptions()); err == nil {
		t.Error("expected an error for an untyped dataset path")
	}

	options = defaultOptions()
	options.weightColumn = "missing"
	if err := Run(modelPath, datasetPath, options); err == nil {
		t.Error("expected an error for a missing weight column")
	}
}

func TestParseTypedPath(t *testing.T) {
	format, path, err := parseTypedPath("csv:/tmp/a.csv")
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, format, "csv", "")
	test.CheckEq(t, path, "/tmp/a.csv", "")
}

func TestNewLoggerFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "benchmark.log")
	logger, err := newLogger(logFile, true)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello")
	logger.Sync()
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "hello") {
		t.Errorf("log file content: %q", content)
	}
}

func TestRunExitCode(t *testing.T) {
	modelPath, datasetPath := writeFiles(t, "name: LogisticRegression\n")
	logFile := filepath.Join(t.TempDir(), "benchmark.log")

	test.CheckEq(t, run(modelPath, datasetPath, defaultOptions(), logFile, false), 0, "")
	test.CheckEq(t, run(filepath.Join(t.TempDir(), "missing.yaml"), datasetPath, defaultOptions(), logFile, false), 1, "")

	// The failure is flushed to the log file before returning.
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "Benchmark failed") {
		t.Errorf("log file content: %q", content)
	}
}
