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

/*
Benchmark the fit and predict speed of a model.

Usage example:

	# Describe the model
	cat > /tmp/header.yaml <<END
	name: ClassifierMLP
	num_classes: 2
	options:
	  input_dim: 4
	  hidden_dims: [25]
	END

	# Benchmark
	go run ./cli/benchmark_fit \
		--model=/tmp/header.yaml \
		--dataset=csv:/tmp/train.csv \
		--label_columns=1 \
		--epochs=5 \
		--num_runs=10

The last "label_columns" columns of the csv file are the labels, the others
(except "weight_column" if set) are the covariates. The first line of the csv
file is the header.

Naming convention:
  - A (benchmark) "run" evaluates the speed of a model on a dataset.
  - A "run" is composed of one of more "unit runs".
  - A "unit run" fits a fresh clone of the model on the dataset, then predicts
    the dataset.
*/
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/model"
	model_io "github.com/opendataval/opendataval/port/go/model/io/canonical"
	"github.com/opendataval/opendataval/port/go/utils/file"
)

var flagModel = flag.String("model", "", "Path to the YAML model header, or to a model directory")
var flagDataset = flag.String("dataset", "", "Type path to the dataset e.g. csv:/tmp/my_file.csv")
var flagNumRuns = flag.Int("num_runs", 5, "Number of times the model is fitted. Higher values increase the precision of the timings, but increase the duration of the benchmark.")
var flagEpochs = flag.Int("epochs", model.DefaultEpochs, "Number of passes over the dataset of each fit. Ignored by the models fitted once.")
var flagBatchSize = flag.Int("batch_size", model.DefaultBatchSize, "Number of examples per gradient step.")
var flagLearningRate = flag.Float64("lr", model.DefaultLearningRate, "Learning rate of the gradient trained models.")
var flagLabelColumns = flag.Int("label_columns", 1, "Number of label columns, at the end of each csv row.")
var flagWeightColumn = flag.String("weight_column", "", "Name of the column containing the sample weights. Empty means unweighted.")
var flagLogFile = flag.String("log_file", "", "If set, the logs are written to this file, rotated, instead of the standard error.")
var flagVerbose = flag.Bool("verbose", false, "Log the debug messages e.g. the loss of each epoch.")

// Options are the options to run the benchmark.
type Options struct {
	// Number of times the model is fitted.
	numRuns int

	// Training loop parameters of each fit.
	epochs       int
	batchSize    int
	learningRate float64

	// Layout of the csv dataset.
	labelColumns int
	weightColumn string
}

// Run runs the benchmark. The results are printed on the standard output.
func Run(modelPath string, datasetPath string, options *Options) error {
	fmt.Printf("Run benchmark with\n  model: %v\n  dataset: %v\n  options: %+v\n",
		modelPath, datasetPath, *options)

	// Check the validity of the options
	if options.numRuns <= 0 {
		return fmt.Errorf("options.numRuns should be greater or equal to 1")
	}
	if options.epochs <= 0 {
		return fmt.Errorf("options.epochs should be greater or equal to 1")
	}
	if options.batchSize <= 0 {
		return fmt.Errorf("options.batchSize should be greater or equal to 1")
	}
	if options.labelColumns <= 0 {
		return fmt.Errorf("options.labelColumns should be greater or equal to 1")
	}

	// Load the model
	fmt.Println("Create model")
	m, err := model_io.LoadModel(modelPath)
	if err != nil {
		return err
	}
	fmt.Printf("\tFound model: %v with %d output columns\n", m.Name(), m.NumClasses())

	// Loads the dataset.
	fmt.Println("Load dataset")
	ds, err := loadDataset(datasetPath, options)
	if err != nil {
		return err
	}
	fmt.Printf("\t%d examples, %d features, %d label columns, weighted: %v\n",
		ds.Len(), ds.NumFeatures(), ds.LabelDim(), ds.HasWeights())

	// Run the benchmark
	fmt.Println("Run benchmark")
	result, err := UnitRun(m, ds, options)
	if err != nil {
		return err
	}

	// Print the result
	fmt.Println("Results")
	fmt.Print(result)
	return nil
}

// UnitRunResult contains the benchmark result for a single run.
type UnitRunResult struct {
	fitDuration     time.Duration
	predictDuration time.Duration
	numExamples     int
	numRows         int
	numCols         int
}

func (result *UnitRunResult) String() string {
	perExample := func(d time.Duration) time.Duration {
		if result.numExamples == 0 {
			return 0
		}
		return d / time.Duration(result.numExamples)
	}
	return fmt.Sprintf(
		`Avg. time per fit:                 %v
Avg. time per predict:             %v
Avg. fit time per examples:        %v
Avg. predict time per examples:    %v
Predictions shape:                 (%d, %d)
`,
		result.fitDuration,
		result.predictDuration,
		perExample(result.fitDuration),
		perExample(result.predictDuration),
		result.numRows, result.numCols)
}

// UnitRun fits "numRuns" fresh clones of "m" on "ds" and predicts "ds" with each of them.
func UnitRun(m model.Model, ds *dataset.Dataset, options *Options) (*UnitRunResult, error) {
	batch := ds.Full()
	fitOptions := []model.FitOption{
		model.WithEpochs(options.epochs),
		model.WithBatchSize(options.batchSize),
		model.WithLearningRate(options.learningRate),
	}

	result := &UnitRunResult{numExamples: ds.Len()}
	for runIdx := 0; runIdx < options.numRuns; runIdx++ {
		experiment := m.Clone()

		start := time.Now()
		fitted, err := experiment.Fit(batch.X, batch.Y, batch.Weights, fitOptions...)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", runIdx, err)
		}
		result.fitDuration += time.Since(start)

		start = time.Now()
		predictions, err := fitted.Predict(batch.X)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", runIdx, err)
		}
		result.predictDuration += time.Since(start)
		result.numRows, result.numCols = predictionDims(predictions, fitted.NumClasses())

		zap.L().Debug("Benchmark run done", zap.Int("run", runIdx),
			zap.Duration("elapsed", result.fitDuration+result.predictDuration))
	}
	result.fitDuration /= time.Duration(options.numRuns)
	result.predictDuration /= time.Duration(options.numRuns)
	return result, nil
}

// predictionDims reports a zero row prediction as (0, numClasses).
func predictionDims(predictions *mat.Dense, numClasses int) (int, int) {
	if predictions.IsEmpty() {
		return 0, numClasses
	}
	return predictions.Dims()
}

func loadDataset(typedPath string, options *Options) (*dataset.Dataset, error) {
	format, path, err := parseTypedPath(typedPath)
	if err != nil {
		return nil, err
	}
	switch format {
	case "csv":
		return loadDatasetCsv(path, options)
	default:
		return nil, fmt.Errorf("Non supported dataset format %v", format)
	}
}

// parseTypedPath parses a typed path into its constituents.
//
// For example:
//
//	Input: "csv:/path/to/file.csv"
//	Results:
//	  1. "csv"
//	  2. "/path/to/file.csv"
//	  3. nil (i.e. no error)
func parseTypedPath(typedPath string) (pathType string, path string, err error) {
	i := strings.Index(typedPath, ":")
	if i == -1 {
		err = fmt.Errorf("Malformed typed dataset path. Expecting [format]:[path]. Instead, got %v", typedPath)
		return
	}
	pathType = typedPath[:i]
	path = typedPath[i+1:]
	err = nil
	return
}

func loadDatasetCsv(path string, options *Options) (*dataset.Dataset, error) {
	// Read the csv content.
	content, err := file.ReadFile(context.Background(), path)
	if err != nil {
		return nil, err
	}
	csvData, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(csvData) == 0 {
		return nil, fmt.Errorf("%v: missing csv header", path)
	}

	// Skip the header file
	csvHeader := csvData[0]
	csvData = csvData[1:]

	weightIdx := -1
	if options.weightColumn != "" {
		weightIdx = slices.Index(csvHeader, options.weightColumn)
		if weightIdx == -1 {
			return nil, fmt.Errorf("%v: no column %q in %v", path, options.weightColumn, csvHeader)
		}
	}
	numColumns := len(csvHeader)
	labelBegin := numColumns - options.labelColumns
	if weightIdx >= labelBegin {
		return nil, fmt.Errorf("%v: the weight column cannot be a label column", path)
	}
	numFeatures := labelBegin
	if weightIdx != -1 {
		numFeatures--
	}
	if numFeatures < 0 {
		return nil, fmt.Errorf("%v: %d columns for %d label columns", path, numColumns, options.labelColumns)
	}

	numExamples := len(csvData)
	x := make([]float64, 0, numExamples*numFeatures)
	y := make([]float64, 0, numExamples*options.labelColumns)
	var weights []float64
	if weightIdx != -1 {
		weights = make([]float64, 0, numExamples)
	}
	for exampleIdx, row := range csvData {
		if len(row) != numColumns {
			return nil, fmt.Errorf("%v: line %d has %d fields, expecting %d", path, exampleIdx+2, len(row), numColumns)
		}
		for colIdx, field := range row {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%v: line %d column %q: %w", path, exampleIdx+2, csvHeader[colIdx], err)
			}
			switch {
			case colIdx == weightIdx:
				weights = append(weights, value)
			case colIdx >= labelBegin:
				y = append(y, value)
			default:
				x = append(x, value)
			}
		}
	}
	return dataset.New(
		dataset.NewDense(numExamples, numFeatures, x),
		dataset.NewDense(numExamples, options.labelColumns, y),
		weights)
}

// newLogger creates the process logger. With a log file, the logs are json
// encoded and the file is rotated.
func newLogger(logFile string, verbose bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	if logFile == "" {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		return config.Build()
	}
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // Megabytes.
		MaxBackups: 3,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), writer, level)
	return zap.New(core), nil
}

// run runs the benchmark with the process logger installed and returns the
// exit code. The logger is flushed before returning.
func run(modelPath, datasetPath string, options *Options, logFile string, verbose bool) int {
	logger, err := newLogger(logFile, verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()
	defer zap.ReplaceGlobals(logger)()

	if err := Run(modelPath, datasetPath, options); err != nil {
		logger.Error("Benchmark failed", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	flag.Parse()

	options := Options{
		numRuns:      *flagNumRuns,
		epochs:       *flagEpochs,
		batchSize:    *flagBatchSize,
		learningRate: *flagLearningRate,
		labelColumns: *flagLabelColumns,
		weightColumn: *flagWeightColumn,
	}
	os.Exit(run(*flagModel, *flagDataset, &options, *flagLogFile, *flagVerbose))
}
