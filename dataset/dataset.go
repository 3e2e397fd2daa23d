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

// Package dataset defines "Dataset": an aligned set of covariates, labels and
// optional per-row sample weights; and "Batch": a group of rows of a dataset.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when covariates, labels and weights are not aligned.
var ErrShapeMismatch = errors.New("dataset: shape mismatch")

// ErrInvalidWeight is returned for negative or non-finite sample weights.
var ErrInvalidWeight = errors.New("dataset: invalid sample weight")

// Dataset is a fixed-length, indexable set of (covariate, label, weight?) rows.
//
// A Dataset is also a read-only mat.Matrix over its covariates, so a dataset
// can be handed to any method expecting raw covariates.
type Dataset struct {
	numRows     int
	numFeatures int
	labelDim    int

	// {Row major, column minor} values.
	covariates []float64
	labels     []float64

	// One value per row. nil if the dataset is not weighted.
	weights []float64
}

// Sample is a single row of a dataset.
type Sample struct {
	X         []float64
	Y         []float64
	Weight    float64
	HasWeight bool
}

// New creates a dataset. The content of the arguments is copied. A nil or
// empty matrix stands for zero rows.
func New(x, y mat.Matrix, weights []float64) (*Dataset, error) {
	xRows, xCols := dims(x)
	yRows, yCols := dims(y)
	if xRows != yRows {
		return nil, fmt.Errorf("%w: %d covariate rows and %d label rows", ErrShapeMismatch, xRows, yRows)
	}
	if weights != nil && len(weights) != xRows {
		return nil, fmt.Errorf("%w: %d sample weights for %d rows", ErrShapeMismatch, len(weights), xRows)
	}
	for rowIdx, weight := range weights {
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, fmt.Errorf("%w: row %d has weight %v", ErrInvalidWeight, rowIdx, weight)
		}
	}

	ds := &Dataset{
		numRows:     xRows,
		numFeatures: xCols,
		labelDim:    yCols,
		covariates:  flatten(x, xRows, xCols),
		labels:      flatten(y, yRows, yCols),
	}
	if weights != nil {
		ds.weights = make([]float64, len(weights))
		copy(ds.weights, weights)
	}
	return ds, nil
}

// Len is the number of rows.
func (ds *Dataset) Len() int {
	return ds.numRows
}

// NumFeatures is the number of covariate columns.
func (ds *Dataset) NumFeatures() int {
	return ds.numFeatures
}

// LabelDim is the number of label columns.
func (ds *Dataset) LabelDim() int {
	return ds.labelDim
}

// HasWeights tests if the dataset carries sample weights.
func (ds *Dataset) HasWeights() bool {
	return ds.weights != nil
}

// Sample returns the i-th row. The returned slices alias the dataset.
func (ds *Dataset) Sample(i int) Sample {
	if i < 0 || i >= ds.numRows {
		panic(mat.ErrRowAccess)
	}
	sample := Sample{
		X: ds.covariates[i*ds.numFeatures : (i+1)*ds.numFeatures],
		Y: ds.labels[i*ds.labelDim : (i+1)*ds.labelDim],
	}
	if ds.weights != nil {
		sample.Weight = ds.weights[i]
		sample.HasWeight = true
	}
	return sample
}

// Full returns all the rows, in order, as a single batch.
func (ds *Dataset) Full() *Batch {
	indices := make([]int, ds.numRows)
	for i := range indices {
		indices[i] = i
	}
	return ds.gather(indices)
}

// Batches partitions the dataset into batches of "batchSize" rows. The last
// batch may be smaller. If "rng" is not nil, the rows are visited in a fresh
// random order; otherwise they are visited in order. A non-positive
// "batchSize" puts all the rows in a single batch.
func (ds *Dataset) Batches(batchSize int, rng *rand.Rand) []*Batch {
	order := ds.order(rng)
	if batchSize <= 0 {
		batchSize = max(ds.numRows, 1)
	}
	batches := make([]*Batch, 0, (ds.numRows+batchSize-1)/batchSize)
	for beginIdx := 0; beginIdx < len(order); beginIdx += batchSize {
		endIdx := min(beginIdx+batchSize, len(order))
		batches = append(batches, ds.gather(order[beginIdx:endIdx]))
	}
	return batches
}

func (ds *Dataset) order(rng *rand.Rand) []int {
	if rng != nil {
		return rng.Perm(ds.numRows)
	}
	order := make([]int, ds.numRows)
	for i := range order {
		order[i] = i
	}
	return order
}

// gather copies the given rows into a new batch.
func (ds *Dataset) gather(indices []int) *Batch {
	numRows := len(indices)
	x := make([]float64, numRows*ds.numFeatures)
	y := make([]float64, numRows*ds.labelDim)
	for dstIdx, srcIdx := range indices {
		copy(x[dstIdx*ds.numFeatures:(dstIdx+1)*ds.numFeatures],
			ds.covariates[srcIdx*ds.numFeatures:(srcIdx+1)*ds.numFeatures])
		copy(y[dstIdx*ds.labelDim:(dstIdx+1)*ds.labelDim],
			ds.labels[srcIdx*ds.labelDim:(srcIdx+1)*ds.labelDim])
	}

	batch := &Batch{
		X: NewDense(numRows, ds.numFeatures, x),
		Y: NewDense(numRows, ds.labelDim, y),
	}
	if ds.weights != nil {
		batch.Weights = make([]float64, numRows)
		for dstIdx, srcIdx := range indices {
			batch.Weights[dstIdx] = ds.weights[srcIdx]
		}
	}
	return batch
}

// Dims returns the dimensions of the covariates.
func (ds *Dataset) Dims() (r, c int) {
	return ds.numRows, ds.numFeatures
}

// At returns a covariate value.
func (ds *Dataset) At(i, j int) float64 {
	if i < 0 || i >= ds.numRows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= ds.numFeatures {
		panic(mat.ErrColAccess)
	}
	return ds.covariates[i*ds.numFeatures+j]
}

// T returns the transpose of the covariates.
func (ds *Dataset) T() mat.Matrix {
	return mat.Transpose{Matrix: ds}
}

// Batch is a group of aligned rows.
//
// Weights is nil when the rows carry no sample weight, i.e. a batch is either
// a (covariate, label) pair or a (covariate, label, weight) triple.
type Batch struct {
	X       *mat.Dense
	Y       *mat.Dense
	Weights []float64
}

// Len is the number of rows in the batch.
func (b *Batch) Len() int {
	r, _ := b.X.Dims()
	return r
}

// Weighted tests if the batch carries sample weights.
func (b *Batch) Weighted() bool {
	return b.Weights != nil
}

// NewDense creates a matrix that may have zero rows or columns. gonum does
// not allocate zero-sized matrices: those are represented by an empty Dense.
func NewDense(r, c int, data []float64) *mat.Dense {
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, data)
}

// dims returns the dimensions of a possibly nil or empty matrix.
func dims(m mat.Matrix) (int, int) {
	if m == nil {
		return 0, 0
	}
	if dense, ok := m.(*mat.Dense); ok && (dense == nil || dense.IsEmpty()) {
		return 0, 0
	}
	return m.Dims()
}

func flatten(m mat.Matrix, r, c int) []float64 {
	values := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values[i*c+j] = m.At(i, j)
		}
	}
	return values
}
