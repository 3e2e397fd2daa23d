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

package dataset

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/opendataval/opendataval/port/go/utils/test"
)

func toyDataset(t *testing.T, weights []float64) *Dataset {
	x := mat.NewDense(5, 2, []float64{
		0, 1,
		2, 3,
		4, 5,
		6, 7,
		8, 9})
	y := mat.NewDense(5, 1, []float64{0, 1, 0, 1, 1})
	ds, err := New(x, y, weights)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestNew(t *testing.T) {
	ds := toyDataset(t, nil)
	test.CheckEq(t, ds.Len(), 5, "")
	test.CheckEq(t, ds.NumFeatures(), 2, "")
	test.CheckEq(t, ds.LabelDim(), 1, "")
	test.CheckEq(t, ds.HasWeights(), false, "")

	sample := ds.Sample(2)
	test.CheckEq(t, sample, Sample{X: []float64{4, 5}, Y: []float64{0}}, "")
}

func TestNewCopiesArguments(t *testing.T) {
	x := mat.NewDense(1, 1, []float64{1})
	y := mat.NewDense(1, 1, []float64{2})
	weights := []float64{3}
	ds, err := New(x, y, weights)
	if err != nil {
		t.Fatal(err)
	}
	x.Set(0, 0, 10)
	y.Set(0, 0, 20)
	weights[0] = 30
	test.CheckEq(t, ds.Sample(0), Sample{X: []float64{1}, Y: []float64{2}, Weight: 3, HasWeight: true}, "")
}

func TestWeightedSample(t *testing.T) {
	ds := toyDataset(t, []float64{1, 2, 3, 4, 5})
	test.CheckEq(t, ds.HasWeights(), true, "")
	test.CheckEq(t, ds.Sample(3), Sample{X: []float64{6, 7}, Y: []float64{1}, Weight: 4, HasWeight: true}, "")
}

func TestNewErrors(t *testing.T) {
	x := mat.NewDense(2, 1, nil)
	y := mat.NewDense(3, 1, nil)
	if _, err := New(x, y, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("rows mismatch: got %v", err)
	}
	if _, err := New(x, mat.NewDense(2, 1, nil), []float64{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("weights mismatch: got %v", err)
	}
	for _, weight := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := New(x, mat.NewDense(2, 1, nil), []float64{1, weight}); !errors.Is(err, ErrInvalidWeight) {
			t.Errorf("weight %v: got %v", weight, err)
		}
	}
}

func TestEmpty(t *testing.T) {
	ds, err := New(nil, &mat.Dense{}, []float64{})
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, ds.Len(), 0, "")
	test.CheckEq(t, ds.HasWeights(), true, "")
	batch := ds.Full()
	test.CheckEq(t, batch.Len(), 0, "")
	test.CheckEq(t, batch.X.IsEmpty(), true, "")
	test.CheckEq(t, len(ds.Batches(4, nil)), 0, "")
}

func TestSampleOutOfRange(t *testing.T) {
	ds := toyDataset(t, nil)
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	ds.Sample(5)
}

func TestMatrixView(t *testing.T) {
	ds := toyDataset(t, nil)
	var m mat.Matrix = ds
	r, c := m.Dims()
	test.CheckEq(t, []int{r, c}, []int{5, 2}, "")
	test.CheckEq(t, m.At(3, 1), 7.0, "")
	test.CheckEq(t, m.T().At(1, 3), 7.0, "")
	test.CheckNearMatrix(t, mat.DenseCopyOf(ds), ds.Full().X, 0, "")
}

func TestFull(t *testing.T) {
	ds := toyDataset(t, []float64{1, 2, 3, 4, 5})
	batch := ds.Full()
	test.CheckEq(t, batch.Len(), 5, "")
	test.CheckEq(t, batch.Weighted(), true, "")
	test.CheckEq(t, batch.Weights, []float64{1, 2, 3, 4, 5}, "")
	test.CheckEq(t, batch.Y.RawMatrix().Data, []float64{0, 1, 0, 1, 1}, "")
}

func TestBatches(t *testing.T) {
	ds := toyDataset(t, nil)
	batches := ds.Batches(2, nil)
	test.CheckEq(t, len(batches), 3, "")
	test.CheckEq(t, batches[0].X.RawMatrix().Data, []float64{0, 1, 2, 3}, "")
	test.CheckEq(t, batches[2].Len(), 1, "")
	test.CheckEq(t, batches[2].Weighted(), false, "")

	test.CheckEq(t, len(ds.Batches(0, nil)), 1, "non positive batch size")
}

func TestShuffledBatchesCoverAllRows(t *testing.T) {
	ds := toyDataset(t, []float64{1, 2, 3, 4, 5})
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[float64]float64{}
	for _, batch := range ds.Batches(2, rng) {
		for i := 0; i < batch.Len(); i++ {
			// Rows stay aligned: the weight of row k is k+1 and its first covariate 2k.
			seen[batch.X.At(i, 0)] = batch.Weights[i]
		}
	}
	test.CheckEq(t, seen, map[float64]float64{0: 1, 2: 2, 4: 3, 6: 4, 8: 5}, "")
}

func TestShuffleDeterministic(t *testing.T) {
	ds := toyDataset(t, nil)
	a := ds.Batches(5, rand.New(rand.NewPCG(7, 7)))[0]
	b := ds.Batches(5, rand.New(rand.NewPCG(7, 7)))[0]
	test.CheckNearMatrix(t, a.X, b.X, 0, "")
}
