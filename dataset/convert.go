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
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DType is the numeric type of the values returned by a model.
type DType int32

const (
	// Float32 rounds values to single precision.
	Float32 DType = 0
	// Float64 keeps values in double precision.
	Float64 DType = 1
)

// ParseDType parses "float32" or "float64". The empty string is Float32.
func ParseDType(name string) (DType, error) {
	switch name {
	case "", "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	}
	return Float32, fmt.Errorf("unknown dtype %q, expecting \"float32\" or \"float64\"", name)
}

func (d DType) String() string {
	if d == Float64 {
		return "float64"
	}
	return "float32"
}

// Cast converts, in place, the values of "m" to the given type and returns "m".
func Cast(m *mat.Dense, dtype DType) *mat.Dense {
	if dtype != Float32 || m.IsEmpty() {
		return m
	}
	m.Apply(func(_, _ int, v float64) float64 { return float64(float32(v)) }, m)
	return m
}

// ToDense collects covariates into a single in-memory matrix. A dataset is
// collected into one full-size batch. An empty input gives an empty Dense.
func ToDense(x mat.Matrix) *mat.Dense {
	if ds, ok := x.(*Dataset); ok {
		return ds.Full().X
	}
	r, c := dims(x)
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.DenseCopyOf(x)
}

// ArgMax converts labels into class indices. A single column holds the class
// indices directly; several columns hold one-hot (or soft) class memberships,
// in which case the index of the largest value is used.
func ArgMax(y mat.Matrix) []int {
	r, c := dims(y)
	labels := make([]int, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		if c == 1 {
			labels[i] = int(math.Round(y.At(i, 0)))
			continue
		}
		mat.Row(row, i, y)
		labels[i] = floats.MaxIdx(row)
	}
	return labels
}

// OneHot converts labels into a (rows, numClasses) membership matrix. Labels
// that already have "numClasses" columns are copied as is.
func OneHot(y mat.Matrix, numClasses int) (*mat.Dense, error) {
	r, c := dims(y)
	if r == 0 {
		return &mat.Dense{}, nil
	}
	if c == numClasses {
		return mat.DenseCopyOf(y), nil
	}
	if c != 1 {
		return nil, fmt.Errorf("%w: labels have %d columns, expecting 1 or %d", ErrShapeMismatch, c, numClasses)
	}
	encoded := mat.NewDense(r, numClasses, nil)
	for i, label := range ArgMax(y) {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("label %d of row %d is not in [0, %d)", label, i, numClasses)
		}
		encoded.Set(i, label, 1)
	}
	return encoded, nil
}
