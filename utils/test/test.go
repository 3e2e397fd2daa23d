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

// Package test contains assertion helpers for unit tests.
package test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"
)

// CheckEq fails the test if "value" and "expected" differ.
func CheckEq(t *testing.T, value, expected interface{}, message string) {
	t.Helper()
	if diff := cmp.Diff(expected, value); diff != "" {
		t.Errorf("%s: unexpected value (-expected +got):\n%s", message, diff)
	}
}

// CheckNearFloat fails the test if "value" is further than "margin" away
// from "expected".
func CheckNearFloat(t *testing.T, value, expected, margin float64, message string) {
	t.Helper()
	if math.IsNaN(value) || math.Abs(value-expected) > margin {
		t.Errorf("%s: got %v, expected %v +/- %v", message, value, expected, margin)
	}
}

// CheckNearSlice fails the test if the two slices have different lengths or
// differ element-wise by more than "margin".
func CheckNearSlice(t *testing.T, value, expected []float64, margin float64, message string) {
	t.Helper()
	if diff := cmp.Diff(expected, value, cmpopts.EquateApprox(0, margin)); diff != "" {
		t.Errorf("%s: unexpected value (-expected +got):\n%s", message, diff)
	}
}

// CheckNearMatrix fails the test if the two matrices have different shapes or
// differ element-wise by more than "margin".
func CheckNearMatrix(t *testing.T, value, expected mat.Matrix, margin float64, message string) {
	t.Helper()
	valueRows, valueCols := Dims(value)
	expectedRows, expectedCols := Dims(expected)
	if valueRows != expectedRows || valueCols != expectedCols {
		t.Errorf("%s: got shape (%d, %d), expected (%d, %d)", message, valueRows, valueCols, expectedRows, expectedCols)
		return
	}
	if valueRows == 0 || valueCols == 0 {
		return
	}
	if !mat.EqualApprox(value, expected, margin) {
		t.Errorf("%s: got\n%v\nexpected\n%v", message, mat.Formatted(value), mat.Formatted(expected))
	}
}

// CheckDims fails the test if "m" does not have the given shape.
func CheckDims(t *testing.T, m mat.Matrix, rows, cols int, message string) {
	t.Helper()
	r, c := Dims(m)
	if r != rows || c != cols {
		t.Errorf("%s: got shape (%d, %d), expected (%d, %d)", message, r, c, rows, cols)
	}
}

// Dims returns the shape of a possibly nil or empty matrix.
func Dims(m mat.Matrix) (int, int) {
	if m == nil {
		return 0, 0
	}
	if dense, ok := m.(*mat.Dense); ok && (dense == nil || dense.IsEmpty()) {
		return 0, 0
	}
	return m.Dims()
}
