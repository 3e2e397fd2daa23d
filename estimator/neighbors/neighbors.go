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

// Package neighbors contains a k-nearest neighbors classifier.
package neighbors

import (
	"fmt"
	"sort"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/estimator"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultK is the default number of neighbors.
const DefaultK = 5

// KNeighborsClassifier predicts the class frequencies among the "K" nearest
// training rows (euclidean distance). It does not support sample weights.
type KNeighborsClassifier struct {
	estimator.Logging

	K int

	points  *mat.Dense
	targets []int
	classes []int
}

var _ estimator.Classifier = (*KNeighborsClassifier)(nil)

// NewKNeighborsClassifier creates an unfitted classifier.
func NewKNeighborsClassifier(k int) *KNeighborsClassifier {
	return &KNeighborsClassifier{K: k}
}

// Fit memorizes the training rows.
func (m *KNeighborsClassifier) Fit(x mat.Matrix, y []int) error {
	if err := estimator.CheckFitArgs(x, len(y), nil); err != nil {
		return fmt.Errorf("k-neighbors: %w", err)
	}
	if m.K <= 0 {
		return fmt.Errorf("k-neighbors: k must be positive, got %d", m.K)
	}
	m.classes = estimator.UniqueClasses(y)
	classIndex := estimator.ClassIndex(m.classes)
	m.targets = make([]int, len(y))
	for i, label := range y {
		m.targets[i] = classIndex[label]
	}
	m.points = mat.DenseCopyOf(x)
	return nil
}

// Classes returns the sorted classes seen during fitting.
func (m *KNeighborsClassifier) Classes() []int {
	return append([]int{}, m.classes...)
}

// PredictProba returns the class frequencies among the neighbors of each row.
func (m *KNeighborsClassifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if m.points == nil {
		return nil, fmt.Errorf("k-neighbors: not fitted")
	}
	numRows := estimator.Rows(x)
	if numRows == 0 {
		return &mat.Dense{}, nil
	}
	numPoints, numFeatures := m.points.Dims()
	if _, c := x.Dims(); c != numFeatures {
		return nil, fmt.Errorf("k-neighbors: %w: %d features, expecting %d", dataset.ErrShapeMismatch, c, numFeatures)
	}
	k := m.K
	if k > numPoints {
		m.Logger().Warn("More neighbors requested than training rows",
			zap.Int("k", k), zap.Int("rows", numPoints))
		k = numPoints
	}

	proba := mat.NewDense(numRows, len(m.classes), nil)
	query := make([]float64, numFeatures)
	distances := make([]float64, numPoints)
	order := make([]int, numPoints)
	for i := 0; i < numRows; i++ {
		mat.Row(query, i, x)
		for p := 0; p < numPoints; p++ {
			distances[p] = floats.Distance(query, m.points.RawRowView(p), 2)
			order[p] = p
		}
		// Stable so that equidistant neighbors are taken in training order.
		sort.SliceStable(order, func(a, b int) bool { return distances[order[a]] < distances[order[b]] })
		row := proba.RawRowView(i)
		for _, p := range order[:k] {
			row[m.targets[p]] += 1 / float64(k)
		}
	}
	return proba, nil
}

// Clone returns an independent copy.
func (m *KNeighborsClassifier) Clone() estimator.Estimator {
	clone := *m
	if m.points != nil {
		clone.points = mat.DenseCopyOf(m.points)
		clone.targets = append([]int{}, m.targets...)
		clone.classes = append([]int{}, m.classes...)
	}
	return &clone
}
