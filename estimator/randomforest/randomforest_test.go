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

package randomforest

import (
	"testing"

	"github.com/opendataval/opendataval/port/go/utils/test"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	x = mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		5, 5,
		5, 6,
		6, 5,
		6, 6,
	})
	y = []int{1, 1, 1, 1, 3, 3, 3, 3}
)

func newForest() *Classifier {
	c := NewClassifier()
	c.NumTrees = 20
	c.Seed = 1234
	return c
}

func TestFitPredict(t *testing.T) {
	c := newForest()
	if err := c.Fit(x, y); err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, c.Classes(), []int{1, 3}, "")
	test.CheckEq(t, len(c.Forest().Trees), 20, "")

	proba, err := c.PredictProba(mat.NewDense(2, 2, []float64{0.5, 0.5, 5.5, 5.5}))
	if err != nil {
		t.Fatal(err)
	}
	test.CheckDims(t, proba, 2, 2, "")
	for i := 0; i < 2; i++ {
		test.CheckNearFloat(t, floats.Sum(proba.RawRowView(i)), 1, 1e-9, "")
	}
	test.CheckEq(t, floats.MaxIdx(proba.RawRowView(0)), 0, "")
	test.CheckEq(t, floats.MaxIdx(proba.RawRowView(1)), 1, "")
}

func TestDeterministic(t *testing.T) {
	a := newForest()
	b := newForest()
	if err := a.Fit(x, y); err != nil {
		t.Fatal(err)
	}
	if err := b.FitWeighted(x, y, []float64{1, 1, 1, 1, 1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, b.Forest(), a.Forest(), "")
}

func TestWithoutBootstrap(t *testing.T) {
	c := newForest()
	c.Bootstrap = false
	c.NumTrees = 3
	if err := c.Fit(x, y); err != nil {
		t.Fatal(err)
	}
	proba, err := c.PredictProba(x)
	if err != nil {
		t.Fatal(err)
	}
	for i, label := range y {
		expected := []float64{1, 0}
		if label == 3 {
			expected = []float64{0, 1}
		}
		test.CheckNearSlice(t, proba.RawRowView(i), expected, 1e-12, "")
	}
}

func TestClone(t *testing.T) {
	c := newForest()
	if err := c.Fit(x, y); err != nil {
		t.Fatal(err)
	}
	before, _ := c.PredictProba(x)
	clone := c.Clone().(*Classifier)
	if err := clone.Fit(x, []int{0, 0, 0, 0, 0, 0, 1, 1}); err != nil {
		t.Fatal(err)
	}
	after, _ := c.PredictProba(x)
	test.CheckEq(t, after.RawMatrix().Data, before.RawMatrix().Data, "")
}

func TestErrors(t *testing.T) {
	c := newForest()
	if _, err := c.PredictProba(x); err == nil {
		t.Error("expected a not fitted error")
	}
	c.NumTrees = 0
	if err := c.Fit(x, y); err == nil {
		t.Error("expected an invalid number of trees error")
	}
}
