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

package estimator

import (
	"testing"

	"github.com/opendataval/opendataval/port/go/utils/test"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
)

type loudEstimator struct {
	Logging
}

func (e *loudEstimator) Clone() Estimator {
	clone := *e
	return &clone
}

func TestQuietly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	est := &loudEstimator{}
	est.SetLogger(logger)

	err := Quietly(est, func() error {
		est.Logger().Warn("silenced")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	est.Logger().Warn("visible")

	test.CheckEq(t, logs.Len(), 1, "")
	test.CheckEq(t, logs.All()[0].Message, "visible", "")
}

func TestLoggingDefaultsToGlobal(t *testing.T) {
	est := &loudEstimator{}
	if est.Logger() != zap.L() {
		t.Errorf("expected the global logger")
	}
}

func TestUniqueClasses(t *testing.T) {
	test.CheckEq(t, UniqueClasses([]int{3, 1, 3, 0, 1}), []int{0, 1, 3}, "")
	test.CheckEq(t, UniqueClasses(nil), []int{}, "")
	test.CheckEq(t, ClassIndex([]int{0, 1, 3}), map[int]int{0: 0, 1: 1, 3: 2}, "")
}

func TestUniformWeights(t *testing.T) {
	test.CheckEq(t, UniformWeights(nil, 3), []float64{1, 1, 1}, "")
	test.CheckEq(t, UniformWeights([]float64{2, 0}, 2), []float64{2, 0}, "")
}

func TestCheckFitArgs(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{1, 2})
	if err := CheckFitArgs(x, 2, nil); err != nil {
		t.Error(err)
	}
	if err := CheckFitArgs(x, 3, nil); err == nil {
		t.Error("expected a label count error")
	}
	if err := CheckFitArgs(x, 2, []float64{1}); err == nil {
		t.Error("expected a weight count error")
	}
	if err := CheckFitArgs(&mat.Dense{}, 0, nil); err == nil {
		t.Error("expected a zero rows error")
	}
	test.CheckEq(t, Rows(nil), 0, "")
	test.CheckEq(t, Rows(x), 2, "")
}
