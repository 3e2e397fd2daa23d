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

package neuralnetwork

import (
	"fmt"
	"math"
)

// AdamConfig configures an Adam optimizer.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64
}

// DefaultAdamConfig returns the default Adam configuration.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 0.01,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0.0,
	}
}

func (c AdamConfig) validate() error {
	switch {
	case c.LearningRate <= 0 || math.IsNaN(c.LearningRate):
		return fmt.Errorf("adam: learning rate must be positive, got %v", c.LearningRate)
	case c.Beta1 < 0 || c.Beta1 >= 1:
		return fmt.Errorf("adam: beta1 must be in [0, 1), got %v", c.Beta1)
	case c.Beta2 < 0 || c.Beta2 >= 1:
		return fmt.Errorf("adam: beta2 must be in [0, 1), got %v", c.Beta2)
	case c.Epsilon <= 0:
		return fmt.Errorf("adam: epsilon must be positive, got %v", c.Epsilon)
	}
	return nil
}

// Adam is the Adam optimizer (Kingma & Ba) with bias correction.
type Adam struct {
	config AdamConfig
	params []*Parameter

	// First and second moment estimates. Same layout as the parameters.
	m, v      [][]float64
	stepCount int
}

// NewAdam creates an optimizer updating "params".
func NewAdam(params []*Parameter, config AdamConfig) (*Adam, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	a := &Adam{config: config, params: params}
	for _, param := range params {
		size := len(param.Value.RawMatrix().Data)
		a.m = append(a.m, make([]float64, size))
		a.v = append(a.v, make([]float64, size))
	}
	return a, nil
}

// ZeroGrad resets the gradients of the optimized parameters.
func (a *Adam) ZeroGrad() {
	for _, param := range a.params {
		param.Grad.Zero()
	}
}

// Step updates the parameters with their accumulated gradients.
func (a *Adam) Step() {
	a.stepCount++
	c := a.config
	correction1 := 1 - math.Pow(c.Beta1, float64(a.stepCount))
	correction2 := 1 - math.Pow(c.Beta2, float64(a.stepCount))
	for paramIdx, param := range a.params {
		values := param.Value.RawMatrix().Data
		grads := param.Grad.RawMatrix().Data
		m, v := a.m[paramIdx], a.v[paramIdx]
		for i, g := range grads {
			if c.WeightDecay != 0 {
				g += c.WeightDecay * values[i]
			}
			m[i] = c.Beta1*m[i] + (1-c.Beta1)*g
			v[i] = c.Beta2*v[i] + (1-c.Beta2)*g*g
			mHat := m[i] / correction1
			vHat := v[i] / correction2
			values[i] -= c.LearningRate * mHat / (math.Sqrt(vHat) + c.Epsilon)
		}
	}
}

// Steps is the number of updates applied so far.
func (a *Adam) Steps() int {
	return a.stepCount
}
