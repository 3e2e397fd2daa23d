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
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/opendataval/opendataval/port/go/dataset"
	"github.com/opendataval/opendataval/port/go/utils/test"
	"gonum.org/v1/gonum/mat"
)

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return m
}

// checkGradients compares the analytic gradients of the parameters with
// central finite differences.
func checkGradients(t *testing.T, net *Network, loss Loss, x, target *mat.Dense) {
	t.Helper()
	net.ZeroGrad()
	output, err := net.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	_, grad, err := Evaluate(loss, output, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := net.Backward(grad); err != nil {
		t.Fatal(err)
	}

	value := func() float64 {
		output, err := net.Forward(x)
		if err != nil {
			t.Fatal(err)
		}
		v, _, err := Evaluate(loss, output, target, nil)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	const delta = 1e-6
	for paramIdx, param := range net.Parameters() {
		values := param.Value.RawMatrix().Data
		grads := param.Grad.RawMatrix().Data
		for i := range values {
			original := values[i]
			values[i] = original + delta
			plus := value()
			values[i] = original - delta
			minus := value()
			values[i] = original
			numeric := (plus - minus) / (2 * delta)
			if math.Abs(numeric-grads[i]) > 1e-5 {
				t.Errorf("parameter #%d[%d]: analytic gradient %v, numeric %v", paramIdx, i, grads[i], numeric)
			}
		}
	}
}

func TestGradientsCrossEntropy(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	net := NewNetwork(NewLinear(3, 4, rng), &ReLU{}, NewLinear(4, 3, rng))
	x := randomDense(rng, 5, 3)
	target := mat.NewDense(5, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
	})
	checkGradients(t, net, CrossEntropy{}, x, target)
}

func TestGradientsBinaryCrossEntropy(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	net := NewNetwork(NewLinear(2, 3, rng), &ReLU{}, NewLinear(3, 2, rng), &Softmax{})
	x := randomDense(rng, 4, 2)
	target := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		0, 1,
		1, 0,
	})
	checkGradients(t, net, BinaryCrossEntropy{}, x, target)
}

func TestGradientsMeanSquaredError(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	net := NewNetwork(NewLinear(2, 3, rng), &ReLU{}, NewLinear(3, 1, rng))
	x := randomDense(rng, 6, 2)
	target := randomDense(rng, 6, 1)
	checkGradients(t, net, MeanSquaredError{}, x, target)
}

func TestLinearInit(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	l := NewLinear(10, 20, rng)
	bound := math.Sqrt(6.0 / 30)
	for _, w := range l.Weight.Value.RawMatrix().Data {
		if math.Abs(w) > bound {
			t.Fatalf("weight %v outside of [-%v, %v]", w, bound, bound)
		}
	}
	test.CheckEq(t, l.Bias.Value.RawMatrix().Data, make([]float64, 20), "")

	if _, err := l.Forward(mat.NewDense(1, 3, nil), false); !errors.Is(err, dataset.ErrShapeMismatch) {
		t.Errorf("expected a shape error, got %v", err)
	}
}

func TestDropout(t *testing.T) {
	d := NewDropout(0.5, rand.NewPCG(1, 1))
	x := mat.NewDense(10, 10, nil)
	x.Apply(func(_, _ int, _ float64) float64 { return 1 }, x)

	output, err := d.Forward(x, true)
	if err != nil {
		t.Fatal(err)
	}
	zeros := 0
	for _, v := range output.RawMatrix().Data {
		switch v {
		case 0:
			zeros++
		case 2:
		default:
			t.Fatalf("unexpected value %v", v)
		}
	}
	if zeros == 0 || zeros == 100 {
		t.Errorf("%d zeros out of 100", zeros)
	}

	// The clone draws the same masks.
	clone := d.Clone()
	a, _ := d.Forward(x, false)
	b, _ := clone.Forward(x, false)
	test.CheckEq(t, b.RawMatrix().Data, a.RawMatrix().Data, "")

	d.SetTraining(false)
	output, _ = d.Forward(x, true)
	test.CheckNearMatrix(t, output, x, 0, "")
}

func TestSoftmax(t *testing.T) {
	s := &Softmax{}
	output, err := s.Forward(mat.NewDense(2, 3, []float64{0, 0, 0, 1, 2, 3}), false)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckNearSlice(t, output.RawRowView(0), []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, 1e-12, "")
	e := []float64{1, math.E, math.E * math.E}
	sum := e[0] + e[1] + e[2]
	test.CheckNearSlice(t, output.RawRowView(1), []float64{e[0] / sum, e[1] / sum, e[2] / sum}, 1e-12, "")
}

func TestBackwardWithoutForward(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	net := NewNetwork(NewLinear(1, 1, rng))
	if err := net.Backward(mat.NewDense(1, 1, nil)); err == nil {
		t.Error("expected an error")
	}
	previous := net.SetGradEnabled(false)
	test.CheckEq(t, previous, true, "")
	if _, err := net.Forward(mat.NewDense(1, 1, nil)); err != nil {
		t.Fatal(err)
	}
	if err := net.Backward(mat.NewDense(1, 1, nil)); err == nil {
		t.Error("expected an error after an untracked forward pass")
	}
}

func TestModes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	dropout := NewDropout(0.1, rand.NewPCG(1, 2))
	net := NewNetwork(NewLinear(1, 1, rng), dropout)
	test.CheckEq(t, net.IsTraining(), true, "")
	net.Eval()
	test.CheckEq(t, net.IsTraining(), false, "")
	test.CheckEq(t, dropout.training, false, "")
	net.Train()
	test.CheckEq(t, dropout.training, true, "")
}

func TestDevice(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	net := NewNetwork(NewLinear(1, 1, rng))
	test.CheckEq(t, net.Device(), CPU, "")
	test.CheckEq(t, net.Device().String(), "cpu", "")
	if err := net.To(GPU); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("got %v, expected %v", err, ErrDeviceUnavailable)
	}
	if err := net.To(CPU); err != nil {
		t.Error(err)
	}
}
