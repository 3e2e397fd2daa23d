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

	"gonum.org/v1/gonum/mat"
)

// Network is a sequence of layers.
//
// The device of a network is the device of its parameters. A network starts
// in training mode with gradient tracking enabled.
type Network struct {
	layers      []Layer
	training    bool
	gradEnabled bool

	// The last Forward recorded the inputs needed by Backward.
	tracked bool
}

// NewNetwork creates a network.
func NewNetwork(layers ...Layer) *Network {
	n := &Network{layers: layers, gradEnabled: true}
	n.Train()
	return n
}

// Layers returns the layers of the network.
func (n *Network) Layers() []Layer {
	return n.layers
}

// Train sets the network in training mode.
func (n *Network) Train() {
	n.setTraining(true)
}

// Eval sets the network in evaluation mode.
func (n *Network) Eval() {
	n.setTraining(false)
}

func (n *Network) setTraining(training bool) {
	n.training = training
	for _, layer := range n.layers {
		layer.SetTraining(training)
	}
}

// IsTraining tests if the network is in training mode.
func (n *Network) IsTraining() bool {
	return n.training
}

// SetGradEnabled enables or disables gradient tracking in Forward, and returns
// the previous value.
func (n *Network) SetGradEnabled(enabled bool) bool {
	previous := n.gradEnabled
	n.gradEnabled = enabled
	return previous
}

// Parameters returns the learnable parameters of all the layers.
func (n *Network) Parameters() []*Parameter {
	var params []*Parameter
	for _, layer := range n.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// Device is the device holding the parameters. A network without parameters
// lives on the CPU.
func (n *Network) Device() Device {
	for _, param := range n.Parameters() {
		return param.device
	}
	return CPU
}

// To moves the parameters to "device".
func (n *Network) To(device Device) error {
	if !device.Available() {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, device)
	}
	for _, param := range n.Parameters() {
		param.device = device
	}
	return nil
}

// ZeroGrad resets the accumulated gradients.
func (n *Network) ZeroGrad() {
	for _, param := range n.Parameters() {
		param.Grad.Zero()
	}
}

// Forward computes the output of the network.
func (n *Network) Forward(x *mat.Dense) (*mat.Dense, error) {
	n.tracked = n.gradEnabled
	output := x
	for layerIdx, layer := range n.layers {
		var err error
		output, err = layer.Forward(output, n.gradEnabled)
		if err != nil {
			n.tracked = false
			return nil, fmt.Errorf("layer #%d: %w", layerIdx, err)
		}
	}
	return output, nil
}

// Backward back-propagates the gradient of the loss with respect to the output
// of the last Forward, and accumulates the gradients of the parameters.
func (n *Network) Backward(grad *mat.Dense) error {
	if !n.tracked {
		return errNotTracked
	}
	for layerIdx := len(n.layers) - 1; layerIdx >= 0; layerIdx-- {
		var err error
		grad, err = n.layers[layerIdx].Backward(grad)
		if err != nil {
			return fmt.Errorf("layer #%d: %w", layerIdx, err)
		}
	}
	return nil
}

// Clone returns an independent copy of the network: parameters, gradients,
// random state and modes.
func (n *Network) Clone() *Network {
	clone := &Network{
		layers:      make([]Layer, len(n.layers)),
		training:    n.training,
		gradEnabled: n.gradEnabled,
	}
	for i, layer := range n.layers {
		clone.layers[i] = layer.Clone()
	}
	return clone
}
