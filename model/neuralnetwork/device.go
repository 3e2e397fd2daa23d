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
	"fmt"

	"github.com/opendataval/opendataval/port/go/dataset"
)

// ErrDeviceUnavailable is returned when moving data or parameters to a device
// that is not available in this build.
var ErrDeviceUnavailable = errors.New("neuralnetwork: device unavailable")

// Device is a compute device holding parameters and batches.
type Device int32

const (
	// CPU is the host memory. Always available.
	CPU Device = 0
	// GPU is an accelerator.
	GPU Device = 1
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	}
	return fmt.Sprintf("device(%d)", int32(d))
}

// Available tests if the device can hold data.
func (d Device) Available() bool {
	return d == CPU
}

// toDevice moves a batch to a device.
func toDevice(batch *dataset.Batch, device Device) (*dataset.Batch, error) {
	if !device.Available() {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, device)
	}
	return batch, nil
}
