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
	"math/rand/v2"
	"testing"

	"github.com/opendataval/opendataval/port/go/utils/test"
)

func collect(batches <-chan *Batch) []*Batch {
	var all []*Batch
	for batch := range batches {
		all = append(all, batch)
	}
	return all
}

func TestLoader(t *testing.T) {
	ds := toyDataset(t, nil)
	loader, err := NewLoader(ds, nil, LoaderConfig{BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, loader.Len(), 3, "")

	batches, stop := loader.Epoch()
	defer stop()
	all := collect(batches)
	test.CheckEq(t, len(all), 3, "")
	expected := ds.Batches(2, nil)
	for i := range all {
		test.CheckNearMatrix(t, all[i].X, expected[i].X, 0, "")
		test.CheckNearMatrix(t, all[i].Y, expected[i].Y, 0, "")
	}
}

func TestLoaderMatchesBatches(t *testing.T) {
	ds := toyDataset(t, []float64{1, 2, 3, 4, 5})
	loader, err := NewLoader(ds, rand.New(rand.NewPCG(3, 4)), LoaderConfig{BatchSize: 2, Shuffle: true, PrefetchDepth: 1})
	if err != nil {
		t.Fatal(err)
	}
	expectedRNG := rand.New(rand.NewPCG(3, 4))
	for epoch := 0; epoch < 3; epoch++ {
		batches, stop := loader.Epoch()
		all := collect(batches)
		stop()
		expected := ds.Batches(2, expectedRNG)
		test.CheckEq(t, len(all), len(expected), "")
		for i := range all {
			test.CheckNearMatrix(t, all[i].X, expected[i].X, 0, "")
			test.CheckEq(t, all[i].Weights, expected[i].Weights, "")
		}
	}
}

func TestLoaderStopEarly(t *testing.T) {
	ds := toyDataset(t, nil)
	loader, err := NewLoader(ds, nil, LoaderConfig{BatchSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	batches, stop := loader.Epoch()
	<-batches
	stop()
	stop()
	// The channel is closed once the producer observes the stop.
	for range batches {
	}
}

func TestLoaderEmpty(t *testing.T) {
	ds, err := New(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	loader, err := NewLoader(ds, nil, LoaderConfig{BatchSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, loader.Len(), 0, "")
	batches, stop := loader.Epoch()
	defer stop()
	test.CheckEq(t, len(collect(batches)), 0, "")
}

func TestNewLoaderErrors(t *testing.T) {
	ds := toyDataset(t, nil)
	if _, err := NewLoader(nil, nil, LoaderConfig{BatchSize: 1}); err == nil {
		t.Error("expected an error for a nil dataset")
	}
	if _, err := NewLoader(ds, nil, LoaderConfig{BatchSize: 0}); err == nil {
		t.Error("expected an error for a zero batch size")
	}
	if _, err := NewLoader(ds, nil, LoaderConfig{BatchSize: 1, Shuffle: true}); err == nil {
		t.Error("expected an error for shuffling without generator")
	}
}
