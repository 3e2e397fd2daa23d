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
	"math/rand/v2"
	"sync"
)

// DefaultPrefetchDepth is the number of batches staged ahead of the consumer.
const DefaultPrefetchDepth = 2

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Number of rows per batch. Must be positive.
	BatchSize int

	// Visit the rows in a fresh random order at each epoch.
	Shuffle bool

	// Number of batches assembled in the background ahead of the consumer.
	// Defaults to DefaultPrefetchDepth.
	PrefetchDepth int
}

// Loader iterates over a dataset in batches, assembling the next batches in a
// background goroutine while the current one is consumed.
//
// The row order of an epoch is drawn on the calling goroutine before the
// background work starts. The content of the epoch only depends on the
// dataset, the configuration and the random generator.
type Loader struct {
	ds     *Dataset
	rng    *rand.Rand
	config LoaderConfig
}

// NewLoader creates a loader. "rng" is only used if config.Shuffle is set.
func NewLoader(ds *Dataset, rng *rand.Rand, config LoaderConfig) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	if config.Shuffle && rng == nil {
		return nil, fmt.Errorf("a random generator is required to shuffle")
	}
	if config.PrefetchDepth <= 0 {
		config.PrefetchDepth = DefaultPrefetchDepth
	}
	return &Loader{ds: ds, rng: rng, config: config}, nil
}

// Len is the number of batches in an epoch.
func (l *Loader) Len() int {
	return (l.ds.Len() + l.config.BatchSize - 1) / l.config.BatchSize
}

// Epoch starts an epoch. The batches are delivered in order on the returned
// channel, which is closed at the end of the epoch. "stop" releases the
// background goroutine if the consumer does not drain the channel; it can be
// called any number of times.
func (l *Loader) Epoch() (batches <-chan *Batch, stop func()) {
	var rng *rand.Rand
	if l.config.Shuffle {
		rng = l.rng
	}
	order := l.ds.order(rng)

	out := make(chan *Batch, l.config.PrefetchDepth)
	done := make(chan struct{})
	var once sync.Once
	stop = func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(out)
		for beginIdx := 0; beginIdx < len(order); beginIdx += l.config.BatchSize {
			endIdx := min(beginIdx+l.config.BatchSize, len(order))
			batch := l.ds.gather(order[beginIdx:endIdx])
			select {
			case out <- batch:
			case <-done:
				return
			}
		}
	}()
	return out, stop
}
