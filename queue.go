// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batchdigest

import (
	"sync"

	"batchdigest/internal/telemetry"
)

// bundle is a batch of lines. It is owned by exactly one party at a time:
// the producer while filling it, the queue while enqueued, one worker while
// inserting it.
type bundle []string

// workQueue is the single buffer shared by the producer and every worker.
// All state is guarded by mu; notEmpty wakes takers and notFull wakes the
// producer. The capacity is soft: put appends first and only then waits for
// the queue to drain to maxSize, so the length never exceeds maxSize+1.
type workQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	bundles []bundle
	maxSize int
	order   QueueOrder

	// closed is the quit flag: takers drain what is left and then stop.
	closed bool
	// aborted drops queued work and releases every waiter immediately.
	aborted bool

	peak  int
	waits int64

	metrics *telemetry.Collectors
}

func newWorkQueue(maxSize int, order QueueOrder, metrics *telemetry.Collectors) *workQueue {
	q := &workQueue{maxSize: maxSize, order: order, metrics: metrics}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// put enqueues b and then holds the caller while the queue is over capacity.
// It returns false if the queue was aborted, in which case b was dropped.
func (q *workQueue) put(b bundle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.aborted {
		return false
	}
	q.bundles = append(q.bundles, b)
	if n := len(q.bundles); n > q.peak {
		q.peak = n
	}
	q.metrics.SetQueueDepth(len(q.bundles))
	q.notEmpty.Signal()

	held := false
	for len(q.bundles) > q.maxSize && !q.aborted {
		if !held {
			held = true
			q.waits++
			q.metrics.ObserveProducerWait()
		}
		q.notFull.Wait()
	}
	return !q.aborted
}

// take blocks until a bundle is available and removes it. It returns false
// once the queue is closed and empty, or as soon as it is aborted.
func (q *workQueue) take() (bundle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.bundles) == 0 && !q.closed && !q.aborted {
		q.notEmpty.Wait()
	}
	if q.aborted || len(q.bundles) == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// tryTake is the non-blocking form of take: false means nothing is ready.
func (q *workQueue) tryTake() (bundle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.aborted || len(q.bundles) == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

func (q *workQueue) popLocked() bundle {
	var b bundle
	last := len(q.bundles) - 1
	if q.order == LIFO {
		b = q.bundles[last]
		q.bundles[last] = nil
		q.bundles = q.bundles[:last]
	} else {
		b = q.bundles[0]
		q.bundles[0] = nil
		q.bundles = q.bundles[1:]
	}
	q.metrics.SetQueueDepth(len(q.bundles))
	if len(q.bundles) <= q.maxSize {
		q.notFull.Broadcast()
	}
	return b
}

func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bundles)
}

// close sets the quit flag. Bundles already queued are still handed out.
func (q *workQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}

// abort drops queued bundles and wakes the producer and all workers.
func (q *workQueue) abort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.aborted = true
	q.bundles = nil
	q.metrics.SetQueueDepth(0)
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// snapshot returns the peak length and the number of times put held the producer.
func (q *workQueue) snapshot() (peak int, waits int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.peak, q.waits
}
