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
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"batchdigest/internal/telemetry"
)

// worker owns one private clone of every global digest for the duration of
// a run. Nothing else touches digests until the pool has been joined.
type worker[T any] struct {
	index   int
	queue   *workQueue
	filter  Filter[T]
	digests []Digest[T]
	log     logrus.FieldLogger
	metrics *telemetry.Collectors

	lines   int64
	bundles int64
}

// loop takes bundles until the queue is closed and drained (or aborted).
// Waiting for work happens inside take, so an idle worker sleeps on the
// queue's condition variable instead of polling.
func (w *worker[T]) loop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrContractViolation, "worker %d: panic while inserting: %v", w.index, r)
		}
	}()
	for {
		b, ok := w.queue.take()
		if !ok {
			return nil
		}
		w.process(b)
	}
}

// process applies the filter and inserts every line into every digest, in
// line order and global digest order.
func (w *worker[T]) process(b bundle) {
	for _, line := range b {
		v := w.filter(line)
		for _, d := range w.digests {
			d.Insert(v)
		}
	}
	w.lines += int64(len(b))
	w.bundles++
	w.metrics.ObserveWorkerLines(w.index, len(b))
}

// workerPool manages the lifecycle of a fixed set of workers sharing one queue.
type workerPool[T any] struct {
	workers []*worker[T]
	queue   *workQueue
	group   errgroup.Group
	started atomic.Bool
	log     logrus.FieldLogger
}

func newWorkerPool[T any](q *workQueue, filter Filter[T], private [][]Digest[T], log logrus.FieldLogger, metrics *telemetry.Collectors) *workerPool[T] {
	p := &workerPool[T]{queue: q, log: log}
	for i, digests := range private {
		p.workers = append(p.workers, &worker[T]{
			index:   i,
			queue:   q,
			filter:  filter,
			digests: digests,
			log:     log.WithField("worker", i),
			metrics: metrics,
		})
	}
	return p
}

// Start launches every worker. A worker that fails aborts the queue so that
// the producer and the other workers stop promptly. Calling Start twice is a no-op.
func (p *workerPool[T]) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.log.WithField("workers", len(p.workers)).Debug("starting workers")
	for _, w := range p.workers {
		w := w
		p.group.Go(func() error {
			err := w.loop()
			if err != nil {
				w.log.WithError(err).Error("worker failed")
				p.queue.abort()
			}
			return err
		})
	}
}

// Stop sets the quit flag and waits for every worker to terminate. Workers
// drain whatever is still queued before they exit. It returns the first
// worker error.
func (p *workerPool[T]) Stop() error {
	p.queue.close()
	return p.Wait()
}

// Wait joins the workers without setting the quit flag; used after the queue
// has been aborted.
func (p *workerPool[T]) Wait() error {
	err := p.group.Wait()
	p.log.Debug("workers stopped")
	return err
}

// lineCounts returns the number of lines each worker inserted. Only valid
// after Stop or Wait returned.
func (p *workerPool[T]) lineCounts() []int64 {
	out := make([]int64, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.lines
	}
	return out
}
