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

// Package batchdigest provides a parallel batch engine for line-oriented
// input. The engine reads an ordered list of sources, cuts their lines into
// fixed-size bundles, hands the bundles to a fixed pool of workers through a
// bounded queue, and folds the workers' private digests into the caller's
// global digests once every worker has finished.
//
// Any reduction whose Merge is associative and commutative can be plugged
// in: counters, histograms, frequency tables, indexes. See pkg/digest for
// the built-in digests and pkg/filter for the built-in line filters.
package batchdigest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"batchdigest/internal/telemetry"
	"batchdigest/pkg/source"
)

// RunStats describes a finished run.
type RunStats struct {
	RunID   string
	Sources int
	// Lines is the number of lines read; on success every digest received
	// exactly this many inserts.
	Lines   int64
	Bundles int64
	// ProducerWaits counts how often the producer was held back by a full queue.
	ProducerWaits int64
	PeakQueueLen  int
	// WorkerLines is index-aligned with the workers.
	WorkerLines    []int64
	SkippedSources []string
	Elapsed        time.Duration
}

// Engine runs digests over sources. Register digests and sources, then call
// Run; the globals hold the merged result once Run returns nil.
type Engine[T any] struct {
	cfg     Config
	filter  Filter[T]
	log     logrus.FieldLogger
	metrics *telemetry.Collectors

	digests []Digest[T]
	sources []Source

	running atomic.Bool
}

// New creates an engine whose digests consume filter(line). filter must not
// be nil.
func New[T any](filter Filter[T], opts ...Option) *Engine[T] {
	o := options{cfg: DefaultConfig(), log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine[T]{cfg: o.cfg, filter: filter, log: o.log}
	if o.registry != nil {
		metrics, err := telemetry.NewCollectors(o.registry)
		if err != nil {
			e.log.WithError(err).Warn("engine metrics disabled")
		} else {
			e.metrics = metrics
		}
	}
	return e
}

// NewLines creates an engine whose digests consume raw lines.
func NewLines(opts ...Option) *Engine[string] {
	return New[string](Identity, opts...)
}

// Config returns the tunables the engine was built with.
func (e *Engine[T]) Config() Config { return e.cfg }

// AddDigest registers a global digest. The digest must not be used by the
// caller while Run is in progress.
func (e *Engine[T]) AddDigest(d Digest[T]) {
	e.digests = append(e.digests, d)
}

// AddSource appends sources to the run list. Sources are read in the order
// they were added.
func (e *Engine[T]) AddSource(s ...Source) {
	e.sources = append(e.sources, s...)
}

// AddFiles registers files as sources. Every file is checked for readability
// now; if any of them fails, none is added and the failures are returned
// together as *SourceError values.
func (e *Engine[T]) AddFiles(paths ...string) error {
	var result *multierror.Error
	files := make([]Source, 0, len(paths))
	for _, p := range paths {
		f := source.NewFile(p)
		if err := f.Check(); err != nil {
			result = multierror.Append(result, &SourceError{Source: f.Name(), Op: OpCheck, Err: err})
			continue
		}
		files = append(files, f)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	e.sources = append(e.sources, files...)
	return nil
}

// Run processes every source once and merges the result into the global
// digests. It returns after all workers have stopped.
//
// Invalid tunables, unreadable sources and clone contract violations are
// reported before any worker starts. A failure during the run (a source
// that breaks under FailFast, or a digest that panics) is returned after
// the workers have been joined; in both cases the global digests are left
// exactly as they were before the call.
func (e *Engine[T]) Run(ctx context.Context) (stats RunStats, err error) {
	if !e.running.CompareAndSwap(false, true) {
		return RunStats{}, ErrRunning
	}
	defer e.running.Store(false)

	start := time.Now()
	stats = RunStats{RunID: uuid.NewString(), Sources: len(e.sources)}
	log := e.log.WithField("run_id", stats.RunID).WithContext(ctx)
	defer func() {
		stats.Elapsed = time.Since(start)
		e.metrics.ObserveRun(stats.Elapsed, err)
	}()

	if err := e.cfg.Validate(); err != nil {
		return stats, err
	}
	if e.filter == nil {
		return stats, errors.Wrap(ErrContractViolation, "nil filter")
	}
	if err := checkSources(e.sources); err != nil {
		return stats, err
	}
	private, err := cloneAll(e.digests, e.cfg.Threads)
	if err != nil {
		return stats, err
	}

	log.WithFields(logrus.Fields{
		"sources": len(e.sources),
		"digests": len(e.digests),
		"threads": e.cfg.Threads,
		"bundle":  e.cfg.BundleSize,
		"queue":   e.cfg.MaxQueueSize,
		"order":   e.cfg.QueueOrder.String(),
	}).Debug("starting run")

	q := newWorkQueue(e.cfg.MaxQueueSize, e.cfg.QueueOrder, e.metrics)
	pool := newWorkerPool(q, e.filter, private, log, e.metrics)
	pool.Start()

	prod := newProducer(q, e.cfg, log, e.metrics)
	produceErr := prod.run(e.sources)

	var workerErr error
	if produceErr != nil && !errors.Is(produceErr, errAborted) {
		q.abort()
		workerErr = pool.Wait()
	} else {
		workerErr = pool.Stop()
	}

	stats.Lines = prod.lines
	stats.Bundles = prod.bundles
	stats.SkippedSources = prod.skipped
	stats.PeakQueueLen, stats.ProducerWaits = q.snapshot()
	stats.WorkerLines = pool.lineCounts()

	switch {
	case workerErr != nil:
		return stats, workerErr
	case produceErr != nil:
		return stats, produceErr
	}

	if err := mergeAll(e.digests, private); err != nil {
		return stats, err
	}
	log.WithFields(logrus.Fields{
		"lines":   stats.Lines,
		"bundles": stats.Bundles,
		"waits":   stats.ProducerWaits,
	}).Debug("run complete")
	return stats, nil
}
