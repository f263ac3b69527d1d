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
	"bufio"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"batchdigest/internal/telemetry"
)

// Source is one ordered, finite stream of lines.
//
// Check is called for every source before any worker starts and must report
// a source that cannot be opened. Open is called once per run, in list order.
type Source interface {
	Name() string
	Check() error
	Open() (io.ReadCloser, error)
}

// checkSources verifies every source and aggregates all failures, so the
// caller learns about every bad source at once.
func checkSources(sources []Source) error {
	var result *multierror.Error
	for _, s := range sources {
		if err := s.Check(); err != nil {
			result = multierror.Append(result, &SourceError{Source: s.Name(), Op: OpCheck, Err: err})
		}
	}
	return result.ErrorOrNil()
}

// producer reads sources in order on the calling goroutine, cuts the lines
// into bundles and feeds the queue. A bundle may span the end of one source
// and the start of the next; only the last partial bundle of a run is
// flushed short.
type producer struct {
	queue        *workQueue
	bundleSize   int
	maxLineBytes int
	policy       ReadErrorPolicy
	log          logrus.FieldLogger
	metrics      *telemetry.Collectors

	current bundle
	lines   int64
	bundles int64
	skipped []string
}

func newProducer(q *workQueue, cfg Config, log logrus.FieldLogger, metrics *telemetry.Collectors) *producer {
	return &producer{
		queue:        q,
		bundleSize:   cfg.BundleSize,
		maxLineBytes: cfg.MaxLineBytes,
		policy:       cfg.ReadErrorPolicy,
		log:          log,
		metrics:      metrics,
		current:      make(bundle, 0, cfg.BundleSize),
	}
}

// run feeds every source and flushes the final partial bundle. It returns
// errAborted if the queue was torn down underneath it.
func (p *producer) run(sources []Source) error {
	for _, src := range sources {
		log := p.log.WithField("source", src.Name())
		log.Debug("working on source")

		n, err := p.feed(src)
		if err != nil {
			if errors.Is(err, errAborted) {
				return err
			}
			p.metrics.ObserveSourceError()
			if p.policy == SkipSource {
				log.WithError(err).WithField("lines", n).Warn("skipping rest of source")
				p.skipped = append(p.skipped, src.Name())
				continue
			}
			return err
		}
		log.WithField("lines", n).Debug("done with source")
	}
	if len(p.current) > 0 {
		return p.push()
	}
	return nil
}

func (p *producer) feed(src Source) (int64, error) {
	rc, err := src.Open()
	if err != nil {
		return 0, &SourceError{Source: src.Name(), Op: OpOpen, Err: err}
	}
	defer rc.Close()

	var n int64
	scanner := bufio.NewScanner(rc)
	initial := 64 * 1024
	if initial > p.maxLineBytes {
		initial = p.maxLineBytes
	}
	scanner.Buffer(make([]byte, 0, initial), p.maxLineBytes)
	for scanner.Scan() {
		p.current = append(p.current, scanner.Text())
		n++
		p.lines++
		if len(p.current) >= p.bundleSize {
			if err := p.push(); err != nil {
				return n, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return n, &SourceError{Source: src.Name(), Op: OpRead, Err: err}
	}
	return n, nil
}

// push hands the current bundle to the queue and starts a new one.
func (p *producer) push() error {
	b := p.current
	p.current = make(bundle, 0, p.bundleSize)
	p.metrics.ObserveLines(len(b))
	if !p.queue.put(b) {
		return errAborted
	}
	p.bundles++
	p.metrics.ObserveBundle()
	return nil
}
