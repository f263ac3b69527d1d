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
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxQueueSize is the number of bundles the queue holds before the
	// producer is held back.
	DefaultMaxQueueSize = 256
	// DefaultBundleSize is the number of lines per bundle.
	DefaultBundleSize = 2500
	// DefaultMaxLineBytes caps a single line; longer lines fail the source.
	DefaultMaxLineBytes = 1 << 20
)

// QueueOrder selects which end of the work queue workers take from.
type QueueOrder int

const (
	// FIFO hands out bundles in the order the producer queued them.
	FIFO QueueOrder = iota
	// LIFO hands out the most recently queued bundle first.
	LIFO
)

func (o QueueOrder) String() string {
	switch o {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	default:
		return "unknown"
	}
}

// ParseQueueOrder accepts "fifo" or "lifo" (case-insensitive).
func ParseQueueOrder(s string) (QueueOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	}
	return FIFO, errors.Wrapf(ErrInvalidConfig, "unknown queue order %q", s)
}

// ReadErrorPolicy decides what happens when a source fails after it was opened.
type ReadErrorPolicy int

const (
	// FailFast stops the run and leaves the global digests untouched.
	FailFast ReadErrorPolicy = iota
	// SkipSource keeps what was read so far and continues with the next source.
	SkipSource
)

func (p ReadErrorPolicy) String() string {
	switch p {
	case FailFast:
		return "fail"
	case SkipSource:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseReadErrorPolicy accepts "fail" or "skip" (case-insensitive).
func ParseReadErrorPolicy(s string) (ReadErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "failfast":
		return FailFast, nil
	case "skip":
		return SkipSource, nil
	}
	return FailFast, errors.Wrapf(ErrInvalidConfig, "unknown read error policy %q", s)
}

// Config holds the engine tunables. Changing a Config after New has no
// effect on the engine built from it.
type Config struct {
	// Threads is the number of workers. Must be at least 1.
	Threads int
	// MaxQueueSize is the soft bound on queued bundles. Must be at least 1.
	MaxQueueSize int
	// BundleSize is the number of lines per bundle. Must be at least 1.
	BundleSize int
	// MaxLineBytes caps the scanner buffer. Must be at least 1.
	MaxLineBytes int

	QueueOrder      QueueOrder
	ReadErrorPolicy ReadErrorPolicy
}

// DefaultConfig returns the defaults: one worker per usable CPU, 256 queued
// bundles of 2500 lines, FIFO removal and fail-fast reads.
func DefaultConfig() Config {
	return Config{
		Threads:      runtime.GOMAXPROCS(0),
		MaxQueueSize: DefaultMaxQueueSize,
		BundleSize:   DefaultBundleSize,
		MaxLineBytes: DefaultMaxLineBytes,
	}
}

// Validate reports the first out-of-range tunable.
func (c Config) Validate() error {
	switch {
	case c.Threads < 1:
		return errors.Wrapf(ErrInvalidConfig, "threads must be >= 1, got %d", c.Threads)
	case c.MaxQueueSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "max queue size must be >= 1, got %d", c.MaxQueueSize)
	case c.BundleSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "bundle size must be >= 1, got %d", c.BundleSize)
	case c.MaxLineBytes < 1:
		return errors.Wrapf(ErrInvalidConfig, "max line bytes must be >= 1, got %d", c.MaxLineBytes)
	}
	return nil
}

type options struct {
	cfg      Config
	log      logrus.FieldLogger
	registry prometheus.Registerer
}

// Option configures an Engine.
type Option func(*options)

// WithConfig replaces every tunable at once.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithThreads sets the number of workers.
func WithThreads(n int) Option {
	return func(o *options) { o.cfg.Threads = n }
}

// WithMaxQueueSize sets the soft bound on queued bundles.
func WithMaxQueueSize(n int) Option {
	return func(o *options) { o.cfg.MaxQueueSize = n }
}

// WithBundleSize sets the number of lines per bundle.
func WithBundleSize(n int) Option {
	return func(o *options) { o.cfg.BundleSize = n }
}

// WithMaxLineBytes sets the longest line a source may contain.
func WithMaxLineBytes(n int) Option {
	return func(o *options) { o.cfg.MaxLineBytes = n }
}

// WithQueueOrder sets the removal order of the work queue.
func WithQueueOrder(order QueueOrder) Option {
	return func(o *options) { o.cfg.QueueOrder = order }
}

// WithReadErrorPolicy sets how mid-run source failures are handled.
func WithReadErrorPolicy(p ReadErrorPolicy) Option {
	return func(o *options) { o.cfg.ReadErrorPolicy = p }
}

// WithLogger routes engine logs to log. The default is logrus' standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics registers the engine's Prometheus collectors on reg.
// Collectors already registered by another engine are shared.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}
