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

// Package report renders the end-of-run summary printed by the command line
// tool: the configured run parameters and the statistics of the run.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"batchdigest"
)

// Summary collects human-readable run parameters for the final printout.
// It is safe for concurrent use.
type Summary struct {
	// Color wraps the output in yellow ANSI escapes.
	Color bool

	mu     sync.RWMutex
	params map[string]string
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{params: make(map[string]string)}
}

// Set records a parameter; a later Set with the same name wins.
func (s *Summary) Set(name, value string) {
	s.mu.Lock()
	s.params[name] = value
	s.mu.Unlock()
}

func (s *Summary) SetInt(name string, v int) { s.Set(name, fmt.Sprintf("%d", v)) }
func (s *Summary) SetInt64(name string, v int64) { s.Set(name, fmt.Sprintf("%d", v)) }
func (s *Summary) SetBool(name string, b bool) { s.Set(name, fmt.Sprintf("%t", b)) }

// SetConfig records every engine tunable.
func (s *Summary) SetConfig(cfg batchdigest.Config) {
	s.SetInt("threads", cfg.Threads)
	s.SetInt("max_queue_size", cfg.MaxQueueSize)
	s.SetInt("bundle_size", cfg.BundleSize)
	s.SetInt("max_line_bytes", cfg.MaxLineBytes)
	s.Set("queue_order", cfg.QueueOrder.String())
	s.Set("on_read_error", cfg.ReadErrorPolicy.String())
}

// snapshot returns a copy of the parameters for stable iteration.
func (s *Summary) snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// Print writes the run statistics followed by the parameters as two
// columnar tables.
func (s *Summary) Print(w io.Writer, stats batchdigest.RunStats) error {
	params := s.snapshot()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	sep := strings.Repeat("-", 60)
	if s.Color {
		b.WriteString("\x1b[33m")
	}
	fmt.Fprintf(&b, "Run %s finished in %s\n", stats.RunID, stats.Elapsed.Round(time.Microsecond))
	fmt.Fprintln(&b, sep)
	fmt.Fprintf(&b, "%-18s %12s\n", "Metric", "Value")
	fmt.Fprintln(&b, sep)
	fmt.Fprintf(&b, "%-18s %12d\n", "Sources", stats.Sources)
	fmt.Fprintf(&b, "%-18s %12d\n", "Lines", stats.Lines)
	fmt.Fprintf(&b, "%-18s %12d\n", "Bundles", stats.Bundles)
	fmt.Fprintf(&b, "%-18s %12d\n", "Peak queue", stats.PeakQueueLen)
	fmt.Fprintf(&b, "%-18s %12d\n", "Producer waits", stats.ProducerWaits)
	fmt.Fprintf(&b, "%-18s %12s\n", "Lines/sec", rate(stats.Lines, stats.Elapsed))
	for i, n := range stats.WorkerLines {
		fmt.Fprintf(&b, "%-18s %12d\n", fmt.Sprintf("Worker %d lines", i), n)
	}
	fmt.Fprintln(&b, sep)

	if len(stats.SkippedSources) > 0 {
		fmt.Fprintln(&b, "Skipped sources")
		fmt.Fprintln(&b, sep)
		for _, name := range stats.SkippedSources {
			fmt.Fprintln(&b, name)
		}
		fmt.Fprintln(&b, sep)
	}

	if len(keys) > 0 {
		fmt.Fprintln(&b, "Configured parameters")
		fmt.Fprintln(&b, sep)
		fmt.Fprintf(&b, "%-30s %24s\n", "Name", "Value")
		fmt.Fprintln(&b, sep)
		for _, k := range keys {
			fmt.Fprintf(&b, "%-30s %24s\n", k, params[k])
		}
		fmt.Fprintln(&b, sep)
	}
	if s.Color {
		b.WriteString("\x1b[0m")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func rate(lines int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", float64(lines)/elapsed.Seconds())
}
