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

package digest

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"batchdigest"
)

// Histogram bins base-10 integers parsed from lines into equal-width bins
// over [min, max). The bin width is (max-min)/bins with integer division;
// the last bin also takes the remainder up to max. Every line ends up in
// exactly one of the bins, Underflow, Overflow or Invalid.
type Histogram struct {
	min, max int64
	delta    int64
	counts   []int64

	underflow int64
	overflow  int64
	invalid   int64
}

// NewHistogram returns an empty histogram. It fails if bins < 1, max <= min,
// max-min does not fit in an int64, or the range is narrower than the number
// of bins.
func NewHistogram(min, max int64, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, errors.Errorf("histogram: bins must be >= 1, got %d", bins)
	}
	if max <= min {
		return nil, errors.Errorf("histogram: max (%d) must be greater than min (%d)", max, min)
	}
	if min < 0 && max > min+math.MaxInt64 {
		return nil, errors.Errorf("histogram: range [%d, %d) is wider than an int64", min, max)
	}
	delta := (max - min) / int64(bins)
	if delta == 0 {
		return nil, errors.Errorf("histogram: range [%d, %d) is narrower than %d bins", min, max, bins)
	}
	return &Histogram{min: min, max: max, delta: delta, counts: make([]int64, bins)}, nil
}

func (h *Histogram) Clone() batchdigest.Digest[string] {
	return &Histogram{min: h.min, max: h.max, delta: h.delta, counts: make([]int64, len(h.counts))}
}

func (h *Histogram) Insert(line string) {
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		h.invalid++
		return
	}
	h.Observe(v)
}

// Observe adds a value directly, bypassing parsing.
func (h *Histogram) Observe(v int64) {
	switch {
	case v < h.min:
		h.underflow++
	case v >= h.max:
		h.overflow++
	default:
		bin := (v - h.min) / h.delta
		if last := int64(len(h.counts) - 1); bin > last {
			bin = last
		}
		h.counts[bin]++
	}
}

func (h *Histogram) Merge(other batchdigest.Digest[string]) error {
	o, ok := other.(*Histogram)
	if !ok {
		return errors.Wrapf(ErrIncompatible, "histogram cannot merge %T", other)
	}
	if o.min != h.min || o.max != h.max || len(o.counts) != len(h.counts) {
		return errors.Wrapf(ErrIncompatible, "histogram [%d,%d)/%d cannot merge [%d,%d)/%d",
			h.min, h.max, len(h.counts), o.min, o.max, len(o.counts))
	}
	for i, n := range o.counts {
		h.counts[i] += n
	}
	h.underflow += o.underflow
	h.overflow += o.overflow
	h.invalid += o.invalid
	return nil
}

// Bin is one histogram bucket; Lower is its inclusive lower edge.
type Bin struct {
	Lower int64 `json:"lower"`
	Count int64 `json:"count"`
}

// Bins returns a copy of the buckets in ascending order.
func (h *Histogram) Bins() []Bin {
	out := make([]Bin, len(h.counts))
	for i, n := range h.counts {
		out[i] = Bin{Lower: h.min + int64(i)*h.delta, Count: n}
	}
	return out
}

func (h *Histogram) Underflow() int64 { return h.underflow }
func (h *Histogram) Overflow() int64 { return h.overflow }
func (h *Histogram) Invalid() int64 { return h.invalid }

// Total returns the number of inserted lines, including out-of-range and
// invalid ones.
func (h *Histogram) Total() int64 {
	t := h.underflow + h.overflow + h.invalid
	for _, n := range h.counts {
		t += n
	}
	return t
}

// Print writes one "[lower]: count" line per bin.
func (h *Histogram) Print(w io.Writer) error {
	for _, b := range h.Bins() {
		if _, err := fmt.Fprintf(w, "[%d]: %d\n", b.Lower, b.Count); err != nil {
			return err
		}
	}
	return nil
}

// HistogramSnapshot is the JSON form of a Histogram.
type HistogramSnapshot struct {
	Min       int64 `json:"min"`
	Max       int64 `json:"max"`
	Bins      []Bin `json:"bins"`
	Underflow int64 `json:"underflow"`
	Overflow  int64 `json:"overflow"`
	Invalid   int64 `json:"invalid"`
}

func (h *Histogram) Snapshot() any {
	return HistogramSnapshot{
		Min:       h.min,
		Max:       h.max,
		Bins:      h.Bins(),
		Underflow: h.underflow,
		Overflow:  h.overflow,
		Invalid:   h.invalid,
	}
}
