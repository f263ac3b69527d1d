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
	"github.com/pkg/errors"

	"batchdigest"
)

// Summary tracks count, sum, min and max of integer values. Integer sums
// keep Merge exact in any order, which a float sum would not.
type Summary struct {
	count    int64
	sum      int64
	min, max int64
}

// NewSummary returns an empty summary.
func NewSummary() *Summary { return &Summary{} }

func (s *Summary) Clone() batchdigest.Digest[int64] { return &Summary{} }

func (s *Summary) Insert(v int64) {
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.count++
	s.sum += v
}

func (s *Summary) Merge(other batchdigest.Digest[int64]) error {
	o, ok := other.(*Summary)
	if !ok {
		return errors.Wrapf(ErrIncompatible, "summary cannot merge %T", other)
	}
	if o.count == 0 {
		return nil
	}
	if s.count == 0 || o.min < s.min {
		s.min = o.min
	}
	if s.count == 0 || o.max > s.max {
		s.max = o.max
	}
	s.count += o.count
	s.sum += o.sum
	return nil
}

func (s *Summary) Count() int64 { return s.count }
func (s *Summary) Sum() int64 { return s.sum }

// Min and Max are zero when nothing was inserted.
func (s *Summary) Min() int64 { return s.min }
func (s *Summary) Max() int64 { return s.max }

// Mean returns sum/count, or 0 for an empty summary.
func (s *Summary) Mean() float64 {
	if s.count == 0 {
		return 0
	}
	return float64(s.sum) / float64(s.count)
}

// SummarySnapshot is the JSON form of a Summary.
type SummarySnapshot struct {
	Count int64   `json:"count"`
	Sum   int64   `json:"sum"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Mean  float64 `json:"mean"`
}

func (s *Summary) Snapshot() any {
	return SummarySnapshot{Count: s.count, Sum: s.sum, Min: s.min, Max: s.max, Mean: s.Mean()}
}
