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
	"cmp"
	"slices"

	"github.com/pkg/errors"

	"batchdigest"
)

// Frequency counts occurrences per distinct value.
type Frequency[K cmp.Ordered] struct {
	counts map[K]int64
}

// NewFrequency returns an empty frequency table.
func NewFrequency[K cmp.Ordered]() *Frequency[K] {
	return &Frequency[K]{counts: make(map[K]int64)}
}

func (f *Frequency[K]) Clone() batchdigest.Digest[K] { return NewFrequency[K]() }

func (f *Frequency[K]) Insert(k K) { f.counts[k]++ }

func (f *Frequency[K]) Merge(other batchdigest.Digest[K]) error {
	o, ok := other.(*Frequency[K])
	if !ok {
		return errors.Wrapf(ErrIncompatible, "frequency cannot merge %T", other)
	}
	for k, n := range o.counts {
		f.counts[k] += n
	}
	return nil
}

// Count returns how often k was inserted.
func (f *Frequency[K]) Count(k K) int64 { return f.counts[k] }

// Len returns the number of distinct values.
func (f *Frequency[K]) Len() int { return len(f.counts) }

// Total returns the number of inserted values.
func (f *Frequency[K]) Total() int64 {
	var t int64
	for _, n := range f.counts {
		t += n
	}
	return t
}

// Entry is one row of a frequency table.
type Entry[K cmp.Ordered] struct {
	Key   K     `json:"key"`
	Count int64 `json:"count"`
}

// Top returns the n most frequent values, ties broken by ascending key.
// n <= 0 returns every value.
func (f *Frequency[K]) Top(n int) []Entry[K] {
	out := make([]Entry[K], 0, len(f.counts))
	for k, c := range f.counts {
		out = append(out, Entry[K]{Key: k, Count: c})
	}
	slices.SortFunc(out, func(a, b Entry[K]) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// FrequencySnapshot is the JSON form of a Frequency.
type FrequencySnapshot[K cmp.Ordered] struct {
	Distinct int        `json:"distinct"`
	Total    int64      `json:"total"`
	Entries  []Entry[K] `json:"entries"`
}

func (f *Frequency[K]) Snapshot() any {
	return FrequencySnapshot[K]{Distinct: f.Len(), Total: f.Total(), Entries: f.Top(0)}
}
