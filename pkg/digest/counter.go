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

// Package digest is the set of built-in digests for the batch engine:
// Counter, Frequency, Histogram and Summary. Each one clones to an empty
// twin with the same configuration and merges by addition (or min/max), so
// results do not depend on how bundles were spread over workers.
package digest

import (
	"github.com/pkg/errors"

	"batchdigest"
)

// ErrIncompatible is returned by Merge when the other digest has a different
// type or configuration.
var ErrIncompatible = errors.New("digest: incompatible merge")

// Counter counts inserted values.
type Counter[T any] struct {
	n int64
}

// NewCounter returns an empty counter.
func NewCounter[T any]() *Counter[T] { return &Counter[T]{} }

func (c *Counter[T]) Clone() batchdigest.Digest[T] { return &Counter[T]{} }

func (c *Counter[T]) Insert(T) { c.n++ }

func (c *Counter[T]) Merge(other batchdigest.Digest[T]) error {
	o, ok := other.(*Counter[T])
	if !ok {
		return errors.Wrapf(ErrIncompatible, "counter cannot merge %T", other)
	}
	c.n += o.n
	return nil
}

// Count returns the number of inserted values.
func (c *Counter[T]) Count() int64 { return c.n }

// CounterSnapshot is the JSON form of a Counter.
type CounterSnapshot struct {
	Count int64 `json:"count"`
}

func (c *Counter[T]) Snapshot() any { return CounterSnapshot{Count: c.n} }
