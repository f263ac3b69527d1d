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
	"reflect"

	"github.com/pkg/errors"
)

// Digest is a reduction target the engine can parallelize.
//
// Clone returns an independent instance with the same configuration and no
// accumulated state. The engine gives every worker its own clone, so Insert
// is only ever called from one goroutine at a time and needs no locking.
// Clone must not copy accumulated state: the clones are merged back into
// the global after the run, so a clone that deep-copies the global counts
// whatever the global held before the run once more per worker.
//
// Merge folds other into the receiver. It must be associative and
// commutative over the clones of one run: the engine makes no promise about
// which worker sees which bundle, nor in which order bundles are handed out.
// Merge returns an error when other was not produced by Clone on a compatible
// instance.
type Digest[T any] interface {
	Clone() Digest[T]
	Insert(v T)
	Merge(other Digest[T]) error
}

// Filter maps a raw line to the value the digests consume. It runs
// concurrently on every worker and must be a pure function of its input.
type Filter[T any] func(line string) T

// Identity is the default filter of line engines.
func Identity(line string) string { return line }

// cloneAll returns n private copies of every digest in globals, index-aligned
// with globals. Each clone is checked against its global with a throwaway
// merge so that an incompatible clone is reported before any worker starts.
func cloneAll[T any](globals []Digest[T], n int) ([][]Digest[T], error) {
	private := make([][]Digest[T], n)
	for i := range private {
		private[i] = make([]Digest[T], len(globals))
	}
	for j, g := range globals {
		scratch := g.Clone()
		if isNil(scratch) {
			return nil, errors.Wrapf(ErrContractViolation, "digest %d (%T): Clone returned nil", j, g)
		}
		for i := 0; i < n; i++ {
			c := g.Clone()
			if isNil(c) {
				return nil, errors.Wrapf(ErrContractViolation, "digest %d (%T): Clone returned nil", j, g)
			}
			if err := scratch.Merge(c); err != nil {
				return nil, errors.Wrapf(ErrContractViolation, "digest %d (%T): clone is not mergeable: %v", j, g, err)
			}
			private[i][j] = c
		}
	}
	return private, nil
}

// mergeAll folds every worker's private digests into globals, worker by
// worker in index order.
func mergeAll[T any](globals []Digest[T], private [][]Digest[T]) error {
	for i, digests := range private {
		for j, d := range digests {
			if err := globals[j].Merge(d); err != nil {
				return errors.Wrapf(ErrContractViolation, "merging worker %d into digest %d (%T): %v", i, j, globals[j], err)
			}
		}
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
