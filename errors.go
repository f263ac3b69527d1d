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
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig is returned by Run when a tunable is out of range.
	ErrInvalidConfig = errors.New("batchdigest: invalid configuration")

	// ErrContractViolation marks a digest or filter that broke the
	// Clone/Insert/Merge contract: a nil clone, an incompatible merge, or a
	// panic raised while inserting.
	ErrContractViolation = errors.New("batchdigest: digest contract violation")

	// ErrRunning is returned when Run is called on an engine that is already running.
	ErrRunning = errors.New("batchdigest: engine is already running")

	// errAborted is the producer's signal that the queue was torn down by a
	// failing worker. The worker's error is the one reported to the caller.
	errAborted = errors.New("batchdigest: work queue aborted")
)

// Source operations reported in SourceError.Op.
const (
	OpCheck = "check"
	OpOpen  = "open"
	OpRead  = "read"
)

// SourceError reports a source that could not be checked, opened or read.
type SourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q: %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
