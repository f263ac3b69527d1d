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

// Package sinks writes final digest snapshots as JSON lines.
package sinks

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Snapshotter is implemented by digests that can describe their merged state
// as a JSON-encodable value.
type Snapshotter interface {
	Snapshot() any
}

// Record is one line of the output file.
type Record struct {
	RunID  string          `json:"run_id"`
	Digest string          `json:"digest"`
	Time   time.Time       `json:"time"`
	State  json.RawMessage `json:"state"`
}

// NewRecord encodes the snapshot of d into a record.
func NewRecord(runID, name string, d Snapshotter) (Record, error) {
	state, err := json.Marshal(d.Snapshot())
	if err != nil {
		return Record{}, errors.Wrapf(err, "encoding snapshot of %s", name)
	}
	return Record{RunID: runID, Digest: name, Time: time.Now().UTC(), State: state}, nil
}

// JSONLSink is a buffered, append-only JSONL writer. It is safe for
// concurrent use.
type JSONLSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// NewJSONLSink opens (or creates) path in append mode. Call Close when done.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sink %s", path)
	}
	return &JSONLSink{f: f, w: bufio.NewWriterSize(f, 64<<10), path: path}, nil
}

// Write appends records, one JSON object per line.
func (s *JSONLSink) Write(records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return errors.Wrapf(err, "writing %s", s.path)
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ferr := s.w.Flush()
	cerr := s.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// ReadAll reads every record of a JSONL file. Lines that do not decode are
// skipped.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<26)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err == nil {
			out = append(out, r)
		}
	}
	return out, scanner.Err()
}
