// Copyright 2024 AI SA Assistant Project
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

package history

import (
	"context"
	"sync"
)

// Ring is a fixed-size in-memory ring buffer of records
type Ring struct {
	mu      sync.RWMutex
	records []Record
	start   int
	count   int
}

// NewRing creates a ring buffer holding at most capacity records
func NewRing(capacity int) *Ring {
	return &Ring{
		records: make([]Record, normalizeCapacity(capacity)),
	}
}

// Append adds a record, overwriting the oldest once full
func (r *Ring) Append(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.records)
	if r.count < capacity {
		r.records[(r.start+r.count)%capacity] = copyRecord(record)
		r.count++
		return nil
	}

	r.records[r.start] = copyRecord(record)
	r.start = (r.start + 1) % capacity
	return nil
}

// List returns a copy of the buffered records, oldest first
func (r *Ring) List(_ context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, copyRecord(r.records[(r.start+i)%len(r.records)]))
	}
	return out, nil
}

// Len returns the number of buffered records
func (r *Ring) Len(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count, nil
}

// Capacity returns the maximum number of records kept
func (r *Ring) Capacity() int {
	return len(r.records)
}

// copyRecord detaches slices and maps so callers cannot mutate buffered state
func copyRecord(record Record) Record {
	out := record
	if record.Domains != nil {
		out.Domains = append([]string(nil), record.Domains...)
	}
	if record.ToolsUsed != nil {
		out.ToolsUsed = append([]string(nil), record.ToolsUsed...)
	}
	if record.ToolOutputs != nil {
		out.ToolOutputs = make(map[string]string, len(record.ToolOutputs))
		for k, v := range record.ToolOutputs {
			out.ToolOutputs[k] = v
		}
	}
	return out
}
