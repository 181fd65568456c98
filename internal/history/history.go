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

// Package history keeps a bounded record of recent assistant queries.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCapacity is used when a non-positive capacity is configured
	DefaultCapacity = 10

	// MemoryStorageType selects the in-process ring buffer
	MemoryStorageType = "memory"
	// RedisStorageType selects the redis list store
	RedisStorageType = "redis"
)

// Record is one processed query
type Record struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Query       string            `json:"query"`
	Intent      string            `json:"intent"`
	Domains     []string          `json:"domains,omitempty"`
	Confidence  float64           `json:"confidence"`
	ToolsUsed   []string          `json:"tools_used"`
	ToolOutputs map[string]string `json:"tool_outputs,omitempty"`
	Response    string            `json:"response"`
	Success     bool              `json:"success"`
}

// NewRecord creates a record stamped with a fresh ID and the current time
func NewRecord(query string) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Query:     query,
		Success:   true,
	}
}

// Store holds at most Capacity records, dropping the oldest first
type Store interface {
	Append(ctx context.Context, record Record) error
	// List returns records ordered oldest to newest
	List(ctx context.Context) ([]Record, error)
	Len(ctx context.Context) (int, error)
	Capacity() int
}

// Config selects and sizes a history store
type Config struct {
	StorageType string
	Capacity    int
	RedisAddr   string
	RedisKey    string
}

func normalizeCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}

// NewStore builds the store described by cfg
func NewStore(cfg Config) (Store, error) {
	switch cfg.StorageType {
	case "", MemoryStorageType:
		return NewRing(cfg.Capacity), nil
	case RedisStorageType:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis address is required for redis history storage")
		}
		return NewRedisStoreFromAddr(cfg.RedisAddr, cfg.RedisKey, cfg.Capacity), nil
	default:
		return nil, fmt.Errorf("unsupported history storage type: %s", cfg.StorageType)
	}
}
