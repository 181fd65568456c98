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
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when none is configured
const DefaultRedisKey = "swire:assistant:history"

// Verify interface compliance
var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*Ring)(nil)
)

// RedisStore keeps the history in a capped redis list so that several
// service replicas share one bounded view
type RedisStore struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewRedisStore creates a redis-backed store using an existing client
func NewRedisStore(client *redis.Client, key string, capacity int) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client:   client,
		key:      key,
		capacity: normalizeCapacity(capacity),
	}
}

// NewRedisStoreFromAddr creates a redis-backed store connected to addr
func NewRedisStoreFromAddr(addr, key string, capacity int) *RedisStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisStore(client, key, capacity)
}

// Append pushes a record and trims the list to capacity in one pipeline
func (s *RedisStore) Append(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, int64(-s.capacity), -1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// List returns the stored records, oldest first
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err == redis.Nil {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]Record, 0, len(values))
	for _, value := range values {
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Len returns the number of stored records
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read history length: %w", err)
	}
	return int(n), nil
}

// Capacity returns the maximum number of records kept
func (s *RedisStore) Capacity() int {
	return s.capacity
}

// Ping checks connectivity to redis
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
