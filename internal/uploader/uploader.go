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

// Package uploader runs independent upload jobs with bounded concurrency.
package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of uploads allowed in flight
const DefaultConcurrency = 5

// Job is one unit of upload work
type Job struct {
	Key string
	Do  func(ctx context.Context) error
}

// ItemError records a failed job
type ItemError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// Summary reports the outcome of a run
type Summary struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Errors    []ItemError   `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Uploader executes jobs, never more than its concurrency at once
type Uploader struct {
	concurrency int
	logger      *zap.Logger
}

// New creates an uploader. Non-positive concurrency falls back to the default.
func New(concurrency int, logger *zap.Logger) *Uploader {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{concurrency: concurrency, logger: logger}
}

// Concurrency returns the in-flight limit
func (u *Uploader) Concurrency() int { return u.concurrency }

// Run executes every job. A failing job is recorded and the rest continue;
// jobs not yet started when ctx is cancelled are recorded as failed.
func (u *Uploader) Run(ctx context.Context, jobs []Job) Summary {
	start := time.Now()

	var mu sync.Mutex
	summary := Summary{}
	record := func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, ItemError{Key: key, Error: err.Error()})
			return
		}
		summary.Processed++
	}

	var g errgroup.Group
	g.SetLimit(u.concurrency)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(job.Key, err)
				return nil
			}

			err := safeDo(ctx, job)
			if err != nil {
				u.logger.Warn("Upload failed",
					zap.String("key", job.Key),
					zap.Error(err))
			} else {
				u.logger.Debug("Upload succeeded", zap.String("key", job.Key))
			}
			record(job.Key, err)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)

	u.logger.Info("Upload run completed",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))

	return summary
}

func safeDo(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload panicked: %v", r)
		}
	}()
	return job.Do(ctx)
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
