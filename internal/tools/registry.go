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

// Package tools holds the named data tools the assistant dispatches queries to.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Tool is a named function that answers a query with text
type Tool interface {
	Name() string
	Description() string
	Parameters() []string
	Run(ctx context.Context, query string) (string, error)
}

// Result is the outcome of running one tool
type Result struct {
	Tool      string    `json:"tool"`
	Data      string    `json:"data"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Info describes a registered tool
type Info struct {
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

// Observer is notified after every tool run
type Observer func(tool, status string, duration time.Duration)

// Registry maps tool names to tools and runs them
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	observer Observer
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds or replaces a tool under its name
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// SetObserver installs a hook called after each tool run
func (r *Registry) SetObserver(observer Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = observer
}

// Get returns the tool registered under name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description and parameters of every tool
func (r *Registry) Describe() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Info, len(r.tools))
	for name, tool := range r.tools {
		out[name] = Info{
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		}
	}
	return out
}

// Execute runs the named tools in order. Unknown names are skipped and a
// failing tool yields an error result without stopping the others.
func (r *Registry) Execute(ctx context.Context, names []string, query string) []Result {
	results := make([]Result, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		tool, ok := r.Get(name)
		if !ok {
			r.logger.Warn("Skipping unknown tool", zap.String("tool", name))
			continue
		}

		results = append(results, r.run(ctx, tool, query))
	}

	return results
}

func (r *Registry) run(ctx context.Context, tool Tool, query string) Result {
	start := time.Now()

	data, err := safeRun(ctx, tool, query)

	result := Result{
		Tool:      tool.Name(),
		Data:      data,
		Status:    StatusSuccess,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		r.logger.Error("Tool execution failed",
			zap.String("tool", tool.Name()),
			zap.Error(err),
		)
		result.Data = fmt.Sprintf("Tool execution failed: %s", err.Error())
		result.Status = StatusError
	}

	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()
	if observer != nil {
		observer(tool.Name(), result.Status, time.Since(start))
	}

	return result
}

// safeRun converts a panicking tool into an error
func safeRun(ctx context.Context, tool Tool, query string) (data string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	return tool.Run(ctx, query)
}
