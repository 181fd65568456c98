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

// Package health reports the state of the assistant and its dependencies
package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// StatusHealthy represents healthy status
	StatusHealthy = "healthy"
	// StatusUnhealthy represents unhealthy status
	StatusUnhealthy = "unhealthy"
	// StatusDegraded represents degraded status
	StatusDegraded = "degraded"
	// DefaultTimeout is the default timeout for health checks
	DefaultTimeout = 5 * time.Second
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status    string                 `json:"status"`
	Latency   time.Duration          `json:"latency"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Report is the complete health check response
type Report struct {
	Status       string                 `json:"status"`
	Message      string                 `json:"message"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Environment  string                 `json:"environment"`
	Uptime       string                 `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    time.Time              `json:"timestamp"`
}

// HTTPStatus maps the overall status to a response code. Degraded still
// answers 200 since the assistant can serve from fallbacks.
func (r Report) HTTPStatus() int {
	if r.Status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Checker interface for health checks
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc is a function adapter for the Checker interface
type CheckerFunc func(ctx context.Context) CheckResult

// Check implements the Checker interface
func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager runs the registered checks
type Manager struct {
	serviceName string
	version     string
	environment string
	startTime   time.Time
	logger      *zap.Logger

	// mu guards the fields below
	mu       sync.RWMutex
	message  string
	timeout  time.Duration
	checkers map[string]Checker
}

// NewManager creates a new health check manager
func NewManager(serviceName, version, environment string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if environment == "" {
		environment = "unknown"
	}
	return &Manager{
		serviceName: serviceName,
		version:     version,
		environment: environment,
		message:     fmt.Sprintf("%s is running", serviceName),
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// SetTimeout sets the timeout for health checks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
}

// SetMessage replaces the human readable status line
func (m *Manager) SetMessage(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = message
}

// AddChecker adds a health checker
func (m *Manager) AddChecker(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// AddCheckerFunc adds a health checker function
func (m *Manager) AddCheckerFunc(name string, checkFunc func(ctx context.Context) CheckResult) {
	m.AddChecker(name, CheckerFunc(checkFunc))
}

// Check runs every checker in parallel and folds the results into one status
func (m *Manager) Check(ctx context.Context) Report {
	m.mu.RLock()
	message, timeout := m.message, m.timeout
	checkers := make(map[string]Checker, len(m.checkers))
	for name, checker := range m.checkers {
		checkers[name] = checker
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		resultsMu    sync.Mutex
		dependencies = make(map[string]CheckResult, len(checkers))
		group        errgroup.Group
	)

	for name, checker := range checkers {
		group.Go(func() error {
			start := time.Now()
			result := checker.Check(ctx)
			result.Latency = time.Since(start)
			result.Timestamp = time.Now()

			resultsMu.Lock()
			dependencies[name] = result
			resultsMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	overallStatus := StatusHealthy
	for name, result := range dependencies {
		switch result.Status {
		case StatusUnhealthy:
			overallStatus = StatusUnhealthy
		case StatusDegraded:
			if overallStatus != StatusUnhealthy {
				overallStatus = StatusDegraded
			}
		}
		if result.Status != StatusHealthy {
			m.logger.Warn("Dependency check failed",
				zap.String("dependency", name),
				zap.String("status", result.Status),
				zap.String("error", result.Error))
		}
	}

	return Report{
		Status:       overallStatus,
		Message:      message,
		Service:      m.serviceName,
		Version:      m.version,
		Environment:  m.environment,
		Uptime:       time.Since(m.startTime).Round(time.Second).String(),
		Dependencies: dependencies,
		Metadata:     systemMetadata(),
		Timestamp:    time.Now().UTC(),
	}
}

func systemMetadata() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_alloc": memStats.Alloc,
		"hostname":     hostname(),
		"process_id":   os.Getpid(),
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

// PingChecker wraps a ping function such as a database or bucket probe.
// Failures of optional dependencies, and temporary failures of required
// ones, report degraded.
func PingChecker(name string, ping func(ctx context.Context) error, optional bool) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			status := StatusUnhealthy
			if optional || isTemporaryError(err) {
				status = StatusDegraded
			}
			return CheckResult{
				Status: status,
				Error:  fmt.Sprintf("%s check failed: %v", name, err),
			}
		}

		return CheckResult{
			Status:   StatusHealthy,
			Metadata: map[string]interface{}{"dependency": name},
		}
	})
}

func isTemporaryError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	temporaryPatterns := []string{
		"timeout",
		"connection refused",
		"temporary failure",
		"network is unreachable",
		"context deadline exceeded",
	}

	for _, pattern := range temporaryPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
