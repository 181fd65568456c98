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

// Package resilience guards calls to flaky upstream data sources.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of a breaker
type State int

const (
	// Closed lets every call through
	Closed State = iota
	// Open rejects calls until the open timeout has elapsed
	Open
	// HalfOpen lets a single probe through
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the guarded function while the breaker is open
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes a breaker
type Config struct {
	Name             string
	FailureThreshold int
	OpenTimeout      time.Duration
}

// Stats is a snapshot of a breaker
type Stats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Successes           int       `json:"successes"`
	Failures            int       `json:"failures"`
	Rejected            int       `json:"rejected"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	StateChanged        time.Time `json:"state_changed"`
}

// Breaker opens after FailureThreshold consecutive failures and probes the
// upstream again once OpenTimeout has passed. A successful probe closes it,
// a failed probe reopens it.
type Breaker struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	consecutive int
	probing     bool
	stats       Stats
}

// NewBreaker creates a closed breaker. Non-positive settings fall back to
// 3 failures and a 30 second open timeout.
func NewBreaker(cfg Config, logger *zap.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Breaker{cfg: cfg, logger: logger, now: time.Now}
	b.stats = Stats{Name: cfg.Name, StateChanged: b.now()}
	return b
}

// Do runs fn unless the breaker is open. Context cancellation by the caller
// is not counted as an upstream failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.release()
		return err
	}

	b.record(err)
	return err
}

// State returns the current state, moving an expired open breaker to half-open
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()
	return b.state
}

// Stats returns a snapshot of the counters
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()
	stats := b.stats
	stats.State = b.state.String()
	stats.ConsecutiveFailures = b.consecutive
	return stats
}

// Check reports ErrOpen while the breaker rejects calls. It fits health.PingChecker.
func (b *Breaker) Check(_ context.Context) error {
	if b.State() == Open {
		return ErrOpen
	}
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.probing {
			b.stats.Rejected++
			return false
		}
		b.probing = true
		return true
	default:
		b.stats.Rejected++
		return false
	}
}

func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if err == nil {
		b.stats.Successes++
		b.consecutive = 0
		if b.state != Closed {
			b.transition(Closed)
		}
		return
	}

	b.stats.Failures++
	b.stats.LastFailure = b.now()
	b.consecutive++

	b.logger.Debug("Upstream call failed",
		zap.String("breaker", b.cfg.Name),
		zap.Int("consecutive_failures", b.consecutive),
		zap.Error(err))

	if b.state == HalfOpen || b.consecutive >= b.cfg.FailureThreshold {
		b.transition(Open)
	}
}

// expire must be called with mu held
func (b *Breaker) expire() {
	if b.state == Open && b.now().Sub(b.stats.StateChanged) >= b.cfg.OpenTimeout {
		b.transition(HalfOpen)
	}
}

// transition must be called with mu held
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.stats.StateChanged = b.now()

	b.logger.Info("Circuit breaker state changed",
		zap.String("breaker", b.cfg.Name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("consecutive_failures", b.consecutive))
}
