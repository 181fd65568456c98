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

// Package orchestrator routes queries through the classifier, the tools and
// the domain specialist and assembles the final answer.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/classifier"
	"github.com/swire-renewables/intelligence-assistant/internal/history"
	"github.com/swire-renewables/intelligence-assistant/internal/specialist"
	"github.com/swire-renewables/intelligence-assistant/internal/tools"
)

// Collaboration types reported on a response
const (
	CollaborationSingle      = "single"
	CollaborationSingleAgent = "single_agent"
	CollaborationMultiAgent  = "multi_agent"
)

const (
	// DefaultCollaborationCapacity bounds the collaboration log
	DefaultCollaborationCapacity = 20

	agentPrefix      = "specialist_"
	noResponse       = "No specific response available"
	statusActive     = "active"
	errorResponseFmt = "I apologize, but I encountered an error processing your request: %v"
)

// Response is the answer returned to the caller
type Response struct {
	Response          string    `json:"response"`
	ToolsUsed         []string  `json:"tools_used"`
	AgentsUsed        []string  `json:"agents_used"`
	CollaborationType string    `json:"collaboration_type"`
	Intent            string    `json:"intent"`
	Confidence        float64   `json:"confidence"`
	KeyInsights       []string  `json:"key_insights,omitempty"`
	Recommendations   []string  `json:"recommendations,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Error             bool      `json:"error,omitempty"`
}

// Orchestration is the specialist part of an answer
type Orchestration struct {
	Response          string                `json:"response"`
	CollaborationType string                `json:"collaboration_type"`
	AgentsInvolved    []string              `json:"agents_involved"`
	Domains           []string              `json:"domains_involved,omitempty"`
	SynthesisMethod   string                `json:"synthesis_method,omitempty"`
	KeyInsights       []string              `json:"key_insights,omitempty"`
	Recommendations   []string              `json:"recommendations,omitempty"`
	Complexity        classifier.Complexity `json:"complexity"`
	Error             string                `json:"error,omitempty"`
}

// Failed reports whether the specialist could not answer
func (o Orchestration) Failed() bool {
	return o.Error != ""
}

// Collaboration records one multi-agent run
type Collaboration struct {
	Timestamp       time.Time `json:"timestamp"`
	Query           string    `json:"query"`
	AgentsInvolved  []string  `json:"agents_involved"`
	SynthesisMethod string    `json:"synthesis_method"`
	Success         bool      `json:"success"`
}

// Config sizes the orchestrator logs
type Config struct {
	CollaborationCapacity int
}

// Orchestrator answers queries
type Orchestrator struct {
	classifier *classifier.IntentClassifier
	registry   *tools.Registry
	specialist *specialist.Agent
	history    history.Store
	logger     *zap.Logger
	now        func() time.Time

	mu             sync.Mutex
	collaborations []Collaboration
	collabCap      int
}

// New creates an orchestrator. The history store is owned by the caller; a nil
// store falls back to an in-memory ring of the default size.
func New(registry *tools.Registry, store history.Store, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = tools.NewRegistry(logger)
	}
	if store == nil {
		store = history.NewRing(history.DefaultCapacity)
	}
	capacity := cfg.CollaborationCapacity
	if capacity <= 0 {
		capacity = DefaultCollaborationCapacity
	}

	return &Orchestrator{
		classifier: classifier.NewIntentClassifier(),
		registry:   registry,
		specialist: specialist.NewAgent(),
		history:    store,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		collabCap:  capacity,
	}
}

// Classifier exposes the intent classifier used for routing
func (o *Orchestrator) Classifier() *classifier.IntentClassifier {
	return o.classifier
}

// Registry exposes the tool registry
func (o *Orchestrator) Registry() *tools.Registry {
	return o.registry
}

// History exposes the query history store
func (o *Orchestrator) History() history.Store {
	return o.history
}

// Process answers query. With useMultiAgent the specialist answer leads and tool
// data is appended; otherwise, or when the specialist fails, the tool output is
// listed directly. An error is returned only when ctx ends first.
func (o *Orchestrator) Process(ctx context.Context, query string, useMultiAgent bool) (resp *Response, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	analysis := o.classifier.Classify(query)

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("Query processing panicked",
				zap.String("query", query),
				zap.Any("panic", rec))
			resp = o.errorResponse(rec)
			err = nil
		}
	}()

	var orchestration *Orchestration
	if useMultiAgent {
		result := o.Orchestrate(query)
		if result.Failed() {
			o.logger.Warn("Specialist orchestration failed, using tool output",
				zap.String("error", result.Error))
		} else {
			orchestration = &result
		}
	}

	results := o.registry.Execute(ctx, analysis.Tools, query)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query processing interrupted: %w", err)
	}

	resp = &Response{
		ToolsUsed:         toolNames(results),
		AgentsUsed:        []string{},
		CollaborationType: CollaborationSingle,
		Intent:            analysis.Intent,
		Confidence:        analysis.Confidence,
		Timestamp:         o.now(),
	}

	if orchestration != nil {
		resp.Response = CombineWithToolData(orchestration.Response, results)
		resp.CollaborationType = orchestration.CollaborationType
		resp.KeyInsights = orchestration.KeyInsights
		resp.Recommendations = orchestration.Recommendations
		if orchestration.Domains != nil {
			resp.AgentsUsed = orchestration.Domains
		}
	} else {
		resp.Response = ToolResponse(analysis.Intent, results)
	}

	o.remember(ctx, query, analysis, orchestration, results, resp)

	o.logger.Info("Processed query",
		zap.String("intent", resp.Intent),
		zap.Strings("tools", resp.ToolsUsed),
		zap.String("collaboration_type", resp.CollaborationType),
		zap.Duration("duration", time.Since(start)))

	return resp, nil
}

// Orchestrate asks the specialist about query. Queries spanning several
// domains get one insight per domain merged by Synthesize.
func (o *Orchestrator) Orchestrate(query string) Orchestration {
	complexity := o.classifier.AnalyzeComplexity(query)
	if complexity.RequiresMultiple {
		return o.multiAgent(query, complexity)
	}
	return o.singleAgent(query, complexity)
}

func (o *Orchestrator) singleAgent(query string, complexity classifier.Complexity) Orchestration {
	domain := classifier.DomainOperations
	if len(complexity.Domains) > 0 {
		domain = complexity.Domains[0]
	}

	insight, err := o.specialist.Insight(query, domain)
	if err != nil {
		return Orchestration{
			Complexity: complexity,
			Error:      fmt.Sprintf("Agent processing failed: %v", err),
		}
	}

	response := insight.Response
	if response == "" {
		response = noResponse
	}

	return Orchestration{
		Response:          response,
		CollaborationType: CollaborationSingleAgent,
		AgentsInvolved:    []string{agentPrefix + domain},
		Complexity:        complexity,
	}
}

func (o *Orchestrator) multiAgent(query string, complexity classifier.Complexity) Orchestration {
	agents := make([]string, 0, len(complexity.Domains))
	insights := make([]specialist.Insight, 0, len(complexity.Domains))

	for _, domain := range complexity.Domains {
		agents = append(agents, agentPrefix+domain)

		insight, err := o.specialist.Insight(query, domain)
		if err != nil {
			o.logger.Warn("Specialist failed for domain",
				zap.String("domain", domain),
				zap.Error(err))
			continue
		}
		insights = append(insights, insight)
	}

	synthesis := Synthesize(complexity, insights, o.now())

	o.recordCollaboration(Collaboration{
		Timestamp:       o.now(),
		Query:           query,
		AgentsInvolved:  agents,
		SynthesisMethod: synthesis.Method,
		Success:         true,
	})

	return Orchestration{
		Response:          synthesis.Response,
		CollaborationType: CollaborationMultiAgent,
		AgentsInvolved:    agents,
		Domains:           append([]string(nil), complexity.Domains...),
		SynthesisMethod:   synthesis.Method,
		KeyInsights:       synthesis.KeyInsights,
		Recommendations:   synthesis.Recommendations,
		Complexity:        complexity,
	}
}

func (o *Orchestrator) recordCollaboration(c Collaboration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.collaborations = append(o.collaborations, c)
	if overflow := len(o.collaborations) - o.collabCap; overflow > 0 {
		o.collaborations = append([]Collaboration(nil), o.collaborations[overflow:]...)
	}
}

// Collaborations returns the multi-agent log, oldest first
func (o *Orchestrator) Collaborations() []Collaboration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Collaboration{}, o.collaborations...)
}

func (o *Orchestrator) remember(ctx context.Context, query string, analysis classifier.Analysis,
	orchestration *Orchestration, results []tools.Result, resp *Response) {
	record := history.NewRecord(query)
	record.Timestamp = resp.Timestamp
	record.Intent = analysis.Intent
	record.Confidence = analysis.Confidence
	record.ToolsUsed = resp.ToolsUsed
	record.Response = resp.Response
	record.Success = !resp.Error
	if orchestration != nil {
		record.Domains = orchestration.Complexity.Domains
	}
	if len(results) > 0 {
		record.ToolOutputs = make(map[string]string, len(results))
		for _, result := range results {
			record.ToolOutputs[result.Tool] = result.Data
		}
	}

	if err := o.history.Append(ctx, record); err != nil {
		o.logger.Warn("Failed to record query history", zap.Error(err))
	}
}

func (o *Orchestrator) errorResponse(cause any) *Response {
	return &Response{
		Response:          fmt.Sprintf(errorResponseFmt, cause),
		ToolsUsed:         []string{},
		AgentsUsed:        []string{},
		CollaborationType: CollaborationSingle,
		Intent:            classifier.IntentGeneral,
		Timestamp:         o.now(),
		Error:             true,
	}
}

func toolNames(results []tools.Result) []string {
	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, result.Tool)
	}
	return names
}

// Status describes the agents behind the orchestrator
type Status struct {
	CoreAgent              CoreAgentStatus  `json:"core_agent"`
	MultiAgentOrchestrator MultiAgentStatus `json:"multi_agent_orchestrator"`
}

// CoreAgentStatus describes tool routing
type CoreAgentStatus struct {
	Status         string   `json:"status"`
	ToolsAvailable []string `json:"tools_available"`
	Conversations  int      `json:"conversations"`
}

// MultiAgentStatus describes the specialist side
type MultiAgentStatus struct {
	SpecialistAgent SpecialistStatus  `json:"specialist_agent"`
	Orchestrator    CoordinatorStatus `json:"orchestrator"`
}

// SpecialistStatus lists the specialist domains
type SpecialistStatus struct {
	Status          string   `json:"status"`
	Specializations []string `json:"specializations"`
}

// CoordinatorStatus counts completed collaborations
type CoordinatorStatus struct {
	Status                  string `json:"status"`
	CollaborationsCompleted int    `json:"collaborations_completed"`
}

// Status reports the tools, the specialist domains and the log sizes
func (o *Orchestrator) Status(ctx context.Context) Status {
	conversations, err := o.history.Len(ctx)
	if err != nil {
		o.logger.Warn("Failed to count query history", zap.Error(err))
	}

	o.mu.Lock()
	collaborations := len(o.collaborations)
	o.mu.Unlock()

	return Status{
		CoreAgent: CoreAgentStatus{
			Status:         statusActive,
			ToolsAvailable: o.registry.Names(),
			Conversations:  conversations,
		},
		MultiAgentOrchestrator: MultiAgentStatus{
			SpecialistAgent: SpecialistStatus{
				Status:          statusActive,
				Specializations: o.specialist.Specializations(),
			},
			Orchestrator: CoordinatorStatus{
				Status:                  statusActive,
				CollaborationsCompleted: collaborations,
			},
		},
	}
}
