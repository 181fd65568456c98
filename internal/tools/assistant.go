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

package tools

import (
	"context"
	"fmt"
	"strings"
)

// AssistantToolName is the registry name of the LLM tool
const AssistantToolName = "assistant"

// Completer sends a prompt pair to a hosted language model
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AssistantTool forwards the query to a hosted language model
type AssistantTool struct {
	completer    Completer
	systemPrompt string
}

// NewAssistantTool creates the LLM passthrough tool
func NewAssistantTool(completer Completer, systemPrompt string) *AssistantTool {
	return &AssistantTool{completer: completer, systemPrompt: systemPrompt}
}

// Name implements Tool
func (a *AssistantTool) Name() string { return AssistantToolName }

// Description implements Tool
func (a *AssistantTool) Description() string {
	return "Answer open questions with the hosted language model"
}

// Parameters implements Tool
func (a *AssistantTool) Parameters() []string { return []string{"query"} }

// Run implements Tool
func (a *AssistantTool) Run(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is empty")
	}

	reply, err := a.completer.Complete(ctx, a.systemPrompt, query)
	if err != nil {
		return "", fmt.Errorf("language model request failed: %w", err)
	}
	return reply, nil
}
