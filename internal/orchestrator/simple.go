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

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/swire-renewables/intelligence-assistant/internal/classifier"
	"github.com/swire-renewables/intelligence-assistant/internal/tools"
)

// GreetingMessage is the simple answer when no data area matches
const GreetingMessage = "Swire Intelligence Assistant is ready! Ask me about:\n" +
	"• Financial summaries\n" +
	"• Man-hours and HR data\n" +
	"• Safety guidelines and incidents\n" +
	"• Dashboard summaries"

var (
	simpleFinanceKeywords   = []string{"financial", "finance", "revenue", "profit", "money"}
	simpleHRKeywords        = []string{"man-hours", "hours", "hr", "employee", "staff"}
	simpleSafetyKeywords    = []string{"safety", "ppe", "incident", "hse"}
	simpleDashboardKeywords = []string{"dashboard", "summary"}
)

func matchesAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// SimpleTools picks the tools for the first matching data area, checked in
// the order finance, HR, safety, dashboard. Nil means the greeting applies.
func SimpleTools(query string) []string {
	text := strings.ToLower(query)
	switch {
	case matchesAny(text, simpleFinanceKeywords):
		return []string{classifier.ToolFinance}
	case matchesAny(text, simpleHRKeywords):
		return []string{classifier.ToolDatabase}
	case matchesAny(text, simpleSafetyKeywords):
		return []string{classifier.ToolHSE}
	case matchesAny(text, simpleDashboardKeywords):
		return []string{classifier.ToolFinance, classifier.ToolDatabase, classifier.ToolHSE}
	}
	return nil
}

// Simple answers from a single data area without classification or specialists
func (o *Orchestrator) Simple(ctx context.Context, query string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := SimpleTools(query)
	results := o.registry.Execute(ctx, names, query)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query processing interrupted: %w", err)
	}

	resp := &Response{
		Response:          simpleText(results),
		ToolsUsed:         toolNames(results),
		AgentsUsed:        []string{},
		CollaborationType: CollaborationSingle,
		Intent:            classifier.IntentGeneral,
		Timestamp:         o.now(),
	}

	o.remember(ctx, query, classifier.Analysis{Intent: resp.Intent}, nil, results, resp)
	return resp, nil
}

func simpleText(results []tools.Result) string {
	switch len(results) {
	case 0:
		return GreetingMessage
	case 1:
		return results[0].Data
	}

	data := make([]string, 0, len(results))
	for _, result := range results {
		data = append(data, result.Data)
	}
	return "Swire Renewables Dashboard Summary:\n\n" + strings.Join(data, "\n\n")
}
