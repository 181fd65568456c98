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
	"fmt"
	"strings"
	"time"

	"github.com/swire-renewables/intelligence-assistant/internal/classifier"
	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
	"github.com/swire-renewables/intelligence-assistant/internal/specialist"
	"github.com/swire-renewables/intelligence-assistant/internal/tools"
)

// Synthesis methods
const (
	MethodMultiDomain  = "multi_domain"
	MethodSingleDomain = "single_domain"
)

const (
	maxKeyIndicators = 5
	dashboardTitle   = "# Swire Renewables Operations Dashboard\n\n"
	timestampLayout  = "2006-01-02 15:04:05"
)

// Intent insight lines appended to plain tool answers
var intentInsights = map[string]string{
	classifier.IntentFinancial: "\n💡 **Insight**: Monitor profit margins and consider cost optimization opportunities.",
	classifier.IntentSafety:    "\n🛡️ **Insight**: Maintain focus on preventive measures and continuous safety training.",
	classifier.IntentHR:        "\n👥 **Insight**: Track productivity trends and optimize workforce allocation.",
}

// ReadyMessage is returned when no tool produced any data
const ReadyMessage = "I'm ready to help with Swire Renewables operations. Please ask about finances, safety, HR data, or operational insights."

// Synthesis is the merged answer of several specialist insights
type Synthesis struct {
	Response        string   `json:"response"`
	Method          string   `json:"synthesis_method"`
	KeyInsights     []string `json:"key_insights"`
	Recommendations []string `json:"recommendations"`
}

// Synthesize merges insights into one answer. Queries asking for a summary get
// a dashboard, comparisons get numbered analyses and everything else is joined
// by blank lines.
func Synthesize(complexity classifier.Complexity, insights []specialist.Insight, now time.Time) Synthesis {
	parts := make([]string, 0, len(insights))
	keyInsights := []string{}
	recommendations := []string{}

	for _, insight := range insights {
		parts = append(parts, fmt.Sprintf("**%s**: %s", strings.ToUpper(insight.Domain), insight.Response))
		keyInsights = append(keyInsights, insight.Metrics...)
		if insight.NextAction != "" {
			recommendations = append(recommendations, insight.NextAction)
		}
	}

	var response string
	switch {
	case complexity.NeedsSummary:
		response = formatDashboard(parts, keyInsights, now)
	case complexity.HasComparison:
		response = formatComparison(parts, complexity.Domains)
	default:
		response = strings.Join(parts, "\n\n")
	}

	method := MethodSingleDomain
	if len(parts) > 1 {
		method = MethodMultiDomain
	}

	return Synthesis{
		Response:        response,
		Method:          method,
		KeyInsights:     keyInsights,
		Recommendations: recommendations,
	}
}

func formatDashboard(parts, keyInsights []string, now time.Time) string {
	var b strings.Builder
	b.WriteString(dashboardTitle)

	for _, part := range parts {
		b.WriteString(part)
		b.WriteString("\n\n")
	}

	if len(keyInsights) > 0 {
		b.WriteString("## Key Performance Indicators\n")
		for i, insight := range keyInsights {
			if i == maxKeyIndicators {
				break
			}
			fmt.Fprintf(&b, "• %s\n", insight)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "*Dashboard generated: %s*", now.Format(timestampLayout))
	return b.String()
}

func formatComparison(parts, domains []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Comparative Analysis: %s\n\n", knowledge.CategoryTitle(strings.Join(domains, " vs ")))

	for i, part := range parts {
		fmt.Fprintf(&b, "## Analysis %d\n%s\n\n", i+1, part)
	}

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "This analysis covers %d operational domains, providing insights for strategic decision-making.\n", len(domains))
	return b.String()
}

// CombineWithToolData appends successful tool output under a Current Data heading
func CombineWithToolData(orchestrated string, results []tools.Result) string {
	var data []string
	for _, result := range results {
		if result.Status == tools.StatusSuccess {
			data = append(data, fmt.Sprintf("**%s DATA**: %s", strings.ToUpper(result.Tool), result.Data))
		}
	}
	if len(data) == 0 {
		return orchestrated
	}
	return orchestrated + "\n\n## Current Data\n\n" + strings.Join(data, "\n\n")
}

// ToolResponse lists successful tool output followed by the insight line for intent
func ToolResponse(intent string, results []tools.Result) string {
	if len(results) == 0 {
		return ReadyMessage
	}

	parts := []string{"Here's what I found for your query:\n"}
	for _, result := range results {
		if result.Status == tools.StatusSuccess {
			parts = append(parts, fmt.Sprintf("**%s**: %s\n", strings.ToUpper(result.Tool), result.Data))
		}
	}
	if insight, ok := intentInsights[intent]; ok {
		parts = append(parts, insight)
	}
	return strings.Join(parts, "\n")
}
