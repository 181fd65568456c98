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

// Package classifier maps free-text assistant queries to intents and tools.
package classifier

import (
	"fmt"
	"strings"
)

// Intent labels
const (
	IntentFinancial   = "financial"
	IntentHR          = "hr"
	IntentSafety      = "safety"
	IntentOperational = "operational"
	IntentGeneral     = "general"
)

// Tool names selected by the classifier
const (
	ToolFinance   = "finance"
	ToolDatabase  = "database"
	ToolHSE       = "hse"
	ToolKnowledge = "knowledge"
)

// Domain names used by complexity analysis
const (
	DomainFinance    = "finance"
	DomainSafety     = "safety"
	DomainOperations = "operations"
	DomainWind       = "wind_energy"
	DomainSolar      = "solar_energy"
)

// Fixed confidence per branch. These are not computed from any signal.
const (
	DefaultConfidence   = 0.7
	KeywordConfidence   = 0.8
	KnowledgeConfidence = 0.7
	SummaryConfidence   = 0.9
)

// Analysis is the result of intent classification
type Analysis struct {
	Intent     string   `json:"intent"`
	Tools      []string `json:"tools"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Complexity describes whether a query spans more than one domain
type Complexity struct {
	Domains          []string `json:"domains"`
	HasComparison    bool     `json:"has_comparison"`
	NeedsSummary     bool     `json:"needs_summary"`
	RequiresMultiple bool     `json:"requires_multiple_agents"`
	Score            int      `json:"complexity_score"`
}

type keywordRule struct {
	keywords   []string
	tools      []string
	intent     string
	confidence float64
}

type domainRule struct {
	domain   string
	keywords []string
}

// IntentClassifier performs keyword-substring intent classification
type IntentClassifier struct {
	rules              []keywordRule
	domains            []domainRule
	comparisonKeywords []string
	summaryKeywords    []string
}

// NewIntentClassifier creates a classifier with the fixed keyword tables
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{
		// Order matters: later matches overwrite intent and confidence.
		rules: []keywordRule{
			{
				keywords:   []string{"financial", "finance", "revenue", "profit", "expense", "cost", "budget"},
				tools:      []string{ToolFinance},
				intent:     IntentFinancial,
				confidence: KeywordConfidence,
			},
			{
				keywords:   []string{"man-hours", "hours", "employee", "staff", "workforce", "productivity"},
				tools:      []string{ToolDatabase},
				intent:     IntentHR,
				confidence: KeywordConfidence,
			},
			{
				keywords:   []string{"safety", "hse", "incident", "accident", "ppe", "compliance"},
				tools:      []string{ToolHSE},
				intent:     IntentSafety,
				confidence: KeywordConfidence,
			},
			{
				keywords:   []string{"policy", "procedure", "guideline", "document", "manual"},
				tools:      []string{ToolKnowledge},
				intent:     IntentOperational,
				confidence: KnowledgeConfidence,
			},
			{
				keywords:   []string{"dashboard", "summary", "overview", "report"},
				tools:      []string{ToolFinance, ToolDatabase, ToolHSE},
				intent:     IntentOperational,
				confidence: SummaryConfidence,
			},
		},
		domains: []domainRule{
			{domain: DomainFinance, keywords: []string{"financial", "budget", "cost", "revenue", "profit", "expense"}},
			{domain: DomainSafety, keywords: []string{"safety", "hse", "incident", "ppe", "accident", "compliance"}},
			{domain: DomainOperations, keywords: []string{"operations", "shift", "schedule", "maintenance", "performance"}},
			{domain: DomainWind, keywords: []string{"wind", "turbine", "blade", "nacelle", "tower"}},
			{domain: DomainSolar, keywords: []string{"solar", "panel", "inverter", "pv", "photovoltaic"}},
		},
		comparisonKeywords: []string{"compare", "vs", "versus", "correlation", "relationship", "impact"},
		summaryKeywords:    []string{"dashboard", "summary", "overview", "report", "combined"},
	}
}

// Classify determines the intent of a query and the ordered list of tools to run.
// It never fails: a query that matches nothing is routed to the knowledge tool.
func (ic *IntentClassifier) Classify(query string) Analysis {
	normalized := strings.ToLower(strings.TrimSpace(query))

	analysis := Analysis{
		Intent:     IntentGeneral,
		Confidence: DefaultConfidence,
		Reasoning:  fmt.Sprintf("Keyword-based analysis for query: %s", query),
	}

	if normalized != "" {
		for _, rule := range ic.rules {
			if containsAny(normalized, rule.keywords) {
				analysis.Tools = appendUnique(analysis.Tools, rule.tools...)
				analysis.Intent = rule.intent
				analysis.Confidence = rule.confidence
			}
		}
	}

	if len(analysis.Tools) == 0 {
		analysis.Tools = []string{ToolKnowledge}
	}

	return analysis
}

// AnalyzeComplexity reports the domains a query touches and whether it
// needs the multi-agent path
func (ic *IntentClassifier) AnalyzeComplexity(query string) Complexity {
	normalized := strings.ToLower(query)

	var complexity Complexity
	for _, rule := range ic.domains {
		if containsAny(normalized, rule.keywords) {
			complexity.Domains = append(complexity.Domains, rule.domain)
		}
	}

	complexity.HasComparison = containsAny(normalized, ic.comparisonKeywords)
	complexity.NeedsSummary = containsAny(normalized, ic.summaryKeywords)
	complexity.RequiresMultiple = len(complexity.Domains) > 1 || complexity.HasComparison || complexity.NeedsSummary

	complexity.Score = len(complexity.Domains)
	if complexity.HasComparison {
		complexity.Score++
	}
	if complexity.NeedsSummary {
		complexity.Score++
	}

	return complexity
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
