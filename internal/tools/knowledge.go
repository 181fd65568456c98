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
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
)

const (
	// KnowledgeToolName is the registry name of the knowledge tool
	KnowledgeToolName = "knowledge"

	// KnowledgeFallback is returned when no source yields a match
	KnowledgeFallback = "Knowledge Base: Safety guidelines require PPE at all times. " +
		"Wind turbine maintenance scheduled quarterly. Emergency procedures posted at all sites."

	snippetLength = 200
)

// DocumentSearcher finds knowledge documents matching free text
type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Document, error)
}

// KnowledgeTool searches the knowledge sources in order and reports the
// first non-empty match set
type KnowledgeTool struct {
	sources []DocumentSearcher
	limit   int
	logger  *zap.Logger
}

// NewKnowledgeTool creates a knowledge tool over the given sources. Nil
// sources are ignored.
func NewKnowledgeTool(limit int, logger *zap.Logger, sources ...DocumentSearcher) *KnowledgeTool {
	if limit <= 0 {
		limit = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var active []DocumentSearcher
	for _, source := range sources {
		if source != nil {
			active = append(active, source)
		}
	}

	return &KnowledgeTool{sources: active, limit: limit, logger: logger}
}

// Name implements Tool
func (k *KnowledgeTool) Name() string { return KnowledgeToolName }

// Description implements Tool
func (k *KnowledgeTool) Description() string {
	return "Search knowledge base for relevant documents and information"
}

// Parameters implements Tool
func (k *KnowledgeTool) Parameters() []string { return []string{"query"} }

// Run implements Tool
func (k *KnowledgeTool) Run(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return KnowledgeFallback, nil
	}

	for _, source := range k.sources {
		docs, err := source.Search(ctx, query, k.limit)
		if err != nil {
			k.logger.Warn("Knowledge source search failed",
				zap.String("source", fmt.Sprintf("%T", source)),
				zap.Error(err),
			)
			continue
		}
		if len(docs) > 0 {
			return formatDocuments(docs), nil
		}
	}

	return KnowledgeFallback, nil
}

func formatDocuments(docs []knowledge.Document) string {
	var b strings.Builder
	b.WriteString("Knowledge Base:")
	for _, doc := range docs {
		snippet := doc.Description
		if snippet == "" {
			snippet = doc.Content
		}
		snippet = strings.Join(strings.Fields(snippet), " ")
		fmt.Fprintf(&b, "\n- %s: %s", doc.Title, truncate(snippet, snippetLength))
	}
	return b.String()
}

// truncate shortens s to at most n runes and marks the cut with an ellipsis
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
