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

// Package knowledge holds the knowledge base document model, the builders
// that turn curated service data into documents, and the local catalog the
// assistant searches.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Search index actions
const (
	ActionUpload        = "upload"
	ActionMergeOrUpload = "mergeOrUpload"
)

// ErrInvalidDocument is returned when a document fails validation
var ErrInvalidDocument = errors.New("invalid knowledge document")

// Document is a single knowledge base record in search index upload shape
type Document struct {
	Action      string         `json:"@search.action,omitempty"`
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Category    string         `json:"category,omitempty"`
	ServiceType string         `json:"service_type,omitempty"`
	Description string         `json:"description,omitempty"`
	Source      string         `json:"source,omitempty"`
	Type        string         `json:"type,omitempty"`
	Tags        []string       `json:"tags"`
	CreatedDate string         `json:"created_date,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate checks the invariants every uploaded document must hold
func (d Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDocument)
	}
	if len(d.Tags) == 0 {
		return fmt.Errorf("%w: document %s has no tags", ErrInvalidDocument, d.ID)
	}
	for i, tag := range d.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: document %s has an empty tag at position %d", ErrInvalidDocument, d.ID, i)
		}
	}
	return nil
}

// Batch is the upload envelope accepted by the search index
type Batch struct {
	Value []Document `json:"value"`
}

// Validate checks every document and rejects duplicate ids
func (b Batch) Validate() error {
	seen := make(map[string]struct{}, len(b.Value))
	var errs []error
	for _, doc := range b.Value {
		if err := doc.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[doc.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate id %s", ErrInvalidDocument, doc.ID))
			continue
		}
		seen[doc.ID] = struct{}{}
	}
	return errors.Join(errs...)
}

// WriteFile writes the batch as indented JSON, creating parent directories
func (b Batch) WriteFile(path string) error {
	return WriteJSON(path, b)
}

// ReadBatch loads a batch file written by WriteFile
func ReadBatch(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return Batch{}, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	return batch, nil
}

// WriteJSON writes any value as two-space indented JSON
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown renders documents as a readable markdown file
func RenderMarkdown(heading string, docs []Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	for _, doc := range docs {
		fmt.Fprintf(&b, "## %s\n\n", doc.Title)
		fmt.Fprintf(&b, "%s\n\n", doc.Content)
		b.WriteString("---\n\n")
	}
	return b.String()
}

// titleCase upper-cases the first letter of every letter run and lower-cases
// the rest, so "o&m_services" becomes "O&M Services" once underscores are spaced
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		switch {
		case isLetter && !prevLetter:
			b.WriteString(strings.ToUpper(string(r)))
		case isLetter:
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
