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

// Package docproc extracts text and metadata from uploaded documents.
package docproc

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
	"github.com/swire-renewables/intelligence-assistant/internal/openai"
)

const (
	maxTags          = 5
	tagSystemPrompt  = "You are a document analysis assistant. Generate 3-5 relevant tags for the given document content. Return only the tags as a comma-separated list."
	pdfPlaceholder   = "PDF content extracted (OCR not available)"
	imagePlaceholder = "Image content extracted (OCR not available)"
)

// ErrEmptyDocument is returned for uploads without a name or body
var ErrEmptyDocument = errors.New("document is empty")

// DefaultTags are used when tags cannot be generated
var DefaultTags = []string{"document", "general"}

// Completer sends a prompt pair to a hosted language model
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DocumentStore keeps processed documents searchable
type DocumentStore interface {
	Upsert(ctx context.Context, doc knowledge.Document) error
}

// Result is a processed upload
type Result struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"type"`
	Size         int       `json:"size"`
	Content      string    `json:"content"`
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	Department   string    `json:"department"`
	DocumentType string    `json:"document_type"`
	AccessLevel  string    `json:"access_level"`
	Tags         []string  `json:"tags"`
	LastModified time.Time `json:"last_modified"`
	Stored       bool      `json:"stored"`
}

// ToDocument converts the result into a knowledge document
func (r *Result) ToDocument() knowledge.Document {
	return knowledge.Document{
		Action:      knowledge.ActionMergeOrUpload,
		ID:          r.ID,
		Title:       r.Title,
		Content:     r.Content,
		Category:    strings.ToLower(r.Department),
		Source:      r.Source,
		Type:        r.DocumentType,
		Tags:        append([]string(nil), r.Tags...),
		CreatedDate: r.LastModified.Format(time.RFC3339),
		Metadata: map[string]any{
			"department":    r.Department,
			"access_level":  r.AccessLevel,
			"filename":      r.Filename,
			"content_type":  r.ContentType,
			"document_type": r.DocumentType,
		},
	}
}

// Processor turns uploads into classified documents
type Processor struct {
	completer Completer
	store     DocumentStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewProcessor creates a processor. completer and store are optional.
func NewProcessor(completer Completer, store DocumentStore, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		completer: completer,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Process extracts text, derives metadata and stores the document when a
// store is configured. Storage failures are logged and reported via Stored.
func (p *Processor) Process(ctx context.Context, filename, contentType string, data []byte) (*Result, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	content := ExtractText(filename, contentType, data)
	department := DetermineDepartment(filename, content)

	result := &Result{
		ID:           DocumentID(filename),
		Filename:     filename,
		ContentType:  contentType,
		Size:         len(data),
		Content:      content,
		Title:        Title(filename),
		Source:       source(filename),
		Department:   department,
		DocumentType: DetermineDocumentType(filename, content),
		AccessLevel:  DetermineAccessLevel(content, department),
		Tags:         p.generateTags(ctx, content),
		LastModified: p.now(),
	}

	if p.store != nil {
		if err := p.store.Upsert(ctx, result.ToDocument()); err != nil {
			p.logger.Warn("Failed to store processed document",
				zap.String("document_id", result.ID),
				zap.Error(err))
		} else {
			result.Stored = true
		}
	}

	p.logger.Info("Processed document",
		zap.String("document_id", result.ID),
		zap.String("filename", filename),
		zap.String("department", result.Department),
		zap.String("document_type", result.DocumentType),
		zap.Int("size", result.Size))

	return result, nil
}

func (p *Processor) generateTags(ctx context.Context, content string) []string {
	if p.completer == nil {
		return append([]string(nil), DefaultTags...)
	}

	reply, err := p.completer.Complete(ctx, tagSystemPrompt, openai.BuildTagPrompt(content))
	if err != nil {
		p.logger.Warn("Tag generation failed", zap.Error(err))
		return append([]string(nil), DefaultTags...)
	}

	tags := openai.ParseTags(reply, maxTags)
	if len(tags) == 0 {
		return append([]string(nil), DefaultTags...)
	}
	return tags
}

// ExtractText returns the readable text of an upload
func ExtractText(filename, contentType string, data []byte) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch {
	case mediaType == "application/pdf":
		return pdfPlaceholder
	case strings.HasPrefix(mediaType, "image/"):
		return imagePlaceholder
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/json":
		return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	default:
		return fmt.Sprintf("Document processed: %s\nContent extracted successfully.", filename)
	}
}

// DocumentID is the hex md5 of the filename
func DocumentID(filename string) string {
	sum := md5.Sum([]byte(filename))
	return hex.EncodeToString(sum[:])
}

// Title derives a display title from the file name
func Title(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	return knowledge.CategoryTitle(strings.ReplaceAll(stem, "-", " "))
}

func source(filename string) string {
	if strings.Contains(strings.ToLower(filename), "sharepoint") {
		return "SharePoint"
	}
	return "Upload"
}

type keywordRule struct {
	label    string
	keywords []string
}

var departmentPathRules = []keywordRule{
	{"Finance", []string{"finance", "accounting", "budget"}},
	{"HSE", []string{"hse", "safety", "health", "environment"}},
	{"HR", []string{"hr", "human-resources", "personnel"}},
	{"Operations", []string{"operations", "maintenance", "technical"}},
	{"Legal", []string{"legal", "compliance", "governance"}},
}

var departmentContentRules = []keywordRule{
	{"Finance", []string{"revenue", "expense", "budget", "financial"}},
	{"HSE", []string{"incident", "safety", "environmental", "hazard"}},
	{"HR", []string{"employee", "personnel", "training", "performance"}},
	{"Operations", []string{"procedure", "maintenance", "operation", "technical"}},
}

var documentTypeNameRules = []keywordRule{
	{"policy", []string{"policy", "policies"}},
	{"procedure", []string{"procedure", "process", "sop"}},
	{"manual", []string{"manual", "guide", "handbook"}},
	{"report", []string{"report", "analysis", "summary"}},
	{"form", []string{"form", "template", "checklist"}},
}

func firstMatch(text string, rules []keywordRule) string {
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.label
			}
		}
	}
	return ""
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// DetermineDepartment checks the path first and then the content
func DetermineDepartment(filename, content string) string {
	if dept := firstMatch(strings.ToLower(filename), departmentPathRules); dept != "" {
		return dept
	}
	if dept := firstMatch(strings.ToLower(content), departmentContentRules); dept != "" {
		return dept
	}
	return "General"
}

// DetermineDocumentType checks the file name first and then the content
func DetermineDocumentType(filename, content string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
	if docType := firstMatch(name, documentTypeNameRules); docType != "" {
		return docType
	}

	text := strings.ToLower(content)
	switch {
	case containsAny(text, "policy statement", "this policy"):
		return "policy"
	case containsAny(text, "step 1", "procedure", "instructions"):
		return "procedure"
	case strings.Contains(text, "report") && containsAny(text, "summary", "findings", "analysis"):
		return "report"
	}
	return "document"
}

// DetermineAccessLevel grades sensitivity from content markers and department
func DetermineAccessLevel(content, department string) string {
	text := strings.ToLower(content)
	switch {
	case containsAny(text, "confidential", "restricted", "internal only", "proprietary"):
		return "confidential"
	case containsAny(text, "sensitive", "private", "limited access"):
		return "restricted"
	case department == "Finance" || department == "HR" || department == "Legal":
		return "restricted"
	}
	return "public"
}
