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

package docproc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

type memoryStore struct {
	docs []knowledge.Document
	err  error
}

func (m *memoryStore) Upsert(_ context.Context, doc knowledge.Document) error {
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, doc)
	return nil
}

func TestProcess_TextDocument(t *testing.T) {
	store := &memoryStore{}
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, tagSystemPrompt, mock.AnythingOfType("string")).
		Return("Safety, PPE, Wind Turbines, climbing, rescue, extra", nil).Once()

	processor := NewProcessor(completer, store, zaptest.NewLogger(t))
	processor.now = func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }

	body := []byte("Step 1: inspect the harness.\nThis procedure covers tower climbing hazards.")
	result, err := processor.Process(context.Background(), "hse/tower-climbing_procedure.txt", "text/plain; charset=utf-8", body)
	require.NoError(t, err)

	assert.Equal(t, DocumentID("hse/tower-climbing_procedure.txt"), result.ID)
	assert.Len(t, result.ID, 32)
	assert.Equal(t, "Tower Climbing Procedure", result.Title)
	assert.Equal(t, "Upload", result.Source)
	assert.Equal(t, "HSE", result.Department)
	assert.Equal(t, "procedure", result.DocumentType)
	assert.Equal(t, "public", result.AccessLevel)
	assert.Equal(t, string(body), result.Content)
	assert.Equal(t, []string{"safety", "ppe", "wind turbines", "climbing", "rescue"}, result.Tags)
	assert.True(t, result.Stored)

	require.Len(t, store.docs, 1)
	doc := store.docs[0]
	assert.Equal(t, result.ID, doc.ID)
	assert.Equal(t, "hse", doc.Category)
	assert.Equal(t, "2024-06-03T09:00:00Z", doc.CreatedDate)
	assert.NoError(t, doc.Validate())

	completer.AssertExpectations(t)
}

func TestProcess_Placeholders(t *testing.T) {
	processor := NewProcessor(nil, nil, nil)

	pdf, err := processor.Process(context.Background(), "Q2 report.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, pdfPlaceholder, pdf.Content)
	assert.Equal(t, "report", pdf.DocumentType)
	assert.Equal(t, DefaultTags, pdf.Tags)
	assert.False(t, pdf.Stored)

	image, err := processor.Process(context.Background(), "site.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, imagePlaceholder, image.Content)

	other, err := processor.Process(context.Background(), "budget.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, "Document processed: budget.xlsx\nContent extracted successfully.", other.Content)
	assert.Equal(t, "Finance", other.Department)
	assert.Equal(t, "restricted", other.AccessLevel)
}

func TestProcess_DetectsMissingContentType(t *testing.T) {
	result, err := NewProcessor(nil, nil, nil).Process(context.Background(), "notes", "", []byte("plain words about maintenance"))
	require.NoError(t, err)
	assert.Equal(t, "plain words about maintenance", result.Content)
	assert.Equal(t, "Operations", result.Department)
}

func TestProcess_Errors(t *testing.T) {
	processor := NewProcessor(nil, &memoryStore{err: errors.New("disk full")}, nil)

	_, err := processor.Process(context.Background(), "", "text/plain", []byte("x"))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = processor.Process(context.Background(), "a.txt", "text/plain", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	result, err := processor.Process(context.Background(), "a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	assert.False(t, result.Stored)
}

func TestTagFallbacks(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited")).Once()
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(" , ", nil).Once()

	processor := NewProcessor(completer, nil, nil)
	assert.Equal(t, DefaultTags, processor.generateTags(context.Background(), "text"))
	assert.Equal(t, DefaultTags, processor.generateTags(context.Background(), "text"))
	completer.AssertExpectations(t)
}

func TestDetermineDepartment(t *testing.T) {
	tests := []struct {
		filename string
		content  string
		want     string
	}{
		{"finance/q2.txt", "", "Finance"},
		{"legal/contract.txt", "", "Legal"},
		{"misc/notes.txt", "An incident was logged", "HSE"},
		{"misc/notes.txt", "new employee onboarding", "HR"},
		{"misc/notes.txt", "nothing to see", "General"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetermineDepartment(tt.filename, tt.content), tt.filename+" "+tt.content)
	}
}

func TestDetermineDocumentTypeAndAccess(t *testing.T) {
	assert.Equal(t, "policy", DetermineDocumentType("Travel_Policy.docx", ""))
	assert.Equal(t, "manual", DetermineDocumentType("blade-guide.pdf", ""))
	assert.Equal(t, "form", DetermineDocumentType("ppe_checklist.txt", ""))
	assert.Equal(t, "policy", DetermineDocumentType("notes.txt", "This policy applies to all sites"))
	assert.Equal(t, "report", DetermineDocumentType("notes.txt", "Incident report with key findings"))
	assert.Equal(t, "document", DetermineDocumentType("notes.txt", "hello"))

	assert.Equal(t, "confidential", DetermineAccessLevel("CONFIDENTIAL pricing", "General"))
	assert.Equal(t, "restricted", DetermineAccessLevel("private notes", "General"))
	assert.Equal(t, "restricted", DetermineAccessLevel("", "HR"))
	assert.Equal(t, "public", DetermineAccessLevel("", "Operations"))
}
