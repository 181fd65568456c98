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

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap/zaptest"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

// createMockChatResponse creates a mock chat completion response
func createMockChatResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

// mockOpenAIServer serves chat completions with the given content
func mockOpenAIServer(t testing.TB, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": {"message": "not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse(content)))
	}))
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	client, err := NewClient(config.OpenAIConfig{
		APIKey:      "sk-test1234567890abcdef", // pragma: allowlist secret
		Endpoint:    serverURL + "/v1",
		MaxTokens:   100,
		Temperature: 0.5,
		MaxRetries:  3,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	client.retryDelay = 10 * time.Millisecond
	return client
}

func TestNewClient(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewClient(config.OpenAIConfig{}, logger)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}

	client, err := NewClient(config.OpenAIConfig{APIKey: "sk-test"}, logger) // pragma: allowlist secret
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.Model() != DefaultModel {
		t.Errorf("Expected default model %s, got %s", DefaultModel, client.Model())
	}
	if client.maxRetries != DefaultMaxRetries {
		t.Errorf("Expected default retries %d, got %d", DefaultMaxRetries, client.maxRetries)
	}
	if client.azure {
		t.Error("Expected non-Azure client")
	}
}

func TestCreateChatCompletion(t *testing.T) {
	server := mockOpenAIServer(t, "This is a test response")
	defer server.Close()

	c := newTestClient(t, server.URL)

	response, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello, how are you?"},
		},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}

	if response.Content != "This is a test response" {
		t.Errorf("Expected 'This is a test response', got '%s'", response.Content)
	}

	if response.FinishReason != "stop" {
		t.Errorf("Expected 'stop', got '%s'", response.FinishReason)
	}

	if response.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", response.Usage.TotalTokens)
	}
}

func TestComplete_SendsSystemAndUserMessages(t *testing.T) {
	var received openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse("Blade inspections run quarterly")))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	reply, err := c.Complete(context.Background(), BuildSystemPrompt(), "When are blades inspected?")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Blade inspections run quarterly" {
		t.Errorf("Unexpected reply %q", reply)
	}

	if len(received.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(received.Messages))
	}
	if received.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("Expected system message first, got %s", received.Messages[0].Role)
	}
	if received.MaxTokens != 100 {
		t.Errorf("Expected configured max tokens 100, got %d", received.MaxTokens)
	}
	if received.Model != DefaultModel {
		t.Errorf("Expected model %s, got %s", DefaultModel, received.Model)
	}
}

func TestRetryLogic(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse("ok after retry")))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	reply, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if reply != "ok after retry" {
		t.Errorf("Unexpected reply %q", reply)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetryLogic_Exhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Complete(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "exhausted all retry attempts") {
		t.Errorf("Unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestErrorHandling_NonRetryable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Complete(context.Background(), "system", "user")
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse("late")))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "system", "user")
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
	if !strings.Contains(err.Error(), "context deadline exceeded") {
		t.Errorf("Expected context deadline exceeded error, got: %v", err)
	}
}

func TestAzureClientRoutesToDeployment(t *testing.T) {
	var path, apiKey, apiVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("api-key")
		apiVersion = r.URL.Query().Get("api-version")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse("azure reply")))
	}))
	defer server.Close()

	c, err := NewClient(config.OpenAIConfig{
		APIKey:          "azure-key-123", // pragma: allowlist secret
		AzureEndpoint:   server.URL,
		AzureDeployment: "swire-gpt4o",
		APIVersion:      "2024-02-01",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	reply, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if reply != "azure reply" {
		t.Errorf("Unexpected reply %q", reply)
	}
	if path != "/openai/deployments/swire-gpt4o/chat/completions" {
		t.Errorf("Unexpected Azure path %s", path)
	}
	if apiKey != "azure-key-123" {
		t.Errorf("Expected api-key header, got %q", apiKey)
	}
	if apiVersion != "2024-02-01" {
		t.Errorf("Expected api-version 2024-02-01, got %q", apiVersion)
	}
}

func TestBuildPrompts(t *testing.T) {
	if !strings.Contains(BuildSystemPrompt(), "Swire Renewables") {
		t.Error("System prompt should name the company")
	}

	prompt := BuildTagPrompt(strings.Repeat("a", 2000))
	if !strings.Contains(prompt, "comma-separated") {
		t.Error("Tag prompt should ask for a comma-separated list")
	}
	if !strings.HasSuffix(prompt, "...") {
		t.Error("Tag prompt should truncate long content")
	}
}

func TestParseTags(t *testing.T) {
	tags := ParseTags(` Safety, "PPE", , blade repair., Wind, Turbines, extra`, 5)

	expected := []string{"safety", "ppe", "blade repair", "wind", "turbines"}
	if len(tags) != len(expected) {
		t.Fatalf("Expected %d tags, got %v", len(expected), tags)
	}
	for i := range expected {
		if tags[i] != expected[i] {
			t.Errorf("Tag %d: expected %q, got %q", i, expected[i], tags[i])
		}
	}

	if len(ParseTags("", 5)) != 0 {
		t.Error("Expected no tags for empty reply")
	}
}

func TestTruncateText(t *testing.T) {
	if truncateText("short", 10) != "short" {
		t.Error("Short text should not be truncated")
	}
	if truncateText("0123456789abc", 10) != "0123456789..." {
		t.Error("Long text should be truncated with ellipsis")
	}
}
