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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
	"github.com/swire-renewables/intelligence-assistant/internal/history"
	"github.com/swire-renewables/intelligence-assistant/internal/orchestrator"
	"github.com/swire-renewables/intelligence-assistant/internal/tools"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTool struct {
	name string
	data string
}

func (s stubTool) Name() string                                { return s.name }
func (s stubTool) Description() string                         { return s.name + " data" }
func (s stubTool) Parameters() []string                        { return []string{"query"} }
func (s stubTool) Run(context.Context, string) (string, error) { return s.data, nil }

func newTestRouter(t *testing.T, cfg config.ServerConfig) *gin.Engine {
	t.Helper()

	logger := zaptest.NewLogger(t)
	registry := tools.NewRegistry(logger)
	registry.Register(stubTool{name: "finance", data: "Revenue $1,000"})
	registry.Register(stubTool{name: "database", data: "45,000 hours"})
	registry.Register(stubTool{name: "hse", data: "HSE ok"})
	registry.Register(stubTool{name: "knowledge", data: "Blade docs"})

	orch := orchestrator.New(registry, history.NewRing(10), orchestrator.Config{}, logger)
	return NewServer(cfg, Dependencies{Orchestrator: orch, Logger: logger}).Router()
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	root := decode(t, w)
	assert.Equal(t, "🧠 Swire Intelligence Assistant API", root["message"])
	assert.Equal(t, Version, root["version"])
	assert.Contains(t, root["endpoints"], "/agents/orchestrate")

	w = doJSON(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)
	assert.Equal(t, "healthy", report["status"])
	assert.Equal(t, "Swire Intelligence Assistant is running", report["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestChat(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/chat", `{"query": "What is our revenue?", "use_multi_agent": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"finance"}, resp.ToolsUsed)
	assert.Equal(t, "financial", resp.Intent)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.True(t, strings.HasPrefix(resp.Response, "Here's what I found for your query:"))

	w = doJSON(router, http.MethodPost, "/chat", `{"query": "compare wind and solar"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Response, "# Comparative Analysis: Wind Energy Vs Solar Energy"))
	assert.Contains(t, resp.Response, "**KNOWLEDGE DATA**: Blade docs")
}

func TestChat_SimpleMode(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/chat", `{"query": "hello there", "use_agent": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, orchestrator.GreetingMessage, resp.Response)
	assert.Equal(t, "general", resp.Intent)
	assert.Empty(t, resp.ToolsUsed)
}

func TestChat_BadRequests(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/chat", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrEmptyQuery.Error(), decode(t, w)["detail"])

	w = doJSON(router, http.MethodPost, "/chat", `{"use_agent": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrEmptyQuery.Error(), decode(t, w)["detail"])

	w = doJSON(router, http.MethodPost, "/chat", `{"query": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrInvalidBody.Error(), decode(t, w)["detail"])

	w = doJSON(router, http.MethodPost, "/chat", `{"query": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrInvalidBody.Error(), decode(t, w)["detail"])
}

func TestChat_EmptyQueryUsesKnowledge(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	for _, body := range []string{`{"query": ""}`, `{"query": "   "}`} {
		w := doJSON(router, http.MethodPost, "/chat", body)
		require.Equal(t, http.StatusOK, w.Code, body)

		var resp ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"knowledge"}, resp.ToolsUsed, body)
		assert.Contains(t, resp.Response, "Blade docs", body)
	}

	w := doJSON(router, http.MethodPost, "/agents/orchestrate", `{"query": ""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"knowledge"}, decode(t, w)["tools_used"])

	w = doJSON(router, http.MethodPost, "/analyze", `{"query": ""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode(t, w)["query"])
}

func TestChat_CancelledRequest(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query": "revenue"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, context.Canceled.Error(), decode(t, w)["detail"])
}

func TestAgentEndpoints(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/agents/orchestrate", `{"query": "financial dashboard"}`)
	require.Equal(t, http.StatusOK, w.Code)
	orchestrated := decode(t, w)
	assert.Equal(t, "multi_agent", orchestrated["collaboration_type"])
	assert.Equal(t, []interface{}{"finance"}, orchestrated["agents_used"])
	assert.Contains(t, orchestrated["response"], "# Swire Renewables Operations Dashboard")

	w = doJSON(router, http.MethodGet, "/agents/collaboration", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["count"])

	w = doJSON(router, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode(t, w)
	assert.Equal(t, 1.0, hist["count"])
	assert.Equal(t, 10.0, hist["capacity"])

	for _, path := range []string{"/status", "/agents/status"} {
		w = doJSON(router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code)
		var status orchestrator.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, 1, status.CoreAgent.Conversations)
		assert.Equal(t, 1, status.MultiAgentOrchestrator.Orchestrator.CollaborationsCompleted)
	}

	w = doJSON(router, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["tools"], "finance")
}

func TestAnalyze(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := doJSON(router, http.MethodPost, "/analyze", `{"query": "safety vs budget report"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	analysis := body["analysis"].(map[string]interface{})
	complexity := body["complexity"].(map[string]interface{})
	assert.Equal(t, []interface{}{"finance", "hse", "database"}, analysis["tools"])
	assert.Equal(t, true, complexity["has_comparison"])
	assert.Equal(t, true, complexity["needs_summary"])
	assert.Equal(t, true, complexity["requires_multiple_agents"])

	w = doJSON(router, http.MethodGet, "/history", "")
	assert.Equal(t, 0.0, decode(t, w)["count"])
}

func TestProcessDocument(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "maintenance_procedure.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Step 1: isolate the turbine."))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/process-document", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "maintenance_procedure.txt", result["filename"])
	assert.Equal(t, "Step 1: isolate the turbine.", result["content"])
	assert.Equal(t, "Operations", result["department"])
	assert.Equal(t, "procedure", result["document_type"])

	w = doJSON(router, http.MethodPost, "/process-document", "")
	require.Equal(t, http.StatusOK, w.Code)
	failure := decode(t, w)
	assert.Equal(t, false, failure["success"])
	assert.NotEmpty(t, failure["error"])
}

func TestMiddleware(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2},
	})

	w := doJSON(router, http.MethodOptions, "/chat", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = doJSON(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swire_assistant_http_requests_total")

	w = doJSON(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", decode(t, w)["detail"])
}

func TestCORS_AllowList(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://swire-re.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://swire-re.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://swire-re.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
