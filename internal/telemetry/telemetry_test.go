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

package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics()

	router := gin.New()
	router.Use(metrics.Middleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", metrics.Handler())

	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "unmatched", "404")))

	metrics.ObserveTool("finance", "success", 20*time.Millisecond)
	metrics.ObserveTool("finance", "error", time.Millisecond)
	metrics.ObserveQuery("financial", "single")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolRuns.WithLabelValues("finance", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.queries.WithLabelValues("financial", "single")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swire_assistant_tool_runs_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestInitSentryWithoutDSN(t *testing.T) {
	flush := InitSentry(config.SentryConfig{}, "assistant", zaptest.NewLogger(t))
	require.NotNil(t, flush)
	flush()

	CaptureError(context.Background(), nil)
	CaptureError(context.Background(), errors.New("reported to a disabled client"))
}

func TestSentryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), SentryMiddleware())
	router.GET("/ok", func(c *gin.Context) {
		if sentry.GetHubFromContext(c.Request.Context()) == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSpanStatus(t *testing.T) {
	assert.Equal(t, sentry.SpanStatusOK, spanStatus(http.StatusCreated))
	assert.Equal(t, sentry.SpanStatusResourceExhausted, spanStatus(http.StatusTooManyRequests))
	assert.Equal(t, sentry.SpanStatusInvalidArgument, spanStatus(http.StatusBadRequest))
	assert.Equal(t, sentry.SpanStatusUnavailable, spanStatus(http.StatusServiceUnavailable))
	assert.Equal(t, sentry.SpanStatusInternalError, spanStatus(http.StatusBadGateway))
}
