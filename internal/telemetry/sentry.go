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

// Package telemetry wires error reporting and metrics into the HTTP service.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

const (
	flushTimeout = 5 * time.Second
	healthPath   = "/health"
)

// InitSentry configures the sentry client. Without a DSN it does nothing and
// the returned flush function is a no-op. A failed init is logged, not fatal.
func InitSentry(cfg config.SentryConfig, serviceName string, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		logger.Info("Sentry disabled, no DSN configured")
		return func() {}
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "development"
	}
	sampleRate := cfg.TracesSampleRate

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          cfg.Release,
		ServerName:       serviceName,
		EnableTracing:    sampleRate > 0,
		TracesSampleRate: sampleRate,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET "+healthPath {
				return 0.0
			}
			return sampleRate
		}),
	})
	if err != nil {
		logger.Warn("Failed to initialize sentry, continuing without it", zap.Error(err))
		return func() {}
	}

	logger.Info("Sentry initialized",
		zap.String("environment", environment),
		zap.Float64("traces_sample_rate", sampleRate))

	return func() { sentry.Flush(flushTimeout) }
}

// CaptureError reports err on the hub bound to ctx, or the global hub
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// SentryMiddleware opens a transaction per request, reports panics and
// records 5xx responses. It is safe to install when sentry is disabled.
func SentryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.GetHubFromContext(c.Request.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceRoute),
		}
		if trace := c.GetHeader(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, c.GetHeader(sentry.SentryBaggageHeader)))
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		transaction := sentry.StartTransaction(c.Request.Context(),
			fmt.Sprintf("%s %s", c.Request.Method, route), options...)
		defer transaction.Finish()

		ctx := sentry.SetHubOnContext(transaction.Context(), hub)
		c.Request = c.Request.WithContext(ctx)

		hub.Scope().SetContext("request", map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_addr": c.ClientIP(),
		})
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}

		defer func() {
			if rec := recover(); rec != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(ctx, rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		transaction.Status = spanStatus(status)
		transaction.SetData("http.response.status_code", status)

		for _, ginErr := range c.Errors {
			hub.CaptureException(ginErr.Err)
		}
		if status >= http.StatusInternalServerError && len(c.Errors) == 0 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)))
		}
	}
}

func spanStatus(status int) sentry.SpanStatus {
	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status == http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case status == http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status == http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
