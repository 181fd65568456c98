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

// Package api exposes the assistant over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
	"github.com/swire-renewables/intelligence-assistant/internal/docproc"
	"github.com/swire-renewables/intelligence-assistant/internal/health"
	"github.com/swire-renewables/intelligence-assistant/internal/orchestrator"
	"github.com/swire-renewables/intelligence-assistant/internal/telemetry"
)

const (
	// ServiceName is reported by the root and health endpoints
	ServiceName = "Swire Intelligence Assistant"
	// Version of the HTTP API
	Version = "2.0.0"

	defaultMaxUploadBytes = 32 << 20
)

var (
	// ErrEmptyQuery is returned for requests without a query field. An empty
	// string is a valid query.
	ErrEmptyQuery = errors.New("query is required")
	// ErrInvalidBody is returned for bodies that are not a JSON request object
	ErrInvalidBody = errors.New("request body must be a JSON object")
)

var (
	features  = []string{"Enhanced Agent Core", "Tool Orchestration", "Intent Analysis", "Multi-Agent Synthesis", "Document Processing"}
	endpoints = []string{"/chat", "/health", "/tools", "/status", "/history", "/agents/status", "/agents/collaboration", "/analyze", "/agents/orchestrate", "/process-document", "/metrics"}
)

// Dependencies are the services behind the handlers. Processor, Health and
// Metrics get defaults when nil.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Processor    *docproc.Processor
	Health       *health.Manager
	Metrics      *telemetry.Metrics
	Logger       *zap.Logger
}

// Server holds the HTTP handlers
type Server struct {
	cfg          config.ServerConfig
	orchestrator *orchestrator.Orchestrator
	processor    *docproc.Processor
	health       *health.Manager
	metrics      *telemetry.Metrics
	logger       *zap.Logger
}

// NewServer creates the HTTP server handlers
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Processor == nil {
		deps.Processor = docproc.NewProcessor(nil, nil, logger)
	}
	if deps.Health == nil {
		deps.Health = health.NewManager(ServiceName, Version, "", logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NewMetrics()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	return &Server{
		cfg:          cfg,
		orchestrator: deps.Orchestrator,
		processor:    deps.Processor,
		health:       deps.Health,
		metrics:      deps.Metrics,
		logger:       logger,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.cfg.MaxUploadBytes

	router.Use(
		telemetry.RequestID(),
		RequestLogger(s.logger),
		gin.Recovery(),
		CORS(s.cfg.CORS.AllowedOrigins),
		s.metrics.Middleware(),
		telemetry.SentryMiddleware(),
	)
	if s.cfg.RateLimit.Enabled {
		router.Use(RateLimiter(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst))
	}

	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers the assistant routes on router
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.root)
	router.GET("/health", s.healthCheck)
	router.GET("/metrics", s.metrics.Handler())

	router.POST("/chat", s.chat)
	router.GET("/tools", s.tools)
	router.GET("/status", s.status)
	router.GET("/history", s.history)
	router.POST("/analyze", s.analyze)
	router.POST("/process-document", s.processDocument)

	agents := router.Group("/agents")
	{
		agents.GET("/status", s.status)
		agents.GET("/collaboration", s.collaborations)
		agents.POST("/orchestrate", s.orchestrate)
	}
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Query         *string `json:"query"`
	UseAgent      *bool   `json:"use_agent"`
	UseMultiAgent *bool   `json:"use_multi_agent"`
}

// ChatResponse is the reply of POST /chat
type ChatResponse struct {
	Response   string   `json:"response"`
	ToolsUsed  []string `json:"tools_used"`
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
}

// QueryRequest is the body of the analysis and orchestration endpoints
type QueryRequest struct {
	Query *string `json:"query"`
}

func flag(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// bindQuery decodes the body into req and returns its query. It answers 400
// and returns false for a missing body, malformed JSON or an absent query.
func (s *Server) bindQuery(c *gin.Context, req interface{}, query func() *string) (string, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		s.badRequest(c, err)
		return "", false
	}
	q := query()
	if q == nil {
		s.badRequest(c, ErrEmptyQuery)
		return "", false
	}
	return *q, true
}

func (s *Server) badRequest(c *gin.Context, err error) {
	detail := ErrInvalidBody
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, ErrEmptyQuery):
		detail = ErrEmptyQuery
	default:
		s.logger.Debug("Rejected request body",
			zap.Error(err),
			zap.String("request_id", c.GetString(telemetry.RequestIDKey)))
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": detail.Error()})
}

func (s *Server) internalError(c *gin.Context, message string, err error) {
	s.logger.Error(message, zap.Error(err), zap.String("request_id", c.GetString(telemetry.RequestIDKey)))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "🧠 Swire Intelligence Assistant API",
		"version":   Version,
		"features":  features,
		"endpoints": endpoints,
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	report := s.health.Check(c.Request.Context())
	c.JSON(report.HTTPStatus(), report)
}

func (s *Server) chat(c *gin.Context) {
	var req ChatRequest
	query, ok := s.bindQuery(c, &req, func() *string { return req.Query })
	if !ok {
		return
	}

	ctx := c.Request.Context()

	var (
		resp *orchestrator.Response
		err  error
	)
	if flag(req.UseAgent, true) {
		resp, err = s.orchestrator.Process(ctx, query, flag(req.UseMultiAgent, true))
	} else {
		resp, err = s.orchestrator.Simple(ctx, query)
	}
	if err != nil {
		s.internalError(c, "Chat request failed", err)
		return
	}

	s.metrics.ObserveQuery(resp.Intent, resp.CollaborationType)
	c.JSON(http.StatusOK, ChatResponse{
		Response:   resp.Response,
		ToolsUsed:  resp.ToolsUsed,
		Intent:     resp.Intent,
		Confidence: resp.Confidence,
	})
}

func (s *Server) orchestrate(c *gin.Context) {
	var req QueryRequest
	query, ok := s.bindQuery(c, &req, func() *string { return req.Query })
	if !ok {
		return
	}

	resp, err := s.orchestrator.Process(c.Request.Context(), query, true)
	if err != nil {
		s.internalError(c, "Orchestration failed", err)
		return
	}

	s.metrics.ObserveQuery(resp.Intent, resp.CollaborationType)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) analyze(c *gin.Context) {
	var req QueryRequest
	query, ok := s.bindQuery(c, &req, func() *string { return req.Query })
	if !ok {
		return
	}

	classifier := s.orchestrator.Classifier()
	c.JSON(http.StatusOK, gin.H{
		"query":      query,
		"analysis":   classifier.Classify(query),
		"complexity": classifier.AnalyzeComplexity(query),
	})
}

func (s *Server) tools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.orchestrator.Registry().Describe()})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.Status(c.Request.Context()))
}

func (s *Server) history(c *gin.Context) {
	store := s.orchestrator.History()
	records, err := store.List(c.Request.Context())
	if err != nil {
		s.internalError(c, "Failed to read history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history":  records,
		"count":    len(records),
		"capacity": store.Capacity(),
	})
}

func (s *Server) collaborations(c *gin.Context) {
	collaborations := s.orchestrator.Collaborations()
	c.JSON(http.StatusOK, gin.H{
		"collaborations": collaborations,
		"count":          len(collaborations),
	})
}

type documentResponse struct {
	Success bool `json:"success"`
	*docproc.Result
}

// processDocument answers 200 with success=false on every failure so that
// clients handle a single response shape
func (s *Server) processDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		s.documentFailure(c, fmt.Errorf("file upload is required: %w", err))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.documentFailure(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.documentFailure(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	result, err := s.processor.Process(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.documentFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, documentResponse{Success: true, Result: result})
}

func (s *Server) documentFailure(c *gin.Context, err error) {
	s.logger.Warn("Document processing failed", zap.Error(err))
	c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
}
