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

// Package search talks to the Azure Cognitive Search REST API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
)

// DefaultAPIVersion is the REST API version sent with every request
const DefaultAPIVersion = "2023-11-01"

// ErrNotConfigured is returned when the endpoint or key is missing
var ErrNotConfigured = errors.New("search service is not configured")

// Client wraps the Azure Cognitive Search REST API for one index
type Client struct {
	endpoint       string
	apiKey         string
	index          string
	apiVersion     string
	httpClient     *http.Client
	logger         *zap.Logger
	maxRetries     int
	baseRetryDelay time.Duration
}

// NewClient creates a client from the search configuration
func NewClient(cfg config.SearchConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	index := cfg.Index
	if index == "" {
		index = knowledge.DefaultIndexName
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:         cfg.APIKey,
		index:          index,
		apiVersion:     apiVersion,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
		maxRetries:     3,
		baseRetryDelay: time.Second,
	}, nil
}

// WithRetry overrides the retry policy
func (c *Client) WithRetry(maxRetries int, baseDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.baseRetryDelay = baseDelay
	return c
}

// Index returns the target index name
func (c *Client) Index() string { return c.index }

// Endpoint returns the service endpoint
func (c *Client) Endpoint() string { return c.endpoint }

// ServiceError is the error envelope returned by the search service
type ServiceError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("search service error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the request may succeed when repeated
func (e *ServiceError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable ||
		e.StatusCode >= http.StatusInternalServerError
}

// ItemResult is the per-document outcome of an indexing call
type ItemResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StatusCode   int    `json:"statusCode"`
}

// IndexResult summarises an indexing call
type IndexResult struct {
	Items     []ItemResult `json:"value"`
	Succeeded int          `json:"-"`
	Failed    int          `json:"-"`
}

// FailedKeys returns the ids the service rejected
func (r IndexResult) FailedKeys() []string {
	var keys []string
	for _, item := range r.Items {
		if !item.Status {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

// IndexDocuments uploads documents to the index. Documents without an action
// are sent as mergeOrUpload so repeated uploads overwrite.
func (c *Client) IndexDocuments(ctx context.Context, docs []knowledge.Document) (IndexResult, error) {
	if err := (knowledge.Batch{Value: docs}).Validate(); err != nil {
		return IndexResult{}, err
	}

	batch := knowledge.Batch{Value: make([]knowledge.Document, len(docs))}
	for i, doc := range docs {
		if doc.Action == "" {
			doc.Action = knowledge.ActionMergeOrUpload
		}
		batch.Value[i] = doc
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return IndexResult{}, fmt.Errorf("failed to marshal documents: %w", err)
	}

	c.logger.Info("Indexing documents",
		zap.String("index", c.index),
		zap.Int("document_count", len(docs)))

	var result IndexResult
	err = c.retryWithBackoff(ctx, func() error {
		resp, err := c.do(ctx, http.MethodPost, c.indexURL("docs/index"), payload)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		result = IndexResult{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode index response: %w", err)
		}
		return nil
	}, "IndexDocuments")
	if err != nil {
		return IndexResult{}, err
	}

	for _, item := range result.Items {
		if item.Status {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	c.logger.Info("Indexed documents",
		zap.String("index", c.index),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
}

type searchResponse struct {
	Value []knowledge.Document `json:"value"`
}

// Search runs a full text query and returns at most top documents
func (c *Client) Search(ctx context.Context, text string, top int) ([]knowledge.Document, error) {
	if top <= 0 {
		top = 3
	}

	payload, err := json.Marshal(searchRequest{Search: text, Top: top})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.indexURL("docs/search"), payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(out.Value) > top {
		out.Value = out.Value[:top]
	}
	return out.Value, nil
}

// HealthCheck verifies the index exists and the key is accepted
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.indexURL(""), nil)
	if err != nil {
		return fmt.Errorf("search health check failed: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

func (c *Client) indexURL(suffix string) string {
	path := c.endpoint + "/indexes/" + url.PathEscape(c.index)
	if suffix != "" {
		path += "/" + suffix
	}
	return path + "?api-version=" + url.QueryEscape(c.apiVersion)
}

// do performs a request and converts non-2xx answers into ServiceError
func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	// 207 carries per-document failures in the body
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		svcErr := &ServiceError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error ServiceError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
			svcErr.Code = envelope.Error.Code
			svcErr.Message = envelope.Error.Message
		} else {
			svcErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, svcErr
	}

	return resp, nil
}

// retryWithBackoff repeats retryable failures with exponential delays
func (c *Client) retryWithBackoff(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
			c.logger.Info("Retrying operation after delay",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		var svcErr *ServiceError
		if errors.As(err, &svcErr) && !svcErr.Retryable() {
			return err
		}

		c.logger.Warn("Operation failed, will retry",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	c.logger.Error("Operation failed after all retries",
		zap.String("operation", operationName),
		zap.Int("max_retries", c.maxRetries),
		zap.Error(lastErr))
	return fmt.Errorf("operation failed after %d retries: %w", c.maxRetries, lastErr)
}
