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
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = openai.GPT4o
	// DefaultMaxRetries defines the maximum number of attempts when none is configured
	DefaultMaxRetries = 3
	// BaseRetryDelay defines the base delay for exponential backoff
	BaseRetryDelay = time.Second
	// DefaultTimeout bounds a single HTTP request to the API
	DefaultTimeout = 30 * time.Second
)

// ErrMissingAPIKey is returned when the client is built without credentials
var ErrMissingAPIKey = errors.New("API key is required")

// Client wraps the go-openai client with retry and logging
type Client struct {
	client      *openai.Client
	logger      *zap.Logger
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
	azure       bool
}

// RetryableError represents an error that can be retried
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a chat client for OpenAI, or for Azure OpenAI when
// an Azure endpoint is configured
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var clientConfig openai.ClientConfig
	azure := cfg.AzureEndpoint != ""
	if azure {
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
		deployment := cfg.AzureDeployment
		clientConfig.AzureModelMapperFunc = func(string) string {
			return deployment
		}
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			clientConfig.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
		}
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	client := &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		logger:      logger,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		maxRetries:  maxRetries,
		retryDelay:  BaseRetryDelay,
		azure:       azure,
	}

	client.logger.Info("OpenAI client initialized",
		zap.String("model", model),
		zap.Bool("azure", azure),
		zap.Int("max_retries", maxRetries),
	)

	return client, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Messages    []openai.ChatCompletionMessage
	MaxTokens   int
	Temperature float32
	Model       string
}

// ChatCompletionResponse represents the response from a chat completion
type ChatCompletionResponse struct {
	Content      string
	FinishReason string
	Usage        openai.Usage
}

// Complete sends a system and user message and returns the reply text
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CreateChatCompletion creates a chat completion with retry logic
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	c.logger.Debug("Creating chat completion",
		zap.String("model", req.Model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Float64("temperature", float64(req.Temperature)),
		zap.Int("message_count", len(req.Messages)),
	)

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completion request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
		if err != nil {
			lastErr = handleAPIError(err)

			var retryErr *RetryableError
			if errors.As(lastErr, &retryErr) {
				delay = c.retryDelay * time.Duration(1<<uint(attempt))
				c.logger.Warn("Retryable error encountered",
					zap.Error(lastErr),
					zap.Int("status_code", retryErr.StatusCode),
					zap.Duration("next_retry_delay", delay),
				)
				continue
			}

			c.logger.Error("Non-retryable error encountered",
				zap.Error(lastErr),
				zap.Int("attempt", attempt+1),
			)
			return nil, lastErr
		}

		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no choices returned from OpenAI")
		}

		c.logger.Debug("Chat completion successful",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
		)

		return &ChatCompletionResponse{
			Content:      resp.Choices[0].Message.Content,
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage:        resp.Usage,
		}, nil
	}

	c.logger.Error("All retry attempts exhausted",
		zap.Int("max_retries", c.maxRetries),
		zap.Error(lastErr),
	)

	return nil, fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// handleAPIError classifies API errors into retryable and terminal ones
func handleAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	// Error bodies that are not valid JSON surface as request errors
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= http.StatusInternalServerError {
		return &RetryableError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}

	return fmt.Errorf("OpenAI client error: %w", err)
}

// BuildSystemPrompt creates the system prompt for the operations assistant
func BuildSystemPrompt() string {
	return `You are the Swire Renewables Intelligence Assistant. You help operations, safety, finance and HR staff of a renewable energy inspection, repair and maintenance company.

When responding:
- Be concise and factual
- Prefer figures and schedules from the provided context over general knowledge
- Call out safety requirements whenever work on turbines, blades or high voltage systems is mentioned
- Say clearly when you do not know an answer`
}

// BuildTagPrompt asks for short classification tags for a document
func BuildTagPrompt(content string) string {
	return fmt.Sprintf(`Generate 3-5 relevant tags for this document content. Return only the tags as a comma-separated list.

Content: %s`, truncateText(content, 1000))
}

// ParseTags splits a comma separated model reply into at most limit clean tags
func ParseTags(reply string, limit int) []string {
	var tags []string
	for _, raw := range strings.Split(reply, ",") {
		tag := strings.Trim(strings.TrimSpace(raw), `"'.`)
		if tag == "" {
			continue
		}
		tags = append(tags, strings.ToLower(tag))
		if limit > 0 && len(tags) == limit {
			break
		}
	}
	return tags
}

// truncateText truncates text to a maximum length
func truncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + "..."
}
