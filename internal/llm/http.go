package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default wire settings for OpenAI-compatible endpoints.
const (
	defaultBaseURL     = "https://api.groq.com/openai/v1"
	defaultModel       = "llama-3.3-70b-versatile"
	defaultTimeout     = 45 * time.Second
	defaultTemperature = 0.2
	defaultMaxTokens   = 4096
)

// HTTPConfig configures the HTTP client. Zero values fall back to the
// package defaults above.
type HTTPConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	FallbackModels []string
	Timeout        time.Duration
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
// On failure it walks the fallback model chain before giving up.
type HTTPClient struct {
	counters
	cfg        HTTPConfig
	httpClient *http.Client
}

// NewHTTPClient creates a client for the configured endpoint.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// chatMessage is one turn on the wire.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the completions request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// responseFormat asks the endpoint for strict JSON output.
type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the completions response body.
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete tries the primary model, then each fallback in order. Calls
// in the response counts every attempt made.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (Response, error) {
	c.requests.Add(1)

	messages := buildMessages(req)
	models := append([]string{c.cfg.Model}, c.cfg.FallbackModels...)
	jsonMode := req.Schema != ""

	calls := 0
	var lastErr error
	for _, model := range models {
		calls++
		c.modelCalls.Add(1)

		text, err := c.completeWithModel(ctx, model, messages, jsonMode)
		if err == nil {
			return Response{Text: text, Model: model, Calls: calls}, nil
		}
		lastErr = err

		// Context cancellation is final; trying another model would
		// just burn the caller's deadline.
		if ctx.Err() != nil {
			break
		}
	}

	c.failures.Add(1)
	return Response{Calls: calls}, fmt.Errorf("llm: all models failed: %w", lastErr)
}

func buildMessages(req Request) []chatMessage {
	var messages []chatMessage
	system := req.System
	if req.Schema != "" {
		system += "\n\nRespond with a single JSON document conforming to this schema:\n" + req.Schema
	}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	return messages
}

func (c *HTTPClient) completeWithModel(ctx context.Context, model string, messages []chatMessage, jsonMode bool) (string, error) {
	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request %s: %w", model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llm: parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: api error from %s: %s", model, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: unexpected status %d from %s", resp.StatusCode, model)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response from %s", model)
	}
	return parsed.Choices[0].Message.Content, nil
}
