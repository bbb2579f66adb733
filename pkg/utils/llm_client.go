package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ChatMessage represents a chat message
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a chat response from an LLM provider
type ChatResponse struct {
	// Model that produced the response
	Model string `json:"model"`

	// Message is the assistant message
	Message ChatMessage `json:"message"`

	// Done indicates the provider finished generating
	Done bool `json:"done"`

	// Raw is the full provider payload
	Raw map[string]interface{} `json:"raw,omitempty"`
}

// ModelInfo is model metadata returned by an LLM provider
type ModelInfo struct {
	Name string `json:"name"`
}

// LLMClient is the capability contract the engine requires from an LLM
// provider: model listing and a single-shot chat call
type LLMClient interface {
	// ListModels lists available models from the provider
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Chat sends chat messages to the provider
	Chat(ctx context.Context, model string, messages []ChatMessage) (*ChatResponse, error)
}

// OllamaClient is an LLMClient for an Ollama-compatible model server
type OllamaClient struct {
	baseURL string
	http    *HTTPClient
}

// NewOllamaClient creates a client for the given base URL with a bounded
// per-call timeout
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(timeout),
	}
}

// ListModels lists available models from the provider
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.http.Do(ctx, &HTTPRequest{
		URL: c.baseURL + "/api/tags",
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(resp.RawBody)}
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.RawBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	models := make([]ModelInfo, 0, len(payload.Models))
	for _, model := range payload.Models {
		models = append(models, ModelInfo{Name: model.Name})
	}

	return models, nil
}

// Chat sends chat messages to the provider with streaming disabled
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []ChatMessage) (*ChatResponse, error) {
	resp, err := c.http.Do(ctx, &HTTPRequest{
		URL:    c.baseURL + "/api/chat",
		Method: "POST",
		Body: map[string]interface{}{
			"model":    model,
			"messages": messages,
			"stream":   false,
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(resp.RawBody)}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(resp.RawBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	chatResp := &ChatResponse{
		Model: model,
		Raw:   raw,
	}
	if name, ok := raw["model"].(string); ok && name != "" {
		chatResp.Model = name
	}
	if done, ok := raw["done"].(bool); ok {
		chatResp.Done = done
	}
	if message, ok := raw["message"].(map[string]interface{}); ok {
		if role, ok := message["role"].(string); ok {
			chatResp.Message.Role = role
		}
		if content, ok := message["content"].(string); ok {
			chatResp.Message.Content = content
		}
	}

	return chatResp, nil
}
