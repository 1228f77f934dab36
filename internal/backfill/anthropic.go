package backfill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mcleblanc711/ResortFees/internal/config"
)

const defaultAnthropicURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Anthropic messages API. It satisfies
// TextUnderstander.
type ClaudeClient struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewClaudeClient builds a client from config, reading the API key from
// the ANTHROPIC_API_KEY environment variable. A missing key is reported
// as an error so the caller can run without backfill.
func NewClaudeClient(cfg config.LLMConfig) (*ClaudeClient, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not set")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultAnthropicURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &ClaudeClient{
		baseURL:   base,
		apiKey:    key,
		model:     cfg.Model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends a single user prompt and returns the first text block
// of the response.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("anthropic-version", "2023-06-01")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("anthropic status %d: %s", res.StatusCode, raw)
	}

	var out claudeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", errors.New("empty response content")
	}
	return out.Content[0].Text, nil
}
