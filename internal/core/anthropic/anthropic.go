// Package anthropic generates GitHub issue titles from raw developer notes
// using the Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	model          = "claude-haiku-4-5-20251001"

	systemPrompt = "You are a GitHub issue title generator. Given raw developer thoughts " +
		"and optional project context (CLAUDE.md), generate a concise, simple, and clear " +
		"issue title. Title should be short as possible. Output ONLY the title, nothing else."
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("anthropic: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the Anthropic messages API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient creates a client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateTitle produces an issue title from raw input, optionally grounded
// on the repo's cached CLAUDE.md content.
func (c *Client) GenerateTitle(ctx context.Context, rawInput, claudeMd, repoName string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\n\nRaw input:\n%s", repoName, rawInput)
	if claudeMd != "" {
		fmt.Fprintf(&sb, "\n\nProject context (CLAUDE.md):\n%s", claudeMd)
	}

	resp, err := c.messages(ctx, messagesRequest{
		Model:     model,
		MaxTokens: 100,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: sb.String()}},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty response content")
	}
	return strings.TrimSpace(resp.Content[0].Text), nil
}

// TestConnection sends a minimal request to verify the API key works.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.messages(ctx, messagesRequest{
		Model:     model,
		MaxTokens: 10,
		Messages:  []message{{Role: "user", Content: "Hi"}},
	})
	return err
}

func (c *Client) messages(ctx context.Context, payload messagesRequest) (messagesResponse, error) {
	var out messagesResponse

	data, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("anthropic: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return out, fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("anthropic: request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("anthropic: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("anthropic: decode response: %w", err)
	}
	return out, nil
}
