// Package github is a minimal GitHub REST v3 client covering the endpoints
// the sync engine polls: issues, pull requests, reviews, repo search, and
// file contents. Rate-limit counters are tracked from response headers so
// the poller can back off before exhausting the quota.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	acceptHeader   = "application/vnd.github+json"
	perPage        = 30
)

// ErrNotFound is returned for 404 responses, including missing repository
// files fetched via FetchFileContent.
var ErrNotFound = errors.New("github: not found")

// StatusError is a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the GitHub REST API with a personal access token.
// Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu                 sync.RWMutex
	token              string
	rateLimitRemaining int
	rateLimitReset     time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used for GitHub Enterprise and
// tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client authenticated with the given token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:            defaultBaseURL,
		http:               &http.Client{Timeout: 15 * time.Second},
		token:              token,
		rateLimitRemaining: 5000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// RateLimitRemaining returns the quota remaining as of the last response.
func (c *Client) RateLimitRemaining() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimitRemaining
}

// RateLimitReset returns when the quota window resets, zero if unknown.
func (c *Client) RateLimitReset() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimitReset
}

// ValidateToken fetches the authenticated user, proving the token works.
func (c *Client) ValidateToken(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/user", nil, &user)
	return user, err
}

// SearchRepos searches repositories by query string.
func (c *Client) SearchRepos(ctx context.Context, query string) (RepoSearchResult, error) {
	var result RepoSearchResult
	path := "/search/repositories?q=" + url.QueryEscape(query) + "&per_page=20"
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

// ListIssues returns one page of open issues for a repo. The issues endpoint
// also returns pull requests; callers filter with Issue.IsPullRequest.
func (c *Client) ListIssues(ctx context.Context, repo string, page int) ([]Issue, error) {
	var issues []Issue
	path := fmt.Sprintf("/repos/%s/issues?state=open&per_page=%d&page=%d", repo, perPage, page)
	err := c.do(ctx, http.MethodGet, path, nil, &issues)
	return issues, err
}

// GetIssue fetches a single issue.
func (c *Client) GetIssue(ctx context.Context, repo string, number int) (Issue, error) {
	var issue Issue
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/issues/%d", repo, number), nil, &issue)
	return issue, err
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, repo, title, body string) (Issue, error) {
	payload := struct {
		Title string `json:"title"`
		Body  string `json:"body,omitempty"`
	}{Title: title, Body: body}

	var issue Issue
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/issues", repo), payload, &issue)
	return issue, err
}

// AssignIssue adds assignees to an issue.
func (c *Client) AssignIssue(ctx context.Context, repo string, number int, assignees []string) (Issue, error) {
	payload := struct {
		Assignees []string `json:"assignees"`
	}{Assignees: assignees}

	var issue Issue
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/issues/%d/assignees", repo, number), payload, &issue)
	return issue, err
}

// GetPullRequest fetches PR detail.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	var pr PullRequest
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/pulls/%d", repo, number), nil, &pr)
	return pr, err
}

// GetPullRequestReviews fetches all submitted reviews for a PR.
func (c *Client) GetPullRequestReviews(ctx context.Context, repo string, number int) ([]Review, error) {
	var reviews []Review
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/pulls/%d/reviews", repo, number), nil, &reviews)
	return reviews, err
}

// FetchFileContent fetches a file from the repo's default branch via the
// contents API and decodes it. Returns ErrNotFound when the file does not
// exist, which callers treat as a normal outcome.
func (c *Client) FetchFileContent(ctx context.Context, repo, path string) (string, error) {
	var resp struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}

	escaped := url.PathEscape(path)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/contents/%s", repo, escaped), nil, &resp); err != nil {
		return "", err
	}

	if resp.Encoding != "base64" {
		return "", fmt.Errorf("github: unexpected content encoding %q", resp.Encoding)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("github: decode file content: %w", err)
	}

	return string(raw), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("github: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("github: create request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.trackRateLimit(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("github: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("github: decode response: %w", err)
	}
	return nil
}

func (c *Client) trackRateLimit(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.rateLimitRemaining = n
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.rateLimitReset = time.Unix(ts, 0)
		}
	}
}
