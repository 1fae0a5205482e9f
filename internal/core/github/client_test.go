package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithBaseURL(srv.URL))
}

func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	})

	user, err := client.ValidateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
}

func TestSetTokenAppliesToNextRequest(t *testing.T) {
	t.Parallel()

	var got string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	client.SetToken("rotated")
	_, err := client.ValidateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer rotated", got)
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	_, err := client.GetIssue(context.Background(), "acme/widgets", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNonOKStatusError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	_, err := client.ValidateToken(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Message, "bad credentials")
}

func TestRateLimitTracking(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(time.Hour).Unix()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		_, _ = w.Write([]byte(`{}`))
	})

	require.Equal(t, 5000, client.RateLimitRemaining(), "optimistic before any response")

	_, err := client.ValidateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, client.RateLimitRemaining())
	assert.Equal(t, time.Unix(reset, 0), client.RateLimitReset())
}

func TestListIssuesQuery(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/issues", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "open", q.Get("state"))
		assert.Equal(t, "30", q.Get("per_page"))
		assert.Equal(t, "2", q.Get("page"))
		_, _ = w.Write([]byte(`[{"number":1,"title":"one"},{"number":2,"title":"two","pull_request":{"url":"x"}}]`))
	})

	issues, err := client.ListIssues(context.Background(), "acme/widgets", 2)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.False(t, issues[0].IsPullRequest())
	assert.True(t, issues[1].IsPullRequest())
}

func TestCreateIssuePostsPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/issues", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Add dark mode", payload["title"])
		assert.Equal(t, "please", payload["body"])

		_, _ = w.Write([]byte(`{"number":99,"title":"Add dark mode"}`))
	})

	issue, err := client.CreateIssue(context.Background(), "acme/widgets", "Add dark mode", "please")
	require.NoError(t, err)
	assert.Equal(t, 99, issue.Number)
}

func TestAssignIssue(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/issues/7/assignees", r.URL.Path)

		var payload map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"octocat"}, payload["assignees"])

		_, _ = w.Write([]byte(`{"number":7}`))
	})

	_, err := client.AssignIssue(context.Background(), "acme/widgets", 7, []string{"octocat"})
	require.NoError(t, err)
}

func TestFetchFileContentDecodesBase64(t *testing.T) {
	t.Parallel()

	// GitHub chunks base64 content with embedded newlines.
	encoded := base64.StdEncoding.EncodeToString([]byte("# Project notes\nline two\n"))
	chunked := encoded[:10] + "\n" + encoded[10:]

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/contents/CLAUDE.md", r.URL.Path)
		resp := map[string]string{"content": chunked, "encoding": "base64"}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	content, err := client.FetchFileContent(context.Background(), "acme/widgets", "CLAUDE.md")
	require.NoError(t, err)
	assert.Equal(t, "# Project notes\nline two\n", content)
}

func TestFetchFileContentMissingFile(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	_, err := client.FetchFileContent(context.Background(), "acme/widgets", "CLAUDE.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchFileContentUnexpectedEncoding(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":"data","encoding":"utf-8"}`))
	})

	_, err := client.FetchFileContent(context.Background(), "acme/widgets", "CLAUDE.md")
	assert.ErrorContains(t, err, "unexpected content encoding")
}

func TestGetPullRequest(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/70", r.URL.Path)
		_, _ = w.Write([]byte(`{"number":70,"state":"closed","merged_at":"","comments":3}`))
	})

	pr, err := client.GetPullRequest(context.Background(), "acme/widgets", 70)
	require.NoError(t, err)
	assert.Equal(t, 70, pr.Number)
	assert.Equal(t, 3, pr.Comments)
	assert.True(t, pr.ClosedWithoutMerge())
}

func TestSearchRepos(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Equal(t, "repo:acme/widgets", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"full_name":"acme/widgets"}]}`))
	})

	result, err := client.SearchRepos(context.Background(), "repo:acme/widgets")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "acme/widgets", result.Items[0].FullName)
}
