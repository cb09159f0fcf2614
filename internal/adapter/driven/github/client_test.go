package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/dcwalker/prchecks/internal/adapter/driven/github"
	"github.com/dcwalker/prchecks/internal/domain/model"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return client
}

type checkRunJSON struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Conclusion  string          `json:"conclusion,omitempty"`
	DetailsURL  string          `json:"details_url,omitempty"`
	StartedAt   string          `json:"started_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Output      *checkRunOutput `json:"output,omitempty"`
}

type checkRunOutput struct {
	Title string `json:"title"`
}

type checkRunListJSON struct {
	TotalCount int            `json:"total_count"`
	CheckRuns  []checkRunJSON `json:"check_runs"`
}

func TestFetchCheckRuns_SinglePage(t *testing.T) {
	payload := checkRunListJSON{
		TotalCount: 2,
		CheckRuns: []checkRunJSON{
			{
				ID:          101,
				Name:        "ci/circleci: build",
				Status:      "completed",
				Conclusion:  "success",
				DetailsURL:  "https://circleci.com/gh/acme/widgets/512",
				StartedAt:   "2026-01-02T15:00:00Z",
				CompletedAt: "2026-01-02T15:02:05Z",
			},
			{
				ID:     102,
				Name:   "SonarQube Code Analysis",
				Status: "in_progress",
				Output: &checkRunOutput{Title: "Scanning"},
			},
		},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})

	client := newTestClient(t, handler)
	checks, err := client.FetchCheckRuns(context.Background(), "acme/widgets", "abc1234")

	require.NoError(t, err)
	require.Len(t, checks, 2)

	build := checks[0]
	assert.Equal(t, "ci/circleci: build", build.Name)
	assert.Equal(t, "ci/circleci: build", build.Context)
	assert.Equal(t, model.StatusSuccess, build.Status, "completed runs take their conclusion")
	assert.Equal(t, model.KindCheckRun, build.Kind)
	assert.Equal(t, "https://circleci.com/gh/acme/widgets/512", build.DetailsURL)
	require.NotNil(t, build.CheckRunID)
	assert.Equal(t, int64(101), *build.CheckRunID)
	require.NotNil(t, build.StartedAt)
	require.NotNil(t, build.CompletedAt)
	assert.False(t, build.IsSecurityScanner)

	scanner := checks[1]
	assert.Equal(t, model.StatusInProgress, scanner.Status)
	assert.True(t, scanner.IsSecurityScanner)
	assert.Equal(t, "Scanning", scanner.Description)
	assert.Nil(t, scanner.CompletedAt)
}

func TestFetchCheckRuns_Paginated(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode(checkRunListJSON{
				TotalCount: 2,
				CheckRuns:  []checkRunJSON{{ID: 2, Name: "second", Status: "queued"}},
			})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?page=2>; rel="next"`, r.Host, r.URL.Path))
		_ = json.NewEncoder(w).Encode(checkRunListJSON{
			TotalCount: 2,
			CheckRuns:  []checkRunJSON{{ID: 1, Name: "first", Status: "queued"}},
		})
	})

	client := newTestClient(t, handler)
	checks, err := client.FetchCheckRuns(context.Background(), "acme/widgets", "abc1234")

	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, "first", checks[0].Name)
	assert.Equal(t, "second", checks[1].Name)
	assert.Equal(t, model.StatusQueued, checks[0].Status)
}

func TestFetchCheckRuns_NotFoundIsEmpty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	client := newTestClient(t, handler)
	checks, err := client.FetchCheckRuns(context.Background(), "acme/widgets", "abc1234")

	require.NoError(t, err, "a PR may legitimately have zero checks")
	assert.Empty(t, checks)
	assert.NotNil(t, checks)
}

func TestFetchCheckRuns_RateLimited(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	})

	client := newTestClient(t, handler)
	_, err := client.FetchCheckRuns(context.Background(), "acme/widgets", "abc1234")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited", "rate limiting is reported distinctly")
}

func TestFetchStatuses(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"state": "pending",
			"statuses": []map[string]any{
				{
					"context":     "ci/circleci: build",
					"state":       "PENDING",
					"description": "CircleCI is running your tests",
					"target_url":  "https://circleci.com/gh/acme/widgets/512",
				},
			},
		})
	})

	client := newTestClient(t, handler)
	checks, err := client.FetchStatuses(context.Background(), "acme/widgets", "abc1234")

	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "ci/circleci: build", checks[0].Context)
	assert.Equal(t, model.StatusPending, checks[0].Status, "status vocabulary is lower-cased")
	assert.Equal(t, model.KindStatus, checks[0].Kind)
	assert.Equal(t, "CircleCI is running your tests", checks[0].Description)
	assert.Nil(t, checks[0].StartedAt, "status contexts carry no timestamps")
}

func TestResolvePullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number":   42,
			"title":    "Add feature X",
			"html_url": "https://github.com/acme/widgets/pull/42",
			"head":     map[string]any{"ref": "feature-x", "sha": "abc1234def5678"},
		})
	})
	mux.HandleFunc("/repos/acme/widgets/commits/abc1234def5678", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sha":    "abc1234def5678",
			"commit": map[string]any{"message": "Add feature X\n\nLonger body here."},
		})
	})

	client := newTestClient(t, mux)
	pr, err := client.ResolvePullRequest(context.Background(), "acme/widgets", 42)

	require.NoError(t, err)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "feature-x", pr.Branch)
	assert.Equal(t, "abc1234def5678", pr.HeadSHA)
	assert.Equal(t, "abc1234", pr.HeadShort)
	assert.Equal(t, "Add feature X", pr.HeadMessage, "only the commit subject line is kept")
}

func TestDetectPullRequestNumber(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme:feature-x", r.URL.Query().Get("head"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"number": 42}})
	})

	client := newTestClient(t, handler)
	number, err := client.DetectPullRequestNumber(context.Background(), "acme/widgets", "feature-x")

	require.NoError(t, err)
	assert.Equal(t, 42, number)
}

func TestDetectPullRequestNumber_NoneOpen(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	client := newTestClient(t, handler)
	_, err := client.DetectPullRequestNumber(context.Background(), "acme/widgets", "feature-x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--pull-request")
}

func TestFetchCheckRunAnnotations(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"path":             "internal/app/main.go",
				"start_line":       10,
				"end_line":         12,
				"annotation_level": "failure",
				"message":          "possible nil dereference",
				"title":            "Bug",
			},
		})
	})

	client := newTestClient(t, handler)
	annotations, err := client.FetchCheckRunAnnotations(context.Background(), "acme/widgets", 101)

	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, "internal/app/main.go", annotations[0].Path)
	assert.Equal(t, "failure", annotations[0].Level)
	assert.Equal(t, 10, annotations[0].StartLine)
}
