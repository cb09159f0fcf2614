// Package circleci implements the CIClient port against the CircleCI v2 REST
// API (plus the v1.1 job endpoint, which is still the only way to get step
// output). Responses are decoded into explicit local shapes and converted to
// canonical model types at this boundary.
package circleci

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/dcwalker/prchecks/internal/domain/model"
	"github.com/dcwalker/prchecks/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CIClient = (*Client)(nil)

const defaultBaseURL = "https://circleci.com"

// ErrRateLimited marks a 429 from the CI provider so the caller can print a
// distinguished message instead of a generic HTTP failure.
var ErrRateLimited = fmt.Errorf("circleci: rate limited")

// Client implements the driven.CIClient port.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a CircleCI API client. All requests authenticate with the
// Circle-Token header; the transport caches conditionally like the GitHub
// client so repeated follow-mode polls stay cheap.
func NewClient(token string) *Client {
	return &Client{
		http:    httpcache.NewMemoryCacheTransport().Client(),
		baseURL: defaultBaseURL,
		token:   token,
	}
}

// NewClientWithHTTPClient creates a Client against a custom base URL.
// This constructor is intended for testing with an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

// pipelineItem is the v2 API pipeline shape.
type pipelineItem struct {
	ID        string    `json:"id"`
	Number    int64     `json:"number"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	VCS       struct {
		Branch string `json:"branch"`
	} `json:"vcs"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// workflowItem is the v2 API workflow shape.
type workflowItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	PipelineID string `json:"pipeline_id"`
}

// jobItem is the v2 API job shape.
type jobItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	JobNumber *int64     `json:"job_number"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at"`
}

// testItem is the v2 API test result shape.
type testItem struct {
	Name      string `json:"name"`
	ClassName string `json:"classname"`
	File      string `json:"file"`
	Result    string `json:"result"`
	Message   string `json:"message"`
}

// page is the common v2 list envelope.
type page[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token"`
}

// FetchPipelines returns the pipelines recorded for the given branch,
// most recent first, fully paginated.
func (c *Client) FetchPipelines(ctx context.Context, project string, branch string) ([]model.Pipeline, error) {
	path := fmt.Sprintf("/api/v2/project/%s/pipeline", project)
	query := url.Values{"branch": {branch}}

	items, err := fetchAllPages[pipelineItem](ctx, c, path, query, 0)
	if err != nil {
		return nil, fmt.Errorf("listing pipelines for %s branch %s: %w", project, branch, err)
	}

	return mapPipelines(items), nil
}

// FetchRecentPipelines returns up to limit of the project's most recent
// pipelines across all branches.
func (c *Client) FetchRecentPipelines(ctx context.Context, project string, limit int) ([]model.Pipeline, error) {
	path := fmt.Sprintf("/api/v2/project/%s/pipeline", project)

	items, err := fetchAllPages[pipelineItem](ctx, c, path, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent pipelines for %s: %w", project, err)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return mapPipelines(items), nil
}

// FetchWorkflows returns the workflows of a pipeline, fully paginated.
func (c *Client) FetchWorkflows(ctx context.Context, pipelineID string) ([]model.Workflow, error) {
	path := fmt.Sprintf("/api/v2/pipeline/%s/workflow", pipelineID)

	items, err := fetchAllPages[workflowItem](ctx, c, path, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("listing workflows for pipeline %s: %w", pipelineID, err)
	}

	workflows := make([]model.Workflow, 0, len(items))
	for _, w := range items {
		workflows = append(workflows, model.Workflow{
			ID:         w.ID,
			Name:       w.Name,
			Status:     strings.ToLower(w.Status),
			PipelineID: w.PipelineID,
		})
	}
	return workflows, nil
}

// FetchJobs returns the jobs of a workflow, fully paginated. The workflow
// name is stamped onto each job by the caller, which knows it.
func (c *Client) FetchJobs(ctx context.Context, workflowID string) ([]model.PipelineJob, error) {
	path := fmt.Sprintf("/api/v2/workflow/%s/job", workflowID)

	items, err := fetchAllPages[jobItem](ctx, c, path, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("listing jobs for workflow %s: %w", workflowID, err)
	}

	jobs := make([]model.PipelineJob, 0, len(items))
	for _, j := range items {
		jobs = append(jobs, model.PipelineJob{
			ID:        j.ID,
			Name:      j.Name,
			Number:    j.JobNumber,
			Status:    strings.ToLower(j.Status),
			StartedAt: j.StartedAt,
			StoppedAt: j.StoppedAt,
		})
	}
	return jobs, nil
}

// FetchJobTests returns the test results reported for a job, fully paginated.
func (c *Client) FetchJobTests(ctx context.Context, project string, jobNumber int64) ([]model.TestResult, error) {
	path := fmt.Sprintf("/api/v2/project/%s/%d/tests", project, jobNumber)

	items, err := fetchAllPages[testItem](ctx, c, path, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("listing tests for job %d: %w", jobNumber, err)
	}

	tests := make([]model.TestResult, 0, len(items))
	for _, t := range items {
		tests = append(tests, model.TestResult{
			Name:      t.Name,
			ClassName: t.ClassName,
			File:      t.File,
			Result:    strings.ToLower(t.Result),
			Message:   t.Message,
		})
	}
	return tests, nil
}

// v1Job is the v1.1 job detail shape, trimmed to the step/action fields the
// renderer needs.
type v1Job struct {
	Steps []struct {
		Name    string `json:"name"`
		Actions []struct {
			Name      string `json:"name"`
			Status    string `json:"status"`
			OutputURL string `json:"output_url"`
		} `json:"actions"`
	} `json:"steps"`
}

// outputEntry is one record in a downloaded action output file.
type outputEntry struct {
	Message string `json:"message"`
}

// FetchJobSteps returns the steps of a job with their captured output.
// Step output lives behind per-action output URLs that the v1.1 API hands
// out; each is downloaded individually and failures degrade to empty output.
func (c *Client) FetchJobSteps(ctx context.Context, project string, jobNumber int64) ([]model.StepOutput, error) {
	path := fmt.Sprintf("/api/v1.1/project/%s/%d", project, jobNumber)

	body, err := c.get(ctx, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching job detail for %d: %w", jobNumber, err)
	}

	var job v1Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decoding job detail for %d: %w", jobNumber, err)
	}

	var steps []model.StepOutput
	for _, step := range job.Steps {
		for _, action := range step.Actions {
			out := model.StepOutput{
				Name:   step.Name,
				Status: strings.ToLower(action.Status),
			}
			if action.OutputURL != "" {
				if text, err := c.downloadOutput(ctx, action.OutputURL); err == nil {
					out.Output = text
				} else {
					slog.Debug("step output unavailable", "job", jobNumber, "step", step.Name, "error", err)
				}
			}
			steps = append(steps, out)
		}
	}
	return steps, nil
}

// downloadOutput fetches an action output file. The files are JSON arrays of
// message records, usually gzip-compressed at rest.
func (c *Client) downloadOutput(ctx context.Context, rawURL string) (string, error) {
	body, err := c.get(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}

	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("decompressing output: %w", err)
		}
		defer gz.Close()
		if body, err = io.ReadAll(gz); err != nil {
			return "", fmt.Errorf("decompressing output: %w", err)
		}
	}

	var entries []outputEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		// Some output files are plain text.
		return string(body), nil
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.Message)
	}
	return sb.String(), nil
}

// fetchAllPages walks a v2 list endpoint page by page. Each page is fetched
// and decoded independently; the accumulated slice is folded here rather than
// grown through shared state. When limit > 0 pagination stops once enough
// items have been collected.
func fetchAllPages[T any](ctx context.Context, c *Client, path string, query url.Values, limit int) ([]T, error) {
	var all []T
	pageToken := ""

	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		if pageToken != "" {
			q.Set("page-token", pageToken)
		}

		endpoint := c.baseURL + path
		if len(q) > 0 {
			endpoint += "?" + q.Encode()
		}

		body, err := c.get(ctx, endpoint, nil)
		if err != nil {
			return nil, err
		}

		var p page[T]
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}

		all = append(all, p.Items...)
		slog.Debug("circleci api call", "path", path, "count", len(p.Items), "total", len(all))

		if p.NextPageToken == "" || (limit > 0 && len(all) >= limit) {
			break
		}
		pageToken = p.NextPageToken
	}

	return all, nil
}

// get performs one authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Circle-Token", c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: not found", endpoint)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s: HTTP %d: %s", endpoint, resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func mapPipelines(items []pipelineItem) []model.Pipeline {
	pipelines := make([]model.Pipeline, 0, len(items))
	for _, p := range items {
		pipeline := model.Pipeline{
			ID:        p.ID,
			Number:    p.Number,
			Branch:    p.VCS.Branch,
			State:     strings.ToLower(p.State),
			CreatedAt: p.CreatedAt,
		}
		for _, e := range p.Errors {
			pipeline.Errors = append(pipeline.Errors, model.PipelineError{
				Type:    e.Type,
				Message: e.Message,
			})
		}
		pipelines = append(pipelines, pipeline)
	}
	return pipelines
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
