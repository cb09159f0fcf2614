// Package github implements the SourceControlClient port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/dcwalker/prchecks/internal/domain/model"
	"github.com/dcwalker/prchecks/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SourceControlClient = (*Client)(nil)

// securityScannerMarker identifies the static-analysis check that gets
// dedicated annotation handling in the detailed report.
const securityScannerMarker = "sonarqube"

// Client implements the driven.SourceControlClient port using go-github.
type Client struct {
	gh *gh.Client
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching; pays off across
//     follow-mode polling cycles)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// ResolvePullRequest loads the PR and its head commit message.
func (c *Client) ResolvePullRequest(ctx context.Context, slug string, number int) (*model.PullRequest, error) {
	owner, repo, err := splitSlug(slug)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s#%d: %w", slug, number, wrapRateLimit(err))
	}
	logRateLimit(resp, slug+"/pull", 0, 1)

	sha := pr.GetHead().GetSHA()
	short := sha
	if len(short) > 7 {
		short = short[:7]
	}

	result := &model.PullRequest{
		Number:    number,
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		Branch:    pr.GetHead().GetRef(),
		HeadSHA:   sha,
		HeadShort: short,
	}

	// The commit message requires a second call; failure there should not
	// sink the run since it only feeds the summary footer.
	if commit, _, err := c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil); err == nil {
		msg := commit.GetCommit().GetMessage()
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		result.HeadMessage = msg
	} else {
		slog.Debug("head commit message unavailable", "slug", slug, "sha", sha, "error", err)
	}

	return result, nil
}

// DetectPullRequestNumber returns the open PR whose head is the given branch.
func (c *Client) DetectPullRequestNumber(ctx context.Context, slug string, branch string) (int, error) {
	owner, repo, err := splitSlug(slug)
	if err != nil {
		return 0, err
	}

	opts := &gh.PullRequestListOptions{
		State:       "open",
		Head:        owner + ":" + branch,
		ListOptions: gh.ListOptions{PerPage: 10},
	}
	prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return 0, fmt.Errorf("listing pull requests for %s head %s: %w", slug, branch, wrapRateLimit(err))
	}
	logRateLimit(resp, slug+"/pulls", 0, len(prs))

	if len(prs) == 0 {
		return 0, fmt.Errorf("no open pull request found for branch %s; pass --pull-request", branch)
	}
	return prs[0].GetNumber(), nil
}

// FetchCheckRuns retrieves all check runs for the given ref, fully paginated.
// A 404 for the ref yields an empty slice, not an error.
func (c *Client) FetchCheckRuns(ctx context.Context, slug string, ref string) ([]model.Check, error) {
	owner, repo, err := splitSlug(slug)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []model.Check

	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
		if err != nil {
			if isNotFound(resp) {
				return []model.Check{}, nil
			}
			return nil, fmt.Errorf("listing check runs for %s@%s (page %d): %w", slug, ref, opts.Page, wrapRateLimit(err))
		}

		logRateLimit(resp, slug+"/check-runs", opts.Page, len(result.CheckRuns))

		for _, cr := range result.CheckRuns {
			all = append(all, mapCheckRun(cr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if all == nil {
		all = []model.Check{}
	}
	return all, nil
}

// FetchStatuses retrieves all legacy status-context entries for the ref,
// fully paginated. A 404 yields an empty slice, not an error.
func (c *Client) FetchStatuses(ctx context.Context, slug string, ref string) ([]model.Check, error) {
	owner, repo, err := splitSlug(slug)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var all []model.Check

	for {
		cs, resp, err := c.gh.Repositories.GetCombinedStatus(ctx, owner, repo, ref, opts)
		if err != nil {
			if isNotFound(resp) {
				return []model.Check{}, nil
			}
			return nil, fmt.Errorf("fetching combined status for %s@%s (page %d): %w", slug, ref, opts.Page, wrapRateLimit(err))
		}

		logRateLimit(resp, slug+"/status", opts.Page, len(cs.Statuses))

		for _, s := range cs.Statuses {
			all = append(all, mapStatus(s))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if all == nil {
		all = []model.Check{}
	}
	return all, nil
}

// FetchCheckRunAnnotations retrieves the annotations of a check run, fully
// paginated.
func (c *Client) FetchCheckRunAnnotations(ctx context.Context, slug string, checkRunID int64) ([]model.Annotation, error) {
	owner, repo, err := splitSlug(slug)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var all []model.Annotation

	for {
		annotations, resp, err := c.gh.Checks.ListCheckRunAnnotations(ctx, owner, repo, checkRunID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing annotations for check run %d (page %d): %w", checkRunID, opts.Page, wrapRateLimit(err))
		}

		for _, a := range annotations {
			all = append(all, model.Annotation{
				Path:      a.GetPath(),
				StartLine: a.GetStartLine(),
				EndLine:   a.GetEndLine(),
				Level:     a.GetAnnotationLevel(),
				Message:   a.GetMessage(),
				Title:     a.GetTitle(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// mapCheckRun converts a go-github CheckRun to a canonical Check.
// Completed runs take their conclusion as the status; otherwise the run's
// own status (queued, in_progress, waiting) is used.
func mapCheckRun(cr *gh.CheckRun) model.Check {
	status := cr.GetStatus()
	if status == "completed" && cr.GetConclusion() != "" {
		status = cr.GetConclusion()
	}

	check := model.Check{
		Name:              cr.GetName(),
		Context:           cr.GetName(),
		Status:            normalizeStatus(status),
		Kind:              model.KindCheckRun,
		DetailsURL:        cr.GetDetailsURL(),
		Description:       cr.GetOutput().GetTitle(),
		IsSecurityScanner: isSecurityScanner(cr.GetName()),
	}

	if id := cr.GetID(); id != 0 {
		check.CheckRunID = &id
	}
	if cr.StartedAt != nil {
		t := cr.GetStartedAt().Time
		check.StartedAt = &t
	}
	if cr.CompletedAt != nil {
		t := cr.GetCompletedAt().Time
		check.CompletedAt = &t
	}

	return check
}

// mapStatus converts a go-github RepoStatus to a canonical Check.
// Status contexts carry no timestamps or run ID.
func mapStatus(s *gh.RepoStatus) model.Check {
	return model.Check{
		Name:              s.GetContext(),
		Context:           s.GetContext(),
		Status:            normalizeStatus(s.GetState()),
		Kind:              model.KindStatus,
		Description:       s.GetDescription(),
		DetailsURL:        s.GetTargetURL(),
		IsSecurityScanner: isSecurityScanner(s.GetContext()),
	}
}

// normalizeStatus lower-cases a provider status value and maps it into the
// canonical vocabulary, falling back to unknown for anything unrecognized.
func normalizeStatus(raw string) model.Status {
	switch s := model.Status(strings.ToLower(raw)); s {
	case model.StatusSuccess, model.StatusFailure, model.StatusError,
		model.StatusPending, model.StatusQueued, model.StatusWaiting,
		model.StatusInProgress, model.StatusRunning, model.StatusNeutral,
		model.StatusCancelled, model.StatusSkipped, model.StatusExpected:
		return s
	case "canceled":
		return model.StatusCancelled
	case "timed_out", "action_required", "failed":
		return model.StatusFailure
	default:
		return model.StatusUnknown
	}
}

// isSecurityScanner reports whether the context names the static-analysis
// check with dedicated annotation handling.
func isSecurityScanner(context string) bool {
	return strings.Contains(strings.ToLower(context), securityScannerMarker)
}

// isNotFound reports whether the response is a 404 for the queried resource.
func isNotFound(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// wrapRateLimit makes GitHub rate-limit errors distinguishable from generic
// HTTP failures in the fatal-error message.
func wrapRateLimit(err error) error {
	var rle *gh.RateLimitError
	var arle *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &rle):
		return fmt.Errorf("rate limited until %s: %w", rle.Rate.Reset.Time.Format(time.RFC1123), err)
	case errors.As(err, &arle):
		return fmt.Errorf("secondary rate limit hit: %w", err)
	default:
		return err
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitSlug splits an "owner/repo" string into its two components.
func splitSlug(slug string) (string, string, error) {
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo slug %q: expected owner/repo", slug)
	}
	return parts[0], parts[1], nil
}
