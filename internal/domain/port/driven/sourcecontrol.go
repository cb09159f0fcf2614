// Package driven defines the outbound ports the application layer depends on.
package driven

import (
	"context"

	"github.com/dcwalker/prchecks/internal/domain/model"
)

// SourceControlClient is the port for the source-control host's pull-request,
// check-run and commit-status APIs. Fetch methods return canonical model
// types; the adapter owns all provider-shape mapping.
type SourceControlClient interface {
	// ResolvePullRequest loads the PR's head SHA, branch and summary metadata.
	ResolvePullRequest(ctx context.Context, slug string, number int) (*model.PullRequest, error)

	// DetectPullRequestNumber returns the open PR whose head is the given
	// branch, for the auto-detect path when --pull-request is omitted.
	DetectPullRequestNumber(ctx context.Context, slug string, branch string) (int, error)

	// FetchCheckRuns returns all check runs for the ref, fully paginated.
	// A 404 for the ref yields an empty slice, not an error: a PR may have
	// zero checks.
	FetchCheckRuns(ctx context.Context, slug string, ref string) ([]model.Check, error)

	// FetchStatuses returns all legacy status-context entries for the ref.
	// A 404 yields an empty slice, not an error.
	FetchStatuses(ctx context.Context, slug string, ref string) ([]model.Check, error)

	// FetchCheckRunAnnotations returns the annotations of a check run.
	// Best-effort enrichment: callers treat any error as "no annotations".
	FetchCheckRunAnnotations(ctx context.Context, slug string, checkRunID int64) ([]model.Annotation, error)
}
