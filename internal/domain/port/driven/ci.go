package driven

import (
	"context"

	"github.com/dcwalker/prchecks/internal/domain/model"
)

// CIClient is the port for the CI provider's pipeline → workflow → job
// hierarchy. All list methods are fully paginated by the adapter.
type CIClient interface {
	// FetchPipelines returns the pipelines recorded for the given branch,
	// most recent first. An empty result is not an error.
	FetchPipelines(ctx context.Context, project string, branch string) ([]model.Pipeline, error)

	// FetchRecentPipelines returns up to limit of the project's most recent
	// pipelines across all branches, for the fallback scan when no branch
	// candidate matches.
	FetchRecentPipelines(ctx context.Context, project string, limit int) ([]model.Pipeline, error)

	// FetchWorkflows returns the workflows of a pipeline.
	FetchWorkflows(ctx context.Context, pipelineID string) ([]model.Workflow, error)

	// FetchJobs returns the jobs of a workflow.
	FetchJobs(ctx context.Context, workflowID string) ([]model.PipelineJob, error)

	// FetchJobTests returns the test results reported for a job.
	// Best-effort enrichment: callers treat any error as "no data".
	FetchJobTests(ctx context.Context, project string, jobNumber int64) ([]model.TestResult, error)

	// FetchJobSteps returns the steps of a job with their captured output.
	// Best-effort enrichment: callers treat any error as "no data".
	FetchJobSteps(ctx context.Context, project string, jobNumber int64) ([]model.StepOutput, error)
}
