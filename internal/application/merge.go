package application

import (
	"sort"
	"strings"

	"github.com/dcwalker/prchecks/internal/domain/model"
)

// ciContextPrefix is the naming convention linking a status or check run to
// a CI-provider job: "ci/circleci: <job-name>".
const ciContextPrefix = "ci/circleci: "

// expectedDescription is the human-readable description stamped onto
// synthesized placeholder checks.
const expectedDescription = "Expected — waiting for status to be reported"

// ciJobName extracts the CI job name from a CI-linked context, if any.
func ciJobName(context string) (string, bool) {
	if !strings.HasPrefix(context, ciContextPrefix) {
		return "", false
	}
	return strings.TrimPrefix(context, ciContextPrefix), true
}

// Dedup collapses check runs and status contexts sharing a context string
// into a single entry. Check runs win: they carry richer metadata (run ID,
// timestamps). Relative order is otherwise preserved, check runs first.
func Dedup(checkRuns, statuses []model.Check) []model.Check {
	merged := make([]model.Check, 0, len(checkRuns)+len(statuses))
	seen := make(map[string]bool, len(checkRuns))

	for _, c := range checkRuns {
		if seen[c.Context] {
			continue
		}
		seen[c.Context] = true
		merged = append(merged, c)
	}
	for _, c := range statuses {
		if seen[c.Context] {
			continue
		}
		seen[c.Context] = true
		merged = append(merged, c)
	}

	return merged
}

// MergeCIJobs cross-references CI-linked checks against the fetched CI jobs
// by job name, copying job/workflow/pipeline metadata onto the matching
// check. The CI provider's own timestamps win over the source-control ones
// when present. Lookup misses leave fields absent; nothing aborts the merge.
// pipeline is the most recently created pipeline that matched the PR's
// branch, and errorPipelines are all fetched pipelines carrying recorded
// errors (used as the fallback source of pipeline errors).
func MergeCIJobs(checks []model.Check, jobs []model.PipelineJob, pipeline *model.Pipeline, errorPipelines []model.Pipeline) []model.Check {
	byName := make(map[string]model.PipelineJob, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}

	out := make([]model.Check, len(checks))
	copy(out, checks)

	for i := range out {
		name, ok := ciJobName(out[i].Context)
		if !ok {
			continue
		}
		job, ok := byName[name]
		if !ok {
			continue
		}

		out[i].JobNumber = job.Number
		out[i].WorkflowName = job.WorkflowName
		if job.StartedAt != nil {
			out[i].StartedAt = job.StartedAt
		}
		if job.StoppedAt != nil {
			out[i].CompletedAt = job.StoppedAt
		}
		if pipeline != nil {
			n := pipeline.Number
			out[i].PipelineNumber = &n
			t := pipeline.CreatedAt
			out[i].PipelineCreatedAt = &t
			out[i].PipelineBranch = pipeline.Branch
			out[i].PipelineErrors = pipeline.Errors
		}
		if len(out[i].PipelineErrors) == 0 && len(errorPipelines) > 0 {
			out[i].PipelineErrors = errorPipelines[0].Errors
		}
	}

	return out
}

// SynthesizeExpected appends a placeholder check for every CI job that has
// no corresponding entry in the merged list: the provider has scheduled the
// job but it has not yet reported a status. Placeholders are pending,
// kind = expected, and carry the job's workflow/pipeline metadata.
// Only jobs of the single most-recent matching pipeline are considered.
func SynthesizeExpected(checks []model.Check, jobs []model.PipelineJob, pipeline *model.Pipeline) []model.Check {
	present := make(map[string]bool, len(checks))
	for _, c := range checks {
		if name, ok := ciJobName(c.Context); ok {
			present[name] = true
		}
	}

	out := make([]model.Check, len(checks))
	copy(out, checks)

	var synthesized []model.Check
	for _, j := range jobs {
		if present[j.Name] {
			continue
		}
		present[j.Name] = true

		check := model.Check{
			Name:         ciContextPrefix + j.Name,
			Context:      ciContextPrefix + j.Name,
			Status:       model.StatusPending,
			Kind:         model.KindExpected,
			Description:  expectedDescription,
			JobNumber:    j.Number,
			WorkflowName: j.WorkflowName,
		}
		if pipeline != nil {
			n := pipeline.Number
			check.PipelineNumber = &n
			t := pipeline.CreatedAt
			check.PipelineCreatedAt = &t
			check.PipelineBranch = pipeline.Branch
		}
		synthesized = append(synthesized, check)
	}

	sort.SliceStable(synthesized, func(i, k int) bool {
		return synthesized[i].Name < synthesized[k].Name
	})

	return append(out, synthesized...)
}

// HasCILinked reports whether any check follows the CI-provider naming
// convention. Decides whether a missing CI token is fatal.
func HasCILinked(checks []model.Check) bool {
	for _, c := range checks {
		if _, ok := ciJobName(c.Context); ok {
			return true
		}
	}
	return false
}
