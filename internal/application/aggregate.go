package application

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dcwalker/prchecks/internal/domain/model"
	"github.com/dcwalker/prchecks/internal/domain/port/driven"
)

// Options controls one aggregation pass.
type Options struct {
	Filter FilterOptions
	// Details enables the best-effort enrichment fetches (test failures,
	// step output, security-scanner annotations).
	Details bool
	// HideJobOutput suppresses the step/log output fetch even when Details
	// is set.
	HideJobOutput bool
}

// CheckDetails is the enrichment payload for one check, populated only when
// Options.Details is set and only for checks that warrant it.
type CheckDetails struct {
	Tests       []model.TestResult
	Steps       []model.StepOutput
	Annotations []model.Annotation
}

// Report is the output of one aggregation pass. The check set is rebuilt
// wholesale each pass; nothing survives between cycles.
type Report struct {
	PR      *model.PullRequest
	Checks  []model.Check
	Details map[string]*CheckDetails // keyed by check context
	// AllTerminal is true when no check is still in progress, i.e. another
	// polling pass cannot observe further change without a new push.
	AllTerminal bool
}

// Aggregator drives one fetch → normalize → merge → filter pass. Execution
// is synchronous and single-threaded: every call completes before the next
// begins.
type Aggregator struct {
	sc      driven.SourceControlClient
	ci      driven.CIClient // nil when no CI token is configured
	slug    string
	project string
}

// NewAggregator wires the aggregation pipeline. ci may be nil; the run then
// fails only if CI-linked checks actually turn up.
func NewAggregator(sc driven.SourceControlClient, ci driven.CIClient, slug, project string) *Aggregator {
	return &Aggregator{sc: sc, ci: ci, slug: slug, project: project}
}

// Run performs one full pass for the given PR.
func (a *Aggregator) Run(ctx context.Context, prNumber int, opts Options) (*Report, error) {
	pr, err := a.sc.ResolvePullRequest(ctx, a.slug, prNumber)
	if err != nil {
		return nil, err
	}

	checkRuns, err := a.sc.FetchCheckRuns(ctx, a.slug, pr.HeadSHA)
	if err != nil {
		return nil, err
	}
	statuses, err := a.sc.FetchStatuses(ctx, a.slug, pr.HeadSHA)
	if err != nil {
		return nil, err
	}

	checks := Dedup(checkRuns, statuses)

	if HasCILinked(checks) && a.ci == nil {
		return nil, ErrMissingCIToken
	}

	if a.ci != nil {
		pipeline, matched, err := a.resolvePipeline(ctx, pr)
		if err != nil {
			return nil, err
		}
		if pipeline != nil {
			jobs, err := a.fetchPipelineJobs(ctx, pipeline)
			if err != nil {
				return nil, err
			}

			var errorPipelines []model.Pipeline
			for _, p := range matched {
				if len(p.Errors) > 0 {
					errorPipelines = append(errorPipelines, p)
				}
			}

			checks = MergeCIJobs(checks, jobs, pipeline, errorPipelines)
			checks = SynthesizeExpected(checks, jobs, pipeline)
		}
	}

	checks = opts.Filter.Apply(checks)

	report := &Report{
		PR:          pr,
		Checks:      checks,
		AllTerminal: model.AllTerminal(checks),
	}

	if opts.Details {
		report.Details = a.enrich(ctx, checks, opts)
	}

	return report, nil
}

// resolvePipeline finds the pipeline the PR's checks belong to: the most
// recently created pipeline for the first branch candidate that yields any,
// falling back to a project-wide scan of recent pipelines whose branch name
// textually references the PR number. Returns the chosen pipeline and every
// pipeline that matched. No match is not an error.
func (a *Aggregator) resolvePipeline(ctx context.Context, pr *model.PullRequest) (*model.Pipeline, []model.Pipeline, error) {
	for _, branch := range BranchCandidates(pr.Branch, pr.Number) {
		pipelines, err := a.ci.FetchPipelines(ctx, a.project, branch)
		if err != nil {
			return nil, nil, err
		}
		if len(pipelines) > 0 {
			return latestPipeline(pipelines), pipelines, nil
		}
	}

	recent, err := a.ci.FetchRecentPipelines(ctx, a.project, recentPipelineScanLimit)
	if err != nil {
		return nil, nil, err
	}

	var matched []model.Pipeline
	for _, p := range recent {
		if branchReferencesPR(p.Branch, pr.Number) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		slog.Debug("no pipelines matched PR", "pr", pr.Number, "scanned", len(recent))
		return nil, nil, nil
	}
	return latestPipeline(matched), matched, nil
}

// fetchPipelineJobs walks workflows then jobs, stamping the workflow name
// onto every job for the merger.
func (a *Aggregator) fetchPipelineJobs(ctx context.Context, pipeline *model.Pipeline) ([]model.PipelineJob, error) {
	workflows, err := a.ci.FetchWorkflows(ctx, pipeline.ID)
	if err != nil {
		return nil, err
	}

	var jobs []model.PipelineJob
	for _, wf := range workflows {
		wfJobs, err := a.ci.FetchJobs(ctx, wf.ID)
		if err != nil {
			return nil, err
		}
		for _, j := range wfJobs {
			j.WorkflowName = wf.Name
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// enrich performs the best-effort detail fetches. Every failure here
// degrades to an absent field; enrichment never aborts the run.
func (a *Aggregator) enrich(ctx context.Context, checks []model.Check, opts Options) map[string]*CheckDetails {
	details := make(map[string]*CheckDetails)

	for _, c := range checks {
		if c.Class() != model.ClassFailing {
			continue
		}

		d := &CheckDetails{}

		if a.ci != nil && c.JobNumber != nil {
			if tests, err := a.ci.FetchJobTests(ctx, a.project, *c.JobNumber); err == nil {
				for _, t := range tests {
					if t.Result == "failure" || t.Result == "error" || t.Result == "failed" {
						d.Tests = append(d.Tests, t)
					}
				}
			} else {
				slog.Debug("test results unavailable", "check", c.Context, "error", err)
			}

			if !opts.HideJobOutput {
				if steps, err := a.ci.FetchJobSteps(ctx, a.project, *c.JobNumber); err == nil {
					for _, s := range steps {
						if s.Status == "failed" || s.Status == "timedout" {
							d.Steps = append(d.Steps, s)
						}
					}
				} else {
					slog.Debug("step output unavailable", "check", c.Context, "error", err)
				}
			}
		}

		if c.IsSecurityScanner && c.CheckRunID != nil {
			if annotations, err := a.sc.FetchCheckRunAnnotations(ctx, a.slug, *c.CheckRunID); err == nil {
				d.Annotations = annotations
			} else {
				slog.Debug("annotations unavailable", "check", c.Context, "error", err)
			}
		}

		if len(d.Tests) > 0 || len(d.Steps) > 0 || len(d.Annotations) > 0 {
			details[c.Context] = d
		}
	}

	return details
}

// latestPipeline returns the most recently created pipeline of a non-empty
// list.
func latestPipeline(pipelines []model.Pipeline) *model.Pipeline {
	sorted := make([]model.Pipeline, len(pipelines))
	copy(sorted, pipelines)
	sort.SliceStable(sorted, func(i, k int) bool {
		return sorted[i].CreatedAt.After(sorted[k].CreatedAt)
	})
	return &sorted[0]
}
