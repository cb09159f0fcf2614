package model

import "time"

// Pipeline is one CI-provider pipeline run. A pipeline triggers one or more
// workflows; each workflow runs one or more jobs.
type Pipeline struct {
	ID        string
	Number    int64
	Branch    string
	State     string
	CreatedAt time.Time
	Errors    []PipelineError
}

// Workflow is one workflow run within a pipeline.
type Workflow struct {
	ID         string
	Name       string
	Status     string
	PipelineID string
}

// PipelineJob is one job run within a workflow, carrying enough pipeline and
// workflow context for the merger to copy onto the matching check.
type PipelineJob struct {
	ID           string
	Name         string
	Number       *int64
	Status       string
	WorkflowName string
	StartedAt    *time.Time
	StoppedAt    *time.Time
}

// TestResult is one test case outcome reported by the CI provider for a job.
type TestResult struct {
	Name      string
	ClassName string
	File      string
	Result    string
	Message   string
}

// StepOutput is the captured output of one job step.
type StepOutput struct {
	Name   string
	Status string
	Output string
}
