// Package model defines the canonical check shapes shared by every layer.
// Provider records are converted into these types at the fetch boundary;
// downstream code never sees raw API shapes.
package model

import "time"

// Status is the unified check status vocabulary. Provider-specific values
// ("conclusion", "state", CircleCI job status) are lower-cased and mapped
// into this set at the fetch boundary.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusFailure    Status = "failure"
	StatusError      Status = "error"
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusRunning    Status = "running"
	StatusNeutral    Status = "neutral"
	StatusCancelled  Status = "cancelled"
	StatusSkipped    Status = "skipped"
	StatusUnknown    Status = "unknown"
	StatusExpected   Status = "expected"
)

// CheckKind records where a check came from.
type CheckKind string

const (
	// KindStatus is a legacy commit-status context entry.
	KindStatus CheckKind = "status"
	// KindCheckRun is a native check-run entry.
	KindCheckRun CheckKind = "check_run"
	// KindExpected is a synthesized placeholder for a CI job that has not
	// yet reported a status to the source-control host.
	KindExpected CheckKind = "expected"
)

// PipelineError is a provider-reported error attached to a CI pipeline
// (for example a config compilation failure).
type PipelineError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Check is one reported or expected CI/status entry for a commit.
// The CI extension fields are populated only after the merge step, and only
// for checks that originate from or map onto a CI-provider job.
type Check struct {
	Name        string     `json:"name"`
	Context     string     `json:"context"`
	Status      Status     `json:"status"`
	Kind        CheckKind  `json:"kind"`
	Description string     `json:"description,omitempty"`
	DetailsURL  string     `json:"detailsUrl,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CheckRunID  *int64     `json:"checkRunId,omitempty"`

	// IsSecurityScanner marks the SonarQube check, which gets dedicated
	// annotation handling in the detailed report.
	IsSecurityScanner bool `json:"isSecurityScanner,omitempty"`

	// CI extension fields.
	JobNumber         *int64          `json:"jobNumber,omitempty"`
	WorkflowName      string          `json:"workflowName,omitempty"`
	PipelineNumber    *int64          `json:"pipelineNumber,omitempty"`
	PipelineCreatedAt *time.Time      `json:"pipelineCreatedAt,omitempty"`
	PipelineBranch    string          `json:"pipelineBranch,omitempty"`
	PipelineErrors    []PipelineError `json:"pipelineErrors,omitempty"`
}

// StatusClass buckets the status vocabulary for filtering, counting and
// glyph selection.
type StatusClass string

const (
	ClassPassing    StatusClass = "passing"
	ClassFailing    StatusClass = "failing"
	ClassInProgress StatusClass = "in progress"
	ClassNeutral    StatusClass = "neutral"
	ClassUnknown    StatusClass = "unknown"
)

// Class returns the status class of the check. Expected placeholders always
// count as in-progress regardless of their nominal status.
func (c Check) Class() StatusClass {
	if c.Kind == KindExpected {
		return ClassInProgress
	}
	switch c.Status {
	case StatusSuccess:
		return ClassPassing
	case StatusFailure, StatusError:
		return ClassFailing
	case StatusPending, StatusQueued, StatusWaiting, StatusInProgress, StatusRunning, StatusExpected:
		return ClassInProgress
	case StatusNeutral, StatusCancelled, StatusSkipped:
		return ClassNeutral
	default:
		return ClassUnknown
	}
}

// Glyph returns the terminal indicator for the check. Expected placeholders
// render orange even though their nominal status is pending, so that checks
// the CI provider has scheduled but not yet reported stand apart from checks
// already queued on the source-control side.
func (c Check) Glyph() string {
	if c.Kind == KindExpected {
		return "🟠"
	}
	switch c.Status {
	case StatusSuccess:
		return "🟢"
	case StatusFailure, StatusError:
		return "🔴"
	case StatusPending, StatusQueued, StatusWaiting:
		return "🟡"
	case StatusInProgress, StatusRunning, StatusExpected:
		return "🟠"
	case StatusNeutral, StatusCancelled, StatusSkipped:
		return "⚪"
	default:
		return "⚫"
	}
}

// IsTerminal reports whether the check has reached a state that will not
// change without a new push or re-run. Used by follow mode to decide whether
// anything is still worth waiting for.
func (c Check) IsTerminal() bool {
	return c.Class() != ClassInProgress
}

// AllTerminal reports whether every check in the list is terminal.
// An empty list is terminal: there is nothing left to wait for.
func AllTerminal(checks []Check) bool {
	for _, c := range checks {
		if !c.IsTerminal() {
			return false
		}
	}
	return true
}
