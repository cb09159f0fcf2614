package application

import (
	"strings"

	"github.com/dcwalker/prchecks/internal/domain/model"
)

// FilterOptions selects which checks survive into the report. Zero value
// means no filtering.
type FilterOptions struct {
	// Job keeps checks whose name or context equals or contains the value.
	Job string
	// Workflow keeps CI-origin checks whose workflow name equals the value.
	// Checks without CI provenance pass through unconditionally.
	Workflow string
	// Status-class flags, OR-combined: a check is kept if it matches any
	// requested class. When none is set, all classes pass.
	ShowFailing    bool
	ShowPassing    bool
	ShowInProgress bool
}

// active reports whether any status-class flag is set.
func (o FilterOptions) classFilterActive() bool {
	return o.ShowFailing || o.ShowPassing || o.ShowInProgress
}

// Apply filters the list. Pure and order-preserving; with the zero options
// the input is returned unchanged.
func (o FilterOptions) Apply(checks []model.Check) []model.Check {
	if o == (FilterOptions{}) {
		return checks
	}

	out := make([]model.Check, 0, len(checks))
	for _, c := range checks {
		if !o.matchJob(c) || !o.matchWorkflow(c) || !o.matchClass(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (o FilterOptions) matchJob(c model.Check) bool {
	if o.Job == "" {
		return true
	}
	return c.Name == o.Job || c.Context == o.Job ||
		strings.Contains(c.Name, o.Job) || strings.Contains(c.Context, o.Job)
}

func (o FilterOptions) matchWorkflow(c model.Check) bool {
	if o.Workflow == "" {
		return true
	}
	// Only CI-origin checks know their workflow; others pass through.
	if c.WorkflowName == "" {
		if _, ci := ciJobName(c.Context); !ci {
			return true
		}
		return false
	}
	return c.WorkflowName == o.Workflow
}

func (o FilterOptions) matchClass(c model.Check) bool {
	if !o.classFilterActive() {
		return true
	}
	switch c.Class() {
	case model.ClassFailing:
		return o.ShowFailing
	case model.ClassPassing:
		return o.ShowPassing
	case model.ClassInProgress:
		return o.ShowInProgress
	default:
		return false
	}
}
