package term

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcwalker/prchecks/internal/application"
	"github.com/dcwalker/prchecks/internal/domain/model"
)

func TestFormatDuration(t *testing.T) {
	base := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		completed time.Time
		want      string
	}{
		{"minutes and seconds", base.Add(125 * time.Second), "2m 5s"},
		{"seconds only", base.Add(42 * time.Second), "42s"},
		{"hours", base.Add(3*time.Hour + 61*time.Second), "3h 1m 1s"},
		{"zero", base, "0s"},
		{"negative is invalid", base.Add(-time.Second), "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(base, tt.completed))
		})
	}
}

func TestWrapWithPipe(t *testing.T) {
	got := wrapWithPipe("one two three four five six seven eight nine ten eleven twelve", "  ", 44)
	lines := strings.Split(got, "\n")
	require.Greater(t, len(lines), 1, "long input wraps onto multiple lines")
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "  | "), "every line carries the pipe prefix: %q", line)
		assert.LessOrEqual(t, len(line), 44)
	}

	// Widths below the 40-column floor are clamped up, never down.
	narrow := wrapWithPipe("one two three four five six seven eight nine ten", "  ", 20)
	for _, line := range strings.Split(narrow, "\n") {
		assert.LessOrEqual(t, len(line), 40)
	}
	assert.Greater(t, len(strings.Split(narrow, "\n")[0]), 20)

	assert.Equal(t, "  |", wrapWithPipe("", "  ", 80))
	assert.Equal(t, "  | a\n  |\n  | b", wrapWithPipe("a\n\nb", "  ", 80))
}

func TestClearRegion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, clearRegion(&buf, 5))
	assert.Equal(t, "\x1b[5A\x1b[0J", buf.String())

	buf.Reset()
	require.NoError(t, clearRegion(&buf, 0))
	assert.Empty(t, buf.String(), "nothing to clear on the first pass")
}

func sampleReport() *application.Report {
	started := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	completed := started.Add(125 * time.Second)
	num := int64(1234)

	return &application.Report{
		PR: &model.PullRequest{
			Number:      42,
			URL:         "https://github.com/acme/widgets/pull/42",
			HeadShort:   "abc1234",
			HeadMessage: "Add feature X",
		},
		Checks: []model.Check{
			{
				Name:        "lint",
				Context:     "lint",
				Status:      model.StatusSuccess,
				Kind:        model.KindCheckRun,
				StartedAt:   &started,
				CompletedAt: &completed,
			},
			{
				Name:           "ci/circleci: build",
				Context:        "ci/circleci: build",
				Status:         model.StatusPending,
				Kind:           model.KindExpected,
				Description:    "Expected — waiting for status to be reported",
				WorkflowName:   "main",
				PipelineNumber: &num,
				PipelineBranch: "feature-x",
			},
		},
	}
}

func TestRenderDetailed(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	require.NoError(t, r.RenderDetailed(sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "🟢 lint")
	assert.Contains(t, out, "Duration:   2m 5s")
	assert.Contains(t, out, "🟠 ci/circleci: build")
	assert.Contains(t, out, "| Expected — waiting for status to be reported")
	assert.Contains(t, out, "Workflow:   main")
	assert.Contains(t, out, "Pipeline:   #1234 (branch feature-x)")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "1 passing, 1 in progress")
	assert.Contains(t, out, "abc1234 Add feature X")
	assert.Contains(t, out, "https://github.com/acme/widgets/pull/42")
	assert.NotContains(t, out, "failing", "zero classes are not listed")
}

func TestRenderSummaryOnlyNonZeroCounts(t *testing.T) {
	report := &application.Report{
		Checks: []model.Check{
			{Name: "a", Status: model.StatusFailure},
			{Name: "b", Status: model.StatusFailure},
		},
	}

	var buf bytes.Buffer
	r := New(&buf)
	lines, err := r.RenderInitial(report)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2 failing")
	assert.NotContains(t, out, "passing")
	assert.Equal(t, countLines(out), lines)
}

func TestRenderUpdateClearsPreviousRegion(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	report := sampleReport()
	lines, err := r.RenderInitial(report)
	require.NoError(t, err)
	require.Greater(t, lines, 0)

	buf.Reset()
	_, err = r.RenderUpdate(report, lines)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(buf.String(), "\x1b["), "the update starts by clearing the previous region")
	assert.Contains(t, buf.String(), "Summary")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	require.NoError(t, r.RenderJSON(sampleReport()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "lint", decoded[0]["name"])
	assert.Equal(t, "success", decoded[0]["status"])
	assert.Equal(t, "expected", decoded[1]["kind"])
	assert.Equal(t, "main", decoded[1]["workflowName"])
}

func TestRenderCount(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	require.NoError(t, r.RenderCount(sampleReport(), false))
	assert.Equal(t, "2\n", buf.String())

	buf.Reset()
	require.NoError(t, r.RenderCount(sampleReport(), true))

	var decoded struct {
		Total  int              `json:"total"`
		Checks []map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Total)
	assert.Len(t, decoded.Checks, 2)
}

func TestRenderDetailedWithDetails(t *testing.T) {
	report := sampleReport()
	report.Checks[0].Status = model.StatusFailure
	report.Details = map[string]*application.CheckDetails{
		"lint": {
			Tests: []model.TestResult{
				{Name: "TestX", ClassName: "pkg", File: "pkg_test.go", Message: "boom"},
			},
			Steps: []model.StepOutput{
				{Name: "run tests", Status: "failed", Output: "exit status 1"},
			},
			Annotations: []model.Annotation{
				{Path: "main.go", StartLine: 3, Level: "failure", Message: "nil deref"},
				{Path: "main.go", StartLine: 9, Level: "notice", Message: "style nit"},
			},
		},
	}

	var buf bytes.Buffer
	r := New(&buf)
	require.NoError(t, r.RenderDetailed(report))

	out := buf.String()
	assert.Contains(t, out, "Failed tests:")
	assert.Contains(t, out, "pkg.TestX")
	assert.Contains(t, out, `Step "run tests" (failed):`)
	assert.Contains(t, out, "| exit status 1")
	assert.Contains(t, out, "Annotations (high):")
	assert.Contains(t, out, "main.go:3")
	assert.Contains(t, out, "Annotations (low):")
	assert.NotContains(t, out, "Annotations (medium):")
}
