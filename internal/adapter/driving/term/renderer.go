// Package term renders check reports to a terminal: detailed one-shot
// blocks, the follow-mode summary with in-place redraw, and the JSON and
// count output modes.
package term

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/dcwalker/prchecks/internal/application"
	"github.com/dcwalker/prchecks/internal/domain/model"
)

// Compile-time interface satisfaction check.
var _ application.SummaryRenderer = (*Renderer)(nil)

// Renderer writes reports to a single output stream. Width and color are
// fixed at construction from the stream's terminal properties.
type Renderer struct {
	out   io.Writer
	width int
	bold  func(format string, a ...interface{}) string
	faint func(format string, a ...interface{}) string
}

// New creates a Renderer for the given stream. When the stream is not a
// terminal, color is disabled and an 80-column width is assumed.
func New(out io.Writer) *Renderer {
	width := 80
	isTTY := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		isTTY = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	if !isTTY {
		bold.DisableColor()
		faint.DisableColor()
	}

	return &Renderer{
		out:   out,
		width: width,
		bold:  bold.Sprintf,
		faint: faint.Sprintf,
	}
}

// RenderJSON emits the filtered check list verbatim as a JSON array.
func (r *Renderer) RenderJSON(report *application.Report) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Checks)
}

// RenderCount emits the total check count: a bare integer, or with asJSON a
// {total, checks} object.
func (r *Renderer) RenderCount(report *application.Report, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintf(r.out, "%d\n", len(report.Checks))
		return err
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Total  int           `json:"total"`
		Checks []model.Check `json:"checks"`
	}{Total: len(report.Checks), Checks: report.Checks})
}

// RenderDetailed emits one block per check followed by the trailing summary.
func (r *Renderer) RenderDetailed(report *application.Report) error {
	var buf bytes.Buffer

	for _, c := range report.Checks {
		r.writeCheckBlock(&buf, c, report.Details[c.Context])
		buf.WriteString("\n")
	}

	r.writeSummary(&buf, report)

	_, err := r.out.Write(buf.Bytes())
	return err
}

// RenderInitial draws the follow-mode summary and returns its line count.
func (r *Renderer) RenderInitial(report *application.Report) (int, error) {
	var buf bytes.Buffer
	r.writeSummary(&buf, report)

	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return countLines(buf.String()), nil
}

// RenderUpdate clears exactly the previously drawn region, then redraws the
// summary, returning the new line count.
func (r *Renderer) RenderUpdate(report *application.Report, previousLines int) (int, error) {
	if err := clearRegion(r.out, previousLines); err != nil {
		return 0, err
	}
	return r.RenderInitial(report)
}

// writeCheckBlock renders the detailed view of one check.
func (r *Renderer) writeCheckBlock(buf *bytes.Buffer, c model.Check, details *application.CheckDetails) {
	fmt.Fprintf(buf, "%s %s %s %s\n", c.Glyph(), r.bold("%s", c.Name), r.faint("—"), c.Status)

	if c.Description != "" {
		buf.WriteString(wrapWithPipe(c.Description, "   ", r.width))
		buf.WriteString("\n")
	}

	if c.WorkflowName != "" {
		fmt.Fprintf(buf, "   Workflow:   %s\n", c.WorkflowName)
	}
	if c.PipelineNumber != nil {
		line := fmt.Sprintf("   Pipeline:   #%d", *c.PipelineNumber)
		if c.PipelineBranch != "" {
			line += fmt.Sprintf(" (branch %s)", c.PipelineBranch)
		}
		buf.WriteString(line + "\n")
		if c.PipelineCreatedAt != nil {
			fmt.Fprintf(buf, "   Created:    %s\n", formatLocalTime(*c.PipelineCreatedAt))
		}
	}
	for _, e := range c.PipelineErrors {
		fmt.Fprintf(buf, "   Pipeline error (%s):\n", e.Type)
		buf.WriteString(wrapWithPipe(e.Message, "   ", r.width))
		buf.WriteString("\n")
	}

	if c.StartedAt != nil {
		fmt.Fprintf(buf, "   Started:    %s\n", formatLocalTime(*c.StartedAt))
	}
	if c.CompletedAt != nil {
		fmt.Fprintf(buf, "   Completed:  %s\n", formatLocalTime(*c.CompletedAt))
	}
	if c.StartedAt != nil && c.CompletedAt != nil {
		fmt.Fprintf(buf, "   Duration:   %s\n", FormatDuration(*c.StartedAt, *c.CompletedAt))
	}
	if c.DetailsURL != "" {
		fmt.Fprintf(buf, "   Details:    %s\n", c.DetailsURL)
	}

	if details != nil {
		r.writeCheckDetails(buf, details)
	}
}

// writeCheckDetails renders the enrichment payload: failed tests as a table,
// failed step output as pipe blocks, and annotations grouped by severity.
func (r *Renderer) writeCheckDetails(buf *bytes.Buffer, details *application.CheckDetails) {
	if len(details.Tests) > 0 {
		fmt.Fprintf(buf, "   Failed tests:\n")

		table := tablewriter.NewWriter(buf)
		table.Header([]string{"Test", "File", "Message"})
		var data [][]string
		for _, t := range details.Tests {
			name := t.Name
			if t.ClassName != "" {
				name = t.ClassName + "." + t.Name
			}
			data = append(data, []string{name, t.File, t.Message})
		}
		if err := table.Bulk(data); err == nil {
			_ = table.Render()
		}
	}

	for _, s := range details.Steps {
		fmt.Fprintf(buf, "   Step %q (%s):\n", s.Name, s.Status)
		if s.Output != "" {
			buf.WriteString(wrapWithPipe(s.Output, "   ", r.width))
			buf.WriteString("\n")
		}
	}

	if len(details.Annotations) > 0 {
		bySeverity := map[string][]model.Annotation{}
		for _, a := range details.Annotations {
			bySeverity[severity(a.Level)] = append(bySeverity[severity(a.Level)], a)
		}
		for _, sev := range []string{"high", "medium", "low"} {
			annotations := bySeverity[sev]
			if len(annotations) == 0 {
				continue
			}
			fmt.Fprintf(buf, "   Annotations (%s):\n", sev)
			for _, a := range annotations {
				fmt.Fprintf(buf, "   - %s:%d", a.Path, a.StartLine)
				if a.Title != "" {
					fmt.Fprintf(buf, " %s", a.Title)
				}
				buf.WriteString("\n")
				buf.WriteString(wrapWithPipe(a.Message, "     ", r.width))
				buf.WriteString("\n")
			}
		}
	}
}

// writeSummary renders the trailing summary: the one-line list, the
// non-zero class counts, and the PR's head commit and link.
func (r *Renderer) writeSummary(buf *bytes.Buffer, report *application.Report) {
	buf.WriteString(r.bold("Summary") + "\n")

	for _, c := range report.Checks {
		fmt.Fprintf(buf, "  %s %s\n", c.Glyph(), c.Name)
	}
	if len(report.Checks) == 0 {
		buf.WriteString("  (no checks)\n")
	}
	buf.WriteString("\n")

	if counts := classCounts(report.Checks); counts != "" {
		buf.WriteString("  " + counts + "\n\n")
	}

	if report.PR != nil {
		if report.PR.HeadShort != "" {
			fmt.Fprintf(buf, "  %s %s\n", report.PR.HeadShort, report.PR.HeadMessage)
		}
		if report.PR.URL != "" {
			fmt.Fprintf(buf, "  %s\n", report.PR.URL)
		}
	}
}

// classCounts formats the per-class breakdown, listing only non-zero
// classes.
func classCounts(checks []model.Check) string {
	counts := map[model.StatusClass]int{}
	for _, c := range checks {
		counts[c.Class()]++
	}

	order := []model.StatusClass{
		model.ClassPassing,
		model.ClassFailing,
		model.ClassInProgress,
		model.ClassNeutral,
		model.ClassUnknown,
	}

	var parts []string
	for _, class := range order {
		if n := counts[class]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, class))
		}
	}
	return strings.Join(parts, ", ")
}

// severity maps annotation levels onto the report's severity buckets.
func severity(level string) string {
	switch strings.ToLower(level) {
	case "failure":
		return "high"
	case "warning":
		return "medium"
	default:
		return "low"
	}
}
