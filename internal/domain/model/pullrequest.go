package model

// PullRequest carries the PR metadata the reporter needs: where to fetch
// checks from (head SHA), which branch to match CI pipelines against, and
// what to print in the trailing summary.
type PullRequest struct {
	Number      int
	Title       string
	URL         string
	Branch      string
	HeadSHA     string
	HeadShort   string
	HeadMessage string
}

// Annotation is a source-control-provided check-run annotation, used for the
// security-scanner detail view.
type Annotation struct {
	Path      string
	StartLine int
	EndLine   int
	Level     string // failure, warning, notice
	Message   string
	Title     string
}
