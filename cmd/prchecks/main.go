// Command prchecks aggregates a pull request's source-control checks and
// CI-provider jobs into one unified report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dcwalker/prchecks/internal/adapter/driven/circleci"
	githubadapter "github.com/dcwalker/prchecks/internal/adapter/driven/github"
	"github.com/dcwalker/prchecks/internal/adapter/driven/gitrepo"
	"github.com/dcwalker/prchecks/internal/adapter/driving/term"
	"github.com/dcwalker/prchecks/internal/application"
	"github.com/dcwalker/prchecks/internal/config"
)

// exitInterrupted is the conventional exit status for a SIGINT-terminated
// process.
const exitInterrupted = 130

// flags holds the raw CLI surface.
type flags struct {
	pullRequest    int
	workflow       string
	job            string
	showFailing    bool
	showPassing    bool
	showInProgress bool
	jsonOut        bool
	countOut       bool
	details        bool
	hideJobOutput  bool
	follow         bool
}

func main() {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:           "prchecks",
		Short:         "Report a pull request's checks, merged with its CI pipeline jobs",
		Long: `prchecks fetches a pull request's check runs and commit statuses from the
source-control host, cross-references them with the CI provider's pipeline
jobs, and prints a unified report. CI jobs that have not yet reported a
status appear as expected placeholders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	rootCmd.Flags().IntVarP(&f.pullRequest, "pull-request", "p", 0, "pull request number (auto-detected from the current branch when omitted)")
	rootCmd.Flags().StringVarP(&f.workflow, "workflow", "w", "", "only show checks of this CI workflow")
	rootCmd.Flags().StringVarP(&f.job, "job", "j", "", "only show checks whose name matches")
	rootCmd.Flags().BoolVar(&f.showFailing, "show-failing", false, "include failing checks (OR-combined with the other show flags)")
	rootCmd.Flags().BoolVar(&f.showPassing, "show-passing", false, "include passing checks (OR-combined with the other show flags)")
	rootCmd.Flags().BoolVar(&f.showInProgress, "show-in-progress", false, "include in-progress checks (OR-combined with the other show flags)")
	rootCmd.Flags().BoolVar(&f.jsonOut, "json", false, "emit the check list as JSON")
	rootCmd.Flags().BoolVar(&f.countOut, "count", false, "emit only the check count")
	rootCmd.Flags().BoolVar(&f.details, "details", false, "fetch failed-test, step-output and annotation details")
	rootCmd.Flags().BoolVar(&f.hideJobOutput, "hide-job-output", false, "with --details, skip step/log output")
	rootCmd.Flags().BoolVarP(&f.follow, "follow", "f", false, "poll and redraw the summary until interrupted")

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, application.ErrInterrupted) {
			os.Exit(exitInterrupted)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	// Usage errors are checked before any network activity.
	if f.follow && (f.jsonOut || f.countOut) {
		return fmt.Errorf("%w: --follow cannot be combined with --json or --count", application.ErrUsage)
	}

	// Repo detection: the env override wins; otherwise the enclosing git
	// checkout supplies slug and branch.
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	var locator *gitrepo.Locator
	slug := os.Getenv("PRCHECKS_REPO")
	repoRoot := cwd
	if slug == "" {
		locator, err = gitrepo.Open(cwd)
		if err != nil {
			return err
		}
		if slug, err = locator.Slug(); err != nil {
			return err
		}
		if repoRoot, err = locator.Root(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(repoRoot, cwd)
	if err != nil {
		return err
	}
	setupLogging(cfg.Debug)

	sc := githubadapter.NewClient(cfg.GitHubToken)

	prNumber := f.pullRequest
	if prNumber == 0 {
		if locator == nil {
			return fmt.Errorf("--pull-request is required when PRCHECKS_REPO is set (no branch to auto-detect from)")
		}
		branch, err := locator.CurrentBranch()
		if err != nil {
			return err
		}
		if prNumber, err = sc.DetectPullRequestNumber(ctx, slug, branch); err != nil {
			return err
		}
		slog.Debug("pull request auto-detected", "branch", branch, "pr", prNumber)
	}

	var ci *circleci.Client
	if cfg.HasCircleToken() {
		ci = circleci.NewClient(cfg.CircleToken)
	}

	agg := newAggregator(sc, ci, slug, cfg.CircleProject)
	renderer := term.New(os.Stdout)

	opts := application.Options{
		Filter: application.FilterOptions{
			Job:            f.job,
			Workflow:       f.workflow,
			ShowFailing:    f.showFailing,
			ShowPassing:    f.showPassing,
			ShowInProgress: f.showInProgress,
		},
		Details:       f.details,
		HideJobOutput: f.hideJobOutput,
	}

	if f.follow {
		// The interrupt is trapped only in follow mode, guaranteeing a
		// clean exit between renders rather than mid-draw termination.
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		return application.NewFollower(agg, renderer).Run(ctx, prNumber, opts)
	}

	report, err := agg.Run(ctx, prNumber, opts)
	if err != nil {
		return err
	}

	switch {
	case f.countOut:
		return renderer.RenderCount(report, f.jsonOut)
	case f.jsonOut:
		return renderer.RenderJSON(report)
	default:
		return renderer.RenderDetailed(report)
	}
}

// newAggregator adapts the concrete clients to the aggregator's ports. A nil
// *circleci.Client must become a nil interface, not a typed nil.
func newAggregator(sc *githubadapter.Client, ci *circleci.Client, slug, project string) *application.Aggregator {
	if ci == nil {
		return application.NewAggregator(sc, nil, slug, project)
	}
	return application.NewAggregator(sc, ci, slug, project)
}

// setupLogging installs the default slog handler: warnings only, raised to
// debug by the manifest/env debug setting.
func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
