package application

import (
	"context"
	"errors"
	"time"
)

// followInterval is the fixed delay between polling passes.
const followInterval = time.Second

// SummaryRenderer is the driving port the follow loop draws through. The
// update operation clears exactly the previously drawn line count before
// re-emitting, keeping terminal-control concerns out of this package.
type SummaryRenderer interface {
	// RenderInitial draws the first pass and returns the drawn line count.
	RenderInitial(report *Report) (lines int, err error)
	// RenderUpdate clears the previous region and redraws, returning the
	// new line count.
	RenderUpdate(report *Report, previousLines int) (lines int, err error)
}

// Follower re-runs the aggregation pass on a fixed interval, redrawing the
// summary in place. It alternates between rendering and idle-waiting until
// the context is canceled (operator interrupt), which surfaces as
// ErrInterrupted. Each pass recomputes whether all checks are terminal;
// the loop itself never stops on that condition.
type Follower struct {
	agg      *Aggregator
	renderer SummaryRenderer
	interval time.Duration
}

// NewFollower creates a follow loop over the given aggregator and renderer.
func NewFollower(agg *Aggregator, renderer SummaryRenderer) *Follower {
	return &Follower{agg: agg, renderer: renderer, interval: followInterval}
}

// Run blocks until the context is canceled or a fetch fails. The first pass
// draws fresh; later passes overwrite the previous region.
func (f *Follower) Run(ctx context.Context, prNumber int, opts Options) error {
	report, err := f.agg.Run(ctx, prNumber, opts)
	if err != nil {
		return f.mapErr(ctx, err)
	}
	lines, err := f.renderer.RenderInitial(report)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ErrInterrupted
		case <-ticker.C:
			report, err := f.agg.Run(ctx, prNumber, opts)
			if err != nil {
				return f.mapErr(ctx, err)
			}
			if lines, err = f.renderer.RenderUpdate(report, lines); err != nil {
				return err
			}
		}
	}
}

// mapErr folds context cancellation mid-fetch into the interrupt result so
// the operator sees a clean exit rather than a spurious network error.
func (f *Follower) mapErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ErrInterrupted
	}
	return err
}
