// Package tracker executes dispatched jobs, enforces per-job timeouts, and
// produces terminal results.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cloudmatrix/cloudmatrix/internal/core"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/metrics"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/statsd"
)

// Options configures a Tracker.
type Options struct {
	// Runner executes the actual test work. Required.
	Runner core.Runner

	// GracePeriod is how long a cancelled runner may take to acknowledge
	// termination. After it elapses the job is recorded timed out
	// regardless and its resources are reclaimed by the caller.
	// Defaults to 10s.
	GracePeriod time.Duration

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Tracker invokes the runner with a job-scoped timeout independent of the
// run-level deadline. Safe for concurrent use.
type Tracker struct {
	runner  core.Runner
	grace   time.Duration
	logger  *slog.Logger
	metrics statsd.Sink
}

var _ core.Tracker = (*Tracker)(nil)

// New creates a Tracker from options.
func New(opts Options) (*Tracker, error) {
	if opts.Runner == nil {
		return nil, errors.New("runner is required")
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		runner:  opts.Runner,
		grace:   grace,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Track runs one job to a terminal result. The per-job timer derived from
// the spec runs independently of any deadline already on ctx; whichever
// fires first terminates the job and records it timed out. Track never
// panics the run for a stuck runner: after the grace period the result is
// recorded and the goroutine is abandoned to the runtime.
func (t *Tracker) Track(ctx context.Context, spec model.JobSpec) model.ExecutionResult {
	started := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- t.runner.Run(jobCtx, spec)
	}()

	var runErr error
	timedOut := false
	select {
	case runErr = <-done:
	case <-jobCtx.Done():
		timedOut = true
		cancel()
		timer := time.NewTimer(t.grace)
		defer timer.Stop()
		select {
		case runErr = <-done:
		case <-timer.C:
			t.logger.WarnContext(ctx, "runner did not acknowledge termination within grace period",
				"job", spec.String(), "grace", t.grace)
			runErr = jobCtx.Err()
		}
	}

	res := t.classify(ctx, jobCtx, spec, runErr, timedOut)
	elapsed := time.Since(started)

	startedAt := started.UTC()
	completedAt := startedAt.Add(elapsed)
	res.StartedAt = &startedAt
	res.CompletedAt = &completedAt
	res.DurationSeconds = elapsed.Seconds()

	metrics.EmitJobLifecycle(t.metrics, metrics.JobMetric{
		Cloud:    spec.Cloud,
		Service:  spec.Service,
		Status:   res.Status,
		Duration: elapsed,
	})
	t.logger.InfoContext(ctx, "job finished",
		"job", spec.String(), "status", res.Status, "duration", elapsed)

	return res
}

// classify maps the runner outcome onto a terminal status. Both the per-job
// timeout and a run-level cancellation arriving through the parent context
// are recorded as timed out; only a runner error with a live context counts
// as a failure.
func (t *Tracker) classify(
	parent, jobCtx context.Context,
	spec model.JobSpec,
	runErr error,
	timedOut bool,
) model.ExecutionResult {
	if timedOut || (runErr != nil && jobCtx.Err() != nil &&
		(errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded))) {
		res := model.NewResult(spec, model.JobStatusTimedOut)
		switch {
		case parent.Err() != nil:
			res.ErrorDetail = "run deadline exceeded while job was in flight"
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			res.ErrorDetail = "job timeout of " + spec.Timeout().String() + " exceeded"
		default:
			res.ErrorDetail = "job cancelled"
		}
		return res
	}

	if runErr != nil {
		res := model.NewResult(spec, model.JobStatusFailed)
		res.ErrorDetail = runErr.Error()
		return res
	}

	return model.NewResult(spec, model.JobStatusPassed)
}
