// Package service wires the orchestration pipeline: expansion, filtering,
// scheduling, execution, and report finalization.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudmatrix/cloudmatrix/config"
	"github.com/cloudmatrix/cloudmatrix/internal/core"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	"github.com/cloudmatrix/cloudmatrix/internal/filter"
	"github.com/cloudmatrix/cloudmatrix/internal/matrix"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/metrics"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/statsd"
	"github.com/cloudmatrix/cloudmatrix/internal/scheduler"
)

// RunServiceOptions holds the dependencies for creating a RunService.
type RunServiceOptions struct {
	// Document is the matrix description for this run. Required.
	Document *config.MatrixDocument

	// Capacity is the global worker limit. Must be positive.
	Capacity int

	// Tracker executes dispatched jobs. Required.
	Tracker core.Tracker

	// Archive optionally persists the finished report.
	Archive core.RunArchive

	// Baseline optionally compares against and updates the previous run's
	// statuses for regression marking.
	Baseline    core.BaselineStore
	BaselineTTL time.Duration

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RunService executes one full matrix run. Construction is fail-fast: a
// malformed filter pattern or invalid capacity surfaces here, before any job
// exists.
type RunService struct {
	doc      *config.MatrixDocument
	engine   *filter.Engine
	sched    *scheduler.Scheduler
	archive  core.RunArchive
	baseline core.BaselineStore
	ttl      time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRunService compiles filters and validates scheduling limits.
func NewRunService(opts RunServiceOptions) (*RunService, error) {
	if opts.Document == nil {
		return nil, errors.New("matrix document is required")
	}
	if err := opts.Document.Validate(); err != nil {
		return nil, err
	}
	if opts.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := filter.NewEngine(opts.Document)
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(scheduler.Options{
		Capacity:      opts.Capacity,
		CloudLimits:   opts.Document.CloudLimits(),
		GlobalTimeout: time.Duration(opts.Document.TestTimeoutInMinutes) * time.Minute,
		Tracker:       opts.Tracker,
		Logger:        logger,
		Metrics:       opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &RunService{
		doc:      opts.Document,
		engine:   engine,
		sched:    sched,
		archive:  opts.Archive,
		baseline: opts.Baseline,
		ttl:      opts.BaselineTTL,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Plan expands and filters the matrix without executing anything. Used for
// dry runs and reproducible matrix diffs.
func (s *RunService) Plan() (runnable []model.JobSpec, skipped []filter.Skip) {
	specs := matrix.Expand(uuid.NewString(), s.doc)
	return s.engine.Apply(specs)
}

// Execute runs the full pipeline and returns the finished report snapshot.
// Per-job failures are reflected in the snapshot, not the error; the error
// reports orchestration problems only.
func (s *RunService) Execute(ctx context.Context) (model.RunSnapshot, error) {
	started := time.Now()
	runID := uuid.NewString()

	specs := matrix.Expand(runID, s.doc)
	runnable, skips := s.engine.Apply(specs)

	s.logger.InfoContext(ctx, "matrix expanded",
		"run_id", runID, "jobs", len(specs), "runnable", len(runnable), "skipped", len(skips))

	report := model.NewRunReport(runID, s.doc.ServiceDirectory)
	for _, skip := range skips {
		res := model.NewResult(skip.Spec, model.JobStatusSkipped)
		res.ErrorDetail = "excluded by matrix filter: " + skip.Pattern
		if err := report.Append(res); err != nil {
			return model.RunSnapshot{}, err
		}
	}

	if err := s.sched.Run(ctx, runnable, report); err != nil {
		return model.RunSnapshot{}, err
	}

	s.markRegressions(ctx, report)
	snap := report.Snapshot()
	s.finalize(ctx, snap)

	metrics.EmitRun(s.metrics, snap.Summary, time.Since(started))
	s.logger.InfoContext(ctx, "run complete",
		"run_id", runID,
		"passed", snap.Summary.Passed,
		"failed", snap.Summary.Failed,
		"timed_out", snap.Summary.TimedOut,
		"skipped", snap.Summary.Skipped)

	return snap, nil
}

// markRegressions flags jobs that passed on the previous run of this matrix
// but did not pass now. Baseline problems are logged, never fatal.
func (s *RunService) markRegressions(ctx context.Context, report *model.RunReport) {
	if s.baseline == nil {
		return
	}

	prev, err := s.baseline.Get(ctx, s.doc.MatrixKey())
	if err != nil {
		s.logger.WarnContext(ctx, "load baseline failed", "error", err)
		return
	}

	for jobKey, prevStatus := range prev {
		if prevStatus != model.JobStatusPassed {
			continue
		}
		res, ok := report.Get(jobKey)
		if !ok || !res.Status.Failure() {
			continue
		}
		if err := report.Annotate(jobKey, func(r *model.ExecutionResult) {
			r.Regression = true
		}); err != nil {
			s.logger.WarnContext(ctx, "annotate regression failed", "job_key", jobKey, "error", err)
		}
	}
}

// finalize hands the report off to the optional archive and baseline
// collaborators. Neither can fail the run.
func (s *RunService) finalize(ctx context.Context, snap model.RunSnapshot) {
	if s.archive != nil {
		if err := s.archive.SaveRun(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "archive run failed", "run_id", snap.RunID, "error", err)
		}
	}

	if s.baseline != nil {
		statuses := make(map[string]model.JobStatus, len(snap.Results))
		for _, res := range snap.Results {
			statuses[res.JobKey] = res.Status
		}
		if err := s.baseline.Put(ctx, s.doc.MatrixKey(), statuses, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "store baseline failed", "run_id", snap.RunID, "error", err)
		}
	}
}
