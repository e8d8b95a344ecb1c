// Package core defines the interfaces that connect the orchestration
// pipeline to its collaborators.
package core

import (
	"context"
	"time"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
)

// Runner is the external test-execution collaborator. Run executes one job
// to completion and returns nil on success. Implementations must honor
// context cancellation: when ctx is done the runner should terminate the
// underlying work and return promptly.
type Runner interface {
	Run(ctx context.Context, spec model.JobSpec) error
}

// Tracker executes one dispatched job under its per-job timeout and
// produces exactly one terminal result.
type Tracker interface {
	Track(ctx context.Context, spec model.JobSpec) model.ExecutionResult
}

// RunArchive persists completed run reports for later inspection and
// diffing. Archiving failures never fail the run itself.
type RunArchive interface {
	SaveRun(ctx context.Context, snap model.RunSnapshot) error
	ListRuns(ctx context.Context, limit int) ([]model.ArchivedRun, error)
}

// BaselineStore remembers each job's status from the previous run of the
// same matrix so the next run can flag regressions.
type BaselineStore interface {
	Get(ctx context.Context, matrixKey string) (map[string]model.JobStatus, error)
	Put(ctx context.Context, matrixKey string, statuses map[string]model.JobStatus, ttl time.Duration) error
}
