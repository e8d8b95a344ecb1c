// Package scheduler assigns filtered jobs to bounded worker capacity across
// clouds and drives each job through its lifecycle.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cloudmatrix/cloudmatrix/internal/core"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/statsd"
)

// Options configures a Scheduler.
type Options struct {
	// Capacity is the global worker limit. Must be positive.
	Capacity int

	// CloudLimits optionally caps concurrently running jobs per cloud.
	// Values must be positive where present.
	CloudLimits map[string]int

	// GlobalTimeout is the run-level deadline. Zero means no deadline.
	GlobalTimeout time.Duration

	// Tracker executes dispatched jobs. Required.
	Tracker core.Tracker

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Scheduler dispatches jobs from per-cloud FIFO queues. Within a cloud jobs
// run in expansion order; across clouds dispatch round-robins so no cloud's
// queue drains completely before another cloud begins.
type Scheduler struct {
	capacity      int64
	cloudLimits   map[string]int
	globalTimeout time.Duration
	tracker       core.Tracker
	logger        *slog.Logger
	metrics       statsd.Sink
}

// New validates options and creates a Scheduler. A non-positive capacity is
// a fatal startup error.
func New(opts Options) (*Scheduler, error) {
	if opts.Capacity <= 0 {
		return nil, apperrors.Capacityf("worker capacity must be positive, got %d", opts.Capacity)
	}
	for cloud, limit := range opts.CloudLimits {
		if limit <= 0 {
			return nil, apperrors.Capacityf("concurrency limit for cloud %s must be positive, got %d", cloud, limit)
		}
	}
	if opts.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		capacity:      int64(opts.Capacity),
		cloudLimits:   opts.CloudLimits,
		globalTimeout: opts.GlobalTimeout,
		tracker:       opts.Tracker,
		logger:        logger,
		metrics:       opts.Metrics,
	}, nil
}

// jobHandle carries one job through its lifecycle. Transitions are guarded
// by the legal transition table so tests can assert state-machine legality.
type jobHandle struct {
	spec model.JobSpec

	mu    sync.Mutex
	state model.JobState
}

func (h *jobHandle) transition(to model.JobState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.CanTransition(to) {
		return fmt.Errorf("illegal state transition %s -> %s for %s", h.state, to, h.spec)
	}
	h.state = to
	return nil
}

// cloudQueue is a FIFO of queued jobs for one cloud plus its optional
// concurrency tokens. Queue mutation happens only on the dispatch
// goroutine; tokens are returned from worker goroutines.
type cloudQueue struct {
	cloud  string
	jobs   []*jobHandle
	head   int
	tokens chan struct{} // nil when the cloud is uncapped
}

func (q *cloudQueue) peek() *jobHandle {
	if q.head >= len(q.jobs) {
		return nil
	}
	return q.jobs[q.head]
}

func (q *cloudQueue) pop() *jobHandle {
	h := q.peek()
	if h != nil {
		q.head++
	}
	return h
}

func (q *cloudQueue) tryAcquire() bool {
	if q.tokens == nil {
		return true
	}
	select {
	case q.tokens <- struct{}{}:
		return true
	default:
		return false
	}
}

func (q *cloudQueue) release() {
	if q.tokens != nil {
		<-q.tokens
	}
}

func buildQueues(specs []model.JobSpec, limits map[string]int) []*cloudQueue {
	byCloud := make(map[string]*cloudQueue)
	for _, spec := range specs {
		q, ok := byCloud[spec.Cloud]
		if !ok {
			q = &cloudQueue{cloud: spec.Cloud}
			if limit := limits[spec.Cloud]; limit > 0 {
				q.tokens = make(chan struct{}, limit)
			}
			byCloud[spec.Cloud] = q
		}
		q.jobs = append(q.jobs, &jobHandle{spec: spec, state: model.JobStateQueued})
	}

	queues := make([]*cloudQueue, 0, len(byCloud))
	for _, q := range byCloud {
		queues = append(queues, q)
	}
	sort.Slice(queues, func(i, j int) bool { return queues[i].cloud < queues[j].cloud })
	return queues
}

func pendingJobs(queues []*cloudQueue) int {
	n := 0
	for _, q := range queues {
		n += len(q.jobs) - q.head
	}
	return n
}

// Run dispatches every spec and blocks until all jobs reach a terminal
// result. The set of jobs recorded in the report is exactly the input set:
// jobs the run deadline prevents from starting are recorded timed out, never
// silently dropped. Per-job failures are recorded, not returned; Run only
// errors on lifecycle violations, which indicate a bug.
func (s *Scheduler) Run(ctx context.Context, specs []model.JobSpec, report *model.RunReport) error {
	runCtx := ctx
	if s.globalTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.globalTimeout)
		defer cancel()
	}

	queues := buildQueues(specs, s.cloudLimits)
	sem := semaphore.NewWeighted(s.capacity)
	wake := make(chan struct{}, 1)
	var wg sync.WaitGroup

	s.logger.InfoContext(ctx, "scheduler starting",
		"jobs", len(specs), "clouds", len(queues),
		"capacity", s.capacity, "deadline", s.globalTimeout)

dispatch:
	for pendingJobs(queues) > 0 && runCtx.Err() == nil {
		progressed := false
		// One job per cloud per pass keeps dispatch round-robin.
		for _, q := range queues {
			h := q.peek()
			if h == nil {
				continue
			}
			if !q.tryAcquire() {
				continue
			}
			if err := sem.Acquire(runCtx, 1); err != nil {
				q.release()
				break dispatch
			}
			q.pop()
			if err := h.transition(model.JobStateDispatched); err != nil {
				sem.Release(1)
				q.release()
				return err
			}
			if s.metrics != nil {
				s.metrics.Count("scheduler.dispatched", 1, map[string]string{"cloud": q.cloud})
			}
			progressed = true
			wg.Add(1)
			go func(q *cloudQueue, h *jobHandle) {
				defer wg.Done()
				defer func() {
					sem.Release(1)
					q.release()
					select {
					case wake <- struct{}{}:
					default:
					}
				}()
				s.execute(runCtx, h, report)
			}(q, h)
		}
		if !progressed {
			select {
			case <-runCtx.Done():
			case <-wake:
			}
		}
	}

	// Anything still queued here was overtaken by the run deadline.
	if err := s.cancelPending(queues, report); err != nil {
		return err
	}

	wg.Wait()
	return nil
}

func (s *Scheduler) cancelPending(queues []*cloudQueue, report *model.RunReport) error {
	for _, q := range queues {
		for {
			h := q.pop()
			if h == nil {
				break
			}
			if err := h.transition(model.JobStateCancelled); err != nil {
				return err
			}
			res := model.NewResult(h.spec, model.JobStatusTimedOut)
			res.ErrorDetail = "cancelled before dispatch: run deadline exceeded"
			if err := report.Append(res); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.Count("scheduler.cancelled", 1, map[string]string{"cloud": q.cloud})
			}
		}
	}
	return nil
}

func (s *Scheduler) execute(ctx context.Context, h *jobHandle, report *model.RunReport) {
	if err := h.transition(model.JobStateRunning); err != nil {
		s.logger.ErrorContext(ctx, "job lifecycle violation", "job", h.spec.String(), "error", err)
		return
	}

	res := s.tracker.Track(ctx, h.spec)

	if err := h.transition(model.JobStateFinished); err != nil {
		s.logger.ErrorContext(ctx, "job lifecycle violation", "job", h.spec.String(), "error", err)
	}
	if err := report.Append(res); err != nil {
		s.logger.ErrorContext(ctx, "record result failed", "job", h.spec.String(), "error", err)
	}
}
