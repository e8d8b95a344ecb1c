package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
	"github.com/cloudmatrix/cloudmatrix/internal/testutil"
)

// stubTracker records concurrency high-water marks and per-cloud start order
// while simulating job work.
type stubTracker struct {
	delay  time.Duration
	failFn func(spec model.JobSpec) error

	mu          sync.Mutex
	running     int
	maxRunning  int
	perCloud    map[string]int
	maxPerCloud map[string]int
	startOrder  map[string][]string
}

func newStubTracker(delay time.Duration) *stubTracker {
	return &stubTracker{
		delay:       delay,
		perCloud:    make(map[string]int),
		maxPerCloud: make(map[string]int),
		startOrder:  make(map[string][]string),
	}
}

func (s *stubTracker) Track(ctx context.Context, spec model.JobSpec) model.ExecutionResult {
	s.mu.Lock()
	s.running++
	if s.running > s.maxRunning {
		s.maxRunning = s.running
	}
	s.perCloud[spec.Cloud]++
	if s.perCloud[spec.Cloud] > s.maxPerCloud[spec.Cloud] {
		s.maxPerCloud[spec.Cloud] = s.perCloud[spec.Cloud]
	}
	s.startOrder[spec.Cloud] = append(s.startOrder[spec.Cloud], spec.Key())
	s.mu.Unlock()

	status := model.JobStatusPassed
	select {
	case <-time.After(s.delay):
		if s.failFn != nil {
			if err := s.failFn(spec); err != nil {
				status = model.JobStatusFailed
			}
		}
	case <-ctx.Done():
		status = model.JobStatusTimedOut
	}

	s.mu.Lock()
	s.running--
	s.perCloud[spec.Cloud]--
	s.mu.Unlock()

	res := model.NewResult(spec, status)
	if status == model.JobStatusFailed {
		res.ErrorDetail = "runner failed"
	}
	return res
}

func specsFor(cloud string, n int) []model.JobSpec {
	out := make([]model.JobSpec, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, testutil.NewJobSpec().
			WithService(string(rune('a'+i))+"-svc").
			WithCloud(cloud).
			Build())
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tracker := newStubTracker(0)

	_, err := New(Options{Capacity: 0, Tracker: tracker})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCapacity))

	_, err = New(Options{Capacity: 2, CloudLimits: map[string]int{"Public": 0}, Tracker: tracker})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCapacity))

	_, err = New(Options{Capacity: 2})
	require.Error(t, err)
}

func TestRunRespectsGlobalCapacity(t *testing.T) {
	tracker := newStubTracker(20 * time.Millisecond)
	sched, err := New(Options{Capacity: 2, Tracker: tracker})
	require.NoError(t, err)

	report := model.NewRunReport("run-1", "keyvault")
	require.NoError(t, sched.Run(context.Background(), specsFor("Public", 8), report))

	assert.Equal(t, 8, report.Len())
	assert.LessOrEqual(t, tracker.maxRunning, 2)
	// With 8 jobs and 20ms of work each, both workers were busy at once.
	assert.Equal(t, 2, tracker.maxRunning)

	snap := report.Snapshot()
	assert.Equal(t, 8, snap.Summary.Passed)
	assert.True(t, snap.Succeeded())
}

func TestRunRespectsCloudLimits(t *testing.T) {
	tracker := newStubTracker(15 * time.Millisecond)
	sched, err := New(Options{
		Capacity:    8,
		CloudLimits: map[string]int{"Public": 2},
		Tracker:     tracker,
	})
	require.NoError(t, err)

	specs := append(specsFor("Public", 6), specsFor("UsGov", 4)...)
	report := model.NewRunReport("run-1", "keyvault")
	require.NoError(t, sched.Run(context.Background(), specs, report))

	assert.Equal(t, 10, report.Len())
	assert.LessOrEqual(t, tracker.maxPerCloud["Public"], 2)
	// The uncapped cloud is only bounded by global capacity.
	assert.LessOrEqual(t, tracker.maxPerCloud["UsGov"], 8)
}

func TestRunPreservesPerCloudOrder(t *testing.T) {
	tracker := newStubTracker(2 * time.Millisecond)
	// One in-flight job per cloud makes the observed start order equal the
	// dispatch order.
	sched, err := New(Options{
		Capacity:    4,
		CloudLimits: map[string]int{"Public": 1, "UsGov": 1},
		Tracker:     tracker,
	})
	require.NoError(t, err)

	public := specsFor("Public", 4)
	gov := specsFor("UsGov", 4)
	specs := append(append([]model.JobSpec(nil), public...), gov...)

	report := model.NewRunReport("run-1", "keyvault")
	require.NoError(t, sched.Run(context.Background(), specs, report))

	wantPublic := make([]string, len(public))
	for i, s := range public {
		wantPublic[i] = s.Key()
	}
	wantGov := make([]string, len(gov))
	for i, s := range gov {
		wantGov[i] = s.Key()
	}
	assert.Equal(t, wantPublic, tracker.startOrder["Public"])
	assert.Equal(t, wantGov, tracker.startOrder["UsGov"])
}

func TestRunRecordsFailuresWithoutStopping(t *testing.T) {
	tracker := newStubTracker(time.Millisecond)
	tracker.failFn = func(spec model.JobSpec) error {
		if spec.Service == "b-svc" {
			return errors.New("boom")
		}
		return nil
	}
	sched, err := New(Options{Capacity: 2, Tracker: tracker})
	require.NoError(t, err)

	report := model.NewRunReport("run-1", "keyvault")
	require.NoError(t, sched.Run(context.Background(), specsFor("Public", 4), report))

	snap := report.Snapshot()
	assert.Equal(t, 4, snap.Summary.Total)
	assert.Equal(t, 3, snap.Summary.Passed)
	assert.Equal(t, 1, snap.Summary.Failed)
	assert.False(t, snap.Succeeded())
}

func TestRunGlobalDeadlineCancelsQueuedJobs(t *testing.T) {
	// The single worker blocks until the deadline fires, so the remaining
	// queued jobs are never dispatched. All three must still be reported.
	tracker := newStubTracker(10 * time.Second)
	sched, err := New(Options{
		Capacity:      1,
		GlobalTimeout: 50 * time.Millisecond,
		Tracker:       tracker,
	})
	require.NoError(t, err)

	specs := specsFor("Public", 3)
	report := model.NewRunReport("run-1", "keyvault")

	start := time.Now()
	require.NoError(t, sched.Run(context.Background(), specs, report))
	assert.Less(t, time.Since(start), 5*time.Second)

	snap := report.Snapshot()
	require.Equal(t, 3, snap.Summary.Total)
	assert.Equal(t, 3, snap.Summary.TimedOut)

	cancelled := 0
	for _, res := range snap.Results {
		if res.ErrorDetail == "cancelled before dispatch: run deadline exceeded" {
			cancelled++
		}
	}
	assert.Equal(t, 2, cancelled)
}

func TestRunEmptySpecList(t *testing.T) {
	sched, err := New(Options{Capacity: 2, Tracker: newStubTracker(0)})
	require.NoError(t, err)

	report := model.NewRunReport("run-1", "keyvault")
	require.NoError(t, sched.Run(context.Background(), nil, report))
	assert.Zero(t, report.Len())
}
