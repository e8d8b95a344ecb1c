package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	"github.com/cloudmatrix/cloudmatrix/internal/mocks"
	"github.com/cloudmatrix/cloudmatrix/internal/testutil"
)

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestTrackPassed(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil)

	tr, err := New(Options{Runner: runner})
	require.NoError(t, err)

	spec := testutil.NewJobSpec().Build()
	res := tr.Track(context.Background(), spec)

	assert.Equal(t, model.JobStatusPassed, res.Status)
	assert.Equal(t, spec.Key(), res.JobKey)
	assert.Empty(t, res.ErrorDetail)
	require.NotNil(t, res.StartedAt)
	require.NotNil(t, res.CompletedAt)
	assert.False(t, res.CompletedAt.Before(*res.StartedAt))
	assert.GreaterOrEqual(t, res.DurationSeconds, 0.0)
}

func TestTrackFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(errors.New("exit status 3"))

	tr, err := New(Options{Runner: runner})
	require.NoError(t, err)

	res := tr.Track(context.Background(), testutil.NewJobSpec().Build())

	assert.Equal(t, model.JobStatusFailed, res.Status)
	assert.Equal(t, "exit status 3", res.ErrorDetail)
}

func TestTrackJobTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, spec model.JobSpec) error {
			<-ctx.Done()
			return ctx.Err()
		})

	tr, err := New(Options{Runner: runner, GracePeriod: 50 * time.Millisecond})
	require.NoError(t, err)

	// A zero-minute timeout expires the job context immediately.
	spec := testutil.NewJobSpec().WithTimeoutMinutes(0).Build()
	res := tr.Track(context.Background(), spec)

	assert.Equal(t, model.JobStatusTimedOut, res.Status)
	assert.Contains(t, res.ErrorDetail, "job timeout")
}

func TestTrackRunDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, spec model.JobSpec) error {
			<-ctx.Done()
			return ctx.Err()
		})

	tr, err := New(Options{Runner: runner, GracePeriod: 50 * time.Millisecond})
	require.NoError(t, err)

	// The run-level deadline fires long before the 5 minute job timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := tr.Track(ctx, testutil.NewJobSpec().WithTimeoutMinutes(5).Build())

	assert.Equal(t, model.JobStatusTimedOut, res.Status)
	assert.Equal(t, "run deadline exceeded while job was in flight", res.ErrorDetail)
}

func TestTrackStuckRunnerReleasedAfterGrace(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	block := make(chan struct{})
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, spec model.JobSpec) error {
			// Ignores cancellation entirely.
			<-block
			return nil
		})
	defer close(block)

	tr, err := New(Options{Runner: runner, GracePeriod: 30 * time.Millisecond})
	require.NoError(t, err)

	spec := testutil.NewJobSpec().WithTimeoutMinutes(0).Build()

	start := time.Now()
	res := tr.Track(context.Background(), spec)

	assert.Equal(t, model.JobStatusTimedOut, res.Status)
	// Track returned shortly after the grace period instead of waiting on
	// the stuck runner.
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTrackRunnerErrorAfterCancellation(t *testing.T) {
	// A runner that surfaces the context error when cancelled is recorded
	// timed out, not failed.
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, spec model.JobSpec) error {
			<-ctx.Done()
			return context.DeadlineExceeded
		})

	tr, err := New(Options{Runner: runner, GracePeriod: time.Second})
	require.NoError(t, err)

	res := tr.Track(context.Background(), testutil.NewJobSpec().WithTimeoutMinutes(0).Build())
	assert.Equal(t, model.JobStatusTimedOut, res.Status)
}
