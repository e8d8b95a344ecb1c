// Package model defines the core data types used throughout the cloudmatrix orchestration engine.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// JobState represents the lifecycle state of a job inside the scheduler.
type JobState string

// JobStatus represents the terminal outcome of a job.
type JobStatus string

const (
	// JobStateQueued indicates a job is waiting for worker capacity.
	JobStateQueued JobState = "queued"
	// JobStateDispatched indicates a job has been assigned a worker but has not started.
	JobStateDispatched JobState = "dispatched"
	// JobStateRunning indicates the external runner is executing the job.
	JobStateRunning JobState = "running"
	// JobStateCancelled indicates the job was cancelled before it started running.
	JobStateCancelled JobState = "cancelled"
	// JobStateFinished indicates the job reached a terminal outcome.
	JobStateFinished JobState = "finished"

	// JobStatusPassed indicates the runner exited successfully.
	JobStatusPassed JobStatus = "passed"
	// JobStatusFailed indicates the runner exited with an error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusTimedOut indicates the job hit its own timeout or the run deadline.
	JobStatusTimedOut JobStatus = "timed_out"
	// JobStatusSkipped indicates a matrix filter excluded the job before scheduling.
	JobStatusSkipped JobStatus = "skipped"
)

// jobStateTransitions is the legal transition table for the job lifecycle.
// Cancellation is only reachable before the runner starts; a running job that
// is terminated still passes through Finished with a timed_out status.
var jobStateTransitions = map[JobState][]JobState{
	JobStateQueued:     {JobStateDispatched, JobStateCancelled},
	JobStateDispatched: {JobStateRunning, JobStateCancelled},
	JobStateRunning:    {JobStateFinished},
	JobStateCancelled:  {},
	JobStateFinished:   {},
}

// Valid returns true if the JobState is a known state.
func (s JobState) Valid() bool {
	_, ok := jobStateTransitions[s]
	return ok
}

// Terminal returns true if no further transitions are possible from this state.
func (s JobState) Terminal() bool {
	return s.Valid() && len(jobStateTransitions[s]) == 0
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s JobState) CanTransition(next JobState) bool {
	for _, allowed := range jobStateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid returns true if the JobStatus is a known terminal status.
func (s JobStatus) Valid() bool {
	return s == JobStatusPassed || s == JobStatusFailed || s == JobStatusTimedOut ||
		s == JobStatusSkipped
}

// Failure reports whether the status counts against the run outcome.
// Skipped jobs never fail a run.
func (s JobStatus) Failure() bool {
	return s == JobStatusFailed || s == JobStatusTimedOut
}

// JobSpec is one concrete, fully parameterized unit of test work produced by
// matrix expansion. Specs are immutable once created; downstream components
// only read them.
type JobSpec struct {
	// RunID links the spec to the invocation that produced it.
	RunID string `json:"run_id"`
	// Service is the service package under test.
	Service string `json:"service"`
	// Cloud identifies the target cloud environment (e.g. Public, UsGov).
	Cloud string `json:"cloud"`
	// Parameters holds one parameter combination from the matrix.
	Parameters map[string]string `json:"parameters,omitempty"`
	// TimeoutMinutes is the per-job execution deadline.
	TimeoutMinutes int `json:"timeout_minutes"`
	// Env is the merged execution environment passed verbatim to the runner.
	Env map[string]string `json:"env,omitempty"`
}

// Key returns the stable identity of the spec within a run. Two specs with
// the same service, cloud, and parameter combination are the same job.
func (s JobSpec) Key() string {
	return s.Service + "/" + s.Cloud + "/" + s.ParamString()
}

// ParamString returns the canonical serialization of the parameter
// combination: key=value pairs joined by ";" with keys sorted. Filter rules
// match against this form.
func (s JobSpec) ParamString() string {
	if len(s.Parameters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.Parameters[k])
	}
	return b.String()
}

// Timeout returns the per-job execution deadline as a duration.
func (s JobSpec) Timeout() time.Duration {
	return time.Duration(s.TimeoutMinutes) * time.Minute
}

// String implements fmt.Stringer for log output.
func (s JobSpec) String() string {
	if p := s.ParamString(); p != "" {
		return fmt.Sprintf("%s/%s[%s]", s.Service, s.Cloud, p)
	}
	return s.Service + "/" + s.Cloud
}
