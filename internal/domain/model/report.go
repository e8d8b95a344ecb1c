package model

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ExecutionResult records the terminal outcome of a single job. Results are
// immutable once appended to a RunReport.
type ExecutionResult struct {
	JobKey          string    `json:"job_key"`
	Service         string    `json:"service"`
	Cloud           string    `json:"cloud"`
	Parameters      string    `json:"parameters,omitempty"`
	Status          JobStatus `json:"status"`
	DurationSeconds float64   `json:"duration_seconds"`
	ErrorDetail     string    `json:"error_detail,omitempty"`
	// Regression is set during finalization when the previous run passed
	// this job and the current run did not.
	Regression  bool       `json:"regression,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewResult builds an ExecutionResult for a spec with the given status.
func NewResult(spec JobSpec, status JobStatus) ExecutionResult {
	return ExecutionResult{
		JobKey:     spec.Key(),
		Service:    spec.Service,
		Cloud:      spec.Cloud,
		Parameters: spec.ParamString(),
		Status:     status,
	}
}

// RunSummary aggregates result counts for one invocation.
type RunSummary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	TimedOut int `json:"timed_out"`
	Skipped  int `json:"skipped"`
}

// RunSnapshot is the immutable, serializable form of a RunReport handed off
// to external reporting collaborators at run completion.
type RunSnapshot struct {
	RunID            string            `json:"run_id"`
	ServiceDirectory string            `json:"service_directory,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      time.Time         `json:"completed_at"`
	Summary          RunSummary        `json:"summary"`
	Results          []ExecutionResult `json:"results"`
}

// Succeeded reports whether every non-skipped job passed.
func (s RunSnapshot) Succeeded() bool {
	return s.Summary.Failed == 0 && s.Summary.TimedOut == 0
}

// RunReport aggregates all ExecutionResults for one invocation. It is a set
// keyed by job identity, so concurrent completion order never affects the
// final content. Safe for concurrent use.
type RunReport struct {
	runID            string
	serviceDirectory string
	startedAt        time.Time

	mu      sync.Mutex
	results map[string]ExecutionResult
}

// NewRunReport creates an empty report for the given run.
func NewRunReport(runID, serviceDirectory string) *RunReport {
	return &RunReport{
		runID:            runID,
		serviceDirectory: serviceDirectory,
		startedAt:        time.Now().UTC(),
		results:          make(map[string]ExecutionResult),
	}
}

// RunID returns the run identifier the report belongs to.
func (r *RunReport) RunID() string {
	return r.runID
}

// Append records a terminal result. Each job may produce exactly one result;
// a duplicate append is a programming error and is rejected.
func (r *RunReport) Append(res ExecutionResult) error {
	if res.JobKey == "" {
		return fmt.Errorf("result has empty job key")
	}
	if !res.Status.Valid() {
		return fmt.Errorf("result for %s has invalid status %q", res.JobKey, res.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.results[res.JobKey]; ok {
		return fmt.Errorf("duplicate result for %s: already recorded %s", res.JobKey, prev.Status)
	}
	r.results[res.JobKey] = res
	return nil
}

// Get returns the recorded result for a job key, if any.
func (r *RunReport) Get(jobKey string) (ExecutionResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[jobKey]
	return res, ok
}

// Len returns the number of recorded results.
func (r *RunReport) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Annotate replaces the stored result for a job key. It is used during
// finalization (e.g. regression marking) and requires the result to exist.
func (r *RunReport) Annotate(jobKey string, fn func(*ExecutionResult)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.results[jobKey]
	if !ok {
		return fmt.Errorf("no result recorded for %s", jobKey)
	}
	fn(&res)
	r.results[jobKey] = res
	return nil
}

// Snapshot freezes the report into its serializable form. Results are sorted
// by job key so output is deterministic regardless of completion order.
func (r *RunReport) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ExecutionResult, 0, len(r.results))
	for _, res := range r.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobKey < out[j].JobKey })

	summary := RunSummary{Total: len(out)}
	for _, res := range out {
		switch res.Status {
		case JobStatusPassed:
			summary.Passed++
		case JobStatusFailed:
			summary.Failed++
		case JobStatusTimedOut:
			summary.TimedOut++
		case JobStatusSkipped:
			summary.Skipped++
		}
	}

	return RunSnapshot{
		RunID:            r.runID,
		ServiceDirectory: r.serviceDirectory,
		StartedAt:        r.startedAt,
		CompletedAt:      time.Now().UTC(),
		Summary:          summary,
		Results:          out,
	}
}
