// Package metrics provides shared helpers for emitting job lifecycle metrics.
package metrics

import (
	"time"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Cloud    string
	Service  string
	Status   model.JobStatus
	Duration time.Duration
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"cloud":   in.Cloud,
		"service": in.Service,
		"status":  string(in.Status),
	}

	sink.Count("job.finished", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EmitRun emits run-level summary metrics.
func EmitRun(sink statsd.Sink, summary model.RunSummary, elapsed time.Duration) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	if summary.Failed > 0 || summary.TimedOut > 0 {
		result = ResultError
	} else if summary.Total == 0 {
		result = ResultNoop
	}
	tags := map[string]string{"result": result}

	sink.Count("run.completed", 1, tags)
	sink.Gauge("run.jobs_total", float64(summary.Total), nil)
	sink.Gauge("run.jobs_skipped", float64(summary.Skipped), nil)
	if elapsed > 0 {
		sink.Timing("run.duration", elapsed, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
