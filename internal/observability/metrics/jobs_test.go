package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
)

type metricCall struct {
	name string
	tags map[string]string
}

// recordingSink captures emitted metrics for assertions.
type recordingSink struct {
	counts  []metricCall
	gauges  []string
	timings []metricCall
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.counts = append(s.counts, metricCall{name: name, tags: tags})
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.gauges = append(s.gauges, fmt.Sprintf("%s=%g", name, value))
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.timings = append(s.timings, metricCall{name: name, tags: tags})
}

func TestEmitJobLifecycle(t *testing.T) {
	sink := &recordingSink{}

	EmitJobLifecycle(sink, JobMetric{
		Cloud:    "Public",
		Service:  "azkeys",
		Status:   model.JobStatusPassed,
		Duration: 2 * time.Second,
	})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "job.finished", sink.counts[0].name)
	assert.Equal(t, map[string]string{
		"cloud":   "Public",
		"service": "azkeys",
		"status":  "passed",
	}, sink.counts[0].tags)

	require.Len(t, sink.timings, 1)
	assert.Equal(t, "job.duration", sink.timings[0].name)
}

func TestEmitJobLifecycleZeroDurationSkipsTiming(t *testing.T) {
	sink := &recordingSink{}

	EmitJobLifecycle(sink, JobMetric{Cloud: "Public", Service: "azkeys", Status: model.JobStatusSkipped})

	assert.Len(t, sink.counts, 1)
	assert.Empty(t, sink.timings)
}

func TestEmitJobLifecycleNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitJobLifecycle(nil, JobMetric{Cloud: "Public"})
	})
}

func TestEmitRun(t *testing.T) {
	tests := []struct {
		name       string
		summary    model.RunSummary
		wantResult string
	}{
		{"all passed", model.RunSummary{Total: 4, Passed: 4}, ResultSuccess},
		{"with failures", model.RunSummary{Total: 4, Passed: 3, Failed: 1}, ResultError},
		{"with timeouts", model.RunSummary{Total: 4, Passed: 3, TimedOut: 1}, ResultError},
		{"empty run", model.RunSummary{}, ResultNoop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			EmitRun(sink, tt.summary, time.Minute)

			require.Len(t, sink.counts, 1)
			assert.Equal(t, "run.completed", sink.counts[0].name)
			assert.Equal(t, tt.wantResult, sink.counts[0].tags["result"])

			assert.Equal(t, []string{
				fmt.Sprintf("run.jobs_total=%d", tt.summary.Total),
				fmt.Sprintf("run.jobs_skipped=%d", tt.summary.Skipped),
			}, sink.gauges)

			require.Len(t, sink.timings, 1)
			assert.Equal(t, "run.duration", sink.timings[0].name)
		})
	}
}

func TestEmitRunNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitRun(nil, model.RunSummary{Total: 1}, time.Second)
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	assert.Nil(t, CloneTags(map[string]string{}))

	src := map[string]string{"cloud": "Public"}
	clone := CloneTags(src)
	clone["cloud"] = "UsGov"
	assert.Equal(t, "Public", src["cloud"])
}
