// Package matrix turns a declarative matrix document into a concrete,
// ordered set of executable job specs.
package matrix

import (
	"sort"

	"github.com/cloudmatrix/cloudmatrix/config"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
)

// Expand produces the Cartesian product service × cloud × parameter
// combination for the document. Expansion order is deterministic:
// lexicographic by service, then cloud, then serialized parameter
// combination, so repeated runs over the same document produce identically
// ordered job sequences.
//
// A cloud with no declared parameter combinations yields exactly one spec
// per service with empty parameters, so the total count is always
// |Services| × Σ_cloud max(1, |combinations|).
func Expand(runID string, doc *config.MatrixDocument) []model.JobSpec {
	services := append([]string(nil), doc.Services...)
	sort.Strings(services)

	clouds := doc.Clouds()
	sort.Strings(clouds)

	var specs []model.JobSpec
	for _, svc := range services {
		for _, cloud := range clouds {
			specs = append(specs, expandCloud(runID, doc, svc, cloud)...)
		}
	}
	return specs
}

func expandCloud(runID string, doc *config.MatrixDocument, service, cloud string) []model.JobSpec {
	timeout := doc.TimeoutMinutesFor(cloud)

	combos := doc.CloudConfig[cloud].Parameters
	if len(combos) == 0 {
		return []model.JobSpec{newSpec(runID, doc, service, cloud, nil, timeout)}
	}

	specs := make([]model.JobSpec, 0, len(combos))
	for _, combo := range combos {
		specs = append(specs, newSpec(runID, doc, service, cloud, combo, timeout))
	}
	// Order combinations by their canonical serialization, not document
	// order, so reordering entries in the document does not reorder jobs.
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].ParamString() < specs[j].ParamString()
	})
	return specs
}

func newSpec(
	runID string,
	doc *config.MatrixDocument,
	service, cloud string,
	params map[string]string,
	timeoutMinutes int,
) model.JobSpec {
	spec := model.JobSpec{
		RunID:          runID,
		Service:        service,
		Cloud:          cloud,
		TimeoutMinutes: timeoutMinutes,
	}
	if len(params) > 0 {
		spec.Parameters = make(map[string]string, len(params))
		for k, v := range params {
			spec.Parameters[k] = v
		}
	}
	if len(doc.EnvVars) > 0 {
		spec.Env = make(map[string]string, len(doc.EnvVars))
		for k, v := range doc.EnvVars {
			spec.Env[k] = v
		}
	}
	return spec
}
