package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
)

// DefaultTestTimeoutMinutes is the global deadline applied when the matrix
// document omits TestTimeoutInMinutes.
const DefaultTestTimeoutMinutes = 60

// MatrixDocument is one declarative test-run description. The field names
// mirror the pipeline-parameter documents the engine consumes, so YAML keys
// are PascalCase.
type MatrixDocument struct {
	// Services lists the service packages under test. When empty, the
	// engine falls back to its configured default service list.
	Services []string `yaml:"Services"`

	// ServiceDirectory is the grouping namespace for the services.
	ServiceDirectory string `yaml:"ServiceDirectory"`

	// SupportedClouds is a comma-separated list of cloud identifiers.
	SupportedClouds string `yaml:"SupportedClouds"`

	// TestTimeoutInMinutes is the run-wide deadline. Individual clouds may
	// override it per job via CloudConfig.
	TestTimeoutInMinutes int `yaml:"TestTimeoutInMinutes"`

	// CloudConfig maps a cloud identifier to its cloud-scoped settings.
	// Every key must also appear in SupportedClouds.
	CloudConfig map[string]CloudConfig `yaml:"CloudConfig"`

	// EnvVars are passed through verbatim to every job's execution
	// environment.
	EnvVars map[string]string `yaml:"EnvVars"`
}

// CloudConfig holds the per-cloud portion of a matrix document.
type CloudConfig struct {
	// MatrixFilters are match-to-exclude patterns applied to the
	// serialized parameter string of jobs targeting this cloud.
	MatrixFilters []string `yaml:"MatrixFilters"`

	// Parameters lists the parameter combinations to expand for this
	// cloud. An empty list yields one job per service with no parameters.
	Parameters []map[string]string `yaml:"Parameters"`

	// TimeoutInMinutes overrides the global per-job timeout for this cloud.
	TimeoutInMinutes int `yaml:"TimeoutInMinutes"`

	// MaxConcurrency caps concurrently running jobs for this cloud.
	// Zero means no cloud-specific cap.
	MaxConcurrency int `yaml:"MaxConcurrency"`
}

// LoadMatrixDocument reads and validates a matrix document from disk.
// Unknown fields are rejected so typos fail fast instead of silently
// changing the matrix.
func LoadMatrixDocument(path string, defaultServices []string) (*MatrixDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfig, fmt.Sprintf("open matrix document %s", path), err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var doc MatrixDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfig, fmt.Sprintf("parse matrix document %s", path), err)
	}

	doc.applyDefaults(defaultServices)
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *MatrixDocument) applyDefaults(defaultServices []string) {
	if len(d.Services) == 0 {
		d.Services = append([]string(nil), defaultServices...)
	}
	if d.TestTimeoutInMinutes <= 0 {
		d.TestTimeoutInMinutes = DefaultTestTimeoutMinutes
	}
}

// Validate checks document-level invariants. Violations are configuration
// errors: they abort the run before any job is created.
func (d *MatrixDocument) Validate() error {
	if len(d.Services) == 0 {
		return apperrors.ConfigField("Services", "no services declared and no default service list configured")
	}
	seen := make(map[string]bool, len(d.Services))
	for _, svc := range d.Services {
		if strings.TrimSpace(svc) == "" {
			return apperrors.ConfigField("Services", "service names must not be blank")
		}
		// A duplicate service would expand to two jobs with the same
		// identity; only one result could ever be recorded.
		if seen[svc] {
			return apperrors.Configf("duplicate service %q in Services", svc)
		}
		seen[svc] = true
	}

	clouds := d.Clouds()
	if len(clouds) == 0 {
		return apperrors.ConfigField("SupportedClouds", "at least one cloud identifier is required")
	}
	known := make(map[string]bool, len(clouds))
	for _, c := range clouds {
		if known[c] {
			return apperrors.Configf("duplicate cloud identifier %q in SupportedClouds", c)
		}
		known[c] = true
	}

	for cloud, cc := range d.CloudConfig {
		if !known[cloud] {
			return apperrors.Configf("CloudConfig references unknown cloud identifier %q", cloud)
		}
		if cc.TimeoutInMinutes < 0 {
			return apperrors.Configf("CloudConfig[%s]: TimeoutInMinutes must not be negative", cloud)
		}
		if cc.MaxConcurrency < 0 {
			return apperrors.Configf("CloudConfig[%s]: MaxConcurrency must not be negative", cloud)
		}
		combos := make(map[string]bool, len(cc.Parameters))
		for _, combo := range cc.Parameters {
			key := paramKey(combo)
			if combos[key] {
				return apperrors.Configf("CloudConfig[%s]: duplicate parameter combination %q", cloud, key)
			}
			combos[key] = true
		}
	}

	return nil
}

// paramKey canonicalizes a parameter combination the same way job identity
// does: key=value pairs joined by ";" with keys sorted. Two combinations with
// equal keys would collapse into one job.
func paramKey(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, ";")
}

// Clouds returns the supported cloud identifiers, trimmed, in declaration
// order.
func (d *MatrixDocument) Clouds() []string {
	parts := strings.Split(d.SupportedClouds, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		c := strings.TrimSpace(p)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// TimeoutMinutesFor returns the per-job timeout for a cloud: the cloud
// override when present, else the global TestTimeoutInMinutes.
func (d *MatrixDocument) TimeoutMinutesFor(cloud string) int {
	if cc, ok := d.CloudConfig[cloud]; ok && cc.TimeoutInMinutes > 0 {
		return cc.TimeoutInMinutes
	}
	return d.TestTimeoutInMinutes
}

// CloudLimits returns the per-cloud concurrency caps declared in the
// document. Clouds without a cap are absent from the map.
func (d *MatrixDocument) CloudLimits() map[string]int {
	limits := make(map[string]int)
	for cloud, cc := range d.CloudConfig {
		if cc.MaxConcurrency > 0 {
			limits[cloud] = cc.MaxConcurrency
		}
	}
	return limits
}

// MatrixKey identifies the matrix shape for baseline comparison: the same
// document produces the same key across runs.
func (d *MatrixDocument) MatrixKey() string {
	svcs := append([]string(nil), d.Services...)
	sort.Strings(svcs)
	return d.ServiceDirectory + ":" + strings.Join(svcs, ",")
}
