// Package testutil provides builders and helpers for cloudmatrix tests.
package testutil

import (
	"os"
	"testing"

	"github.com/cloudmatrix/cloudmatrix/config"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
)

// SkipIfNoTestDB skips integration tests unless a test database is
// configured via CLOUDMATRIX_TEST_DB_DSN.
func SkipIfNoTestDB(t *testing.T) {
	t.Helper()
	if os.Getenv("CLOUDMATRIX_TEST_DB_DSN") == "" {
		t.Skip("set CLOUDMATRIX_TEST_DB_DSN to run database integration tests")
	}
}

// SkipIfNoTestRedis skips integration tests unless a test Redis is
// configured via CLOUDMATRIX_TEST_REDIS_ADDR.
func SkipIfNoTestRedis(t *testing.T) {
	t.Helper()
	if os.Getenv("CLOUDMATRIX_TEST_REDIS_ADDR") == "" {
		t.Skip("set CLOUDMATRIX_TEST_REDIS_ADDR to run redis integration tests")
	}
}

// JobSpecBuilder provides a fluent interface for building JobSpecs in tests.
type JobSpecBuilder struct {
	spec model.JobSpec
}

// NewJobSpec creates a builder with sensible defaults.
func NewJobSpec() *JobSpecBuilder {
	return &JobSpecBuilder{
		spec: model.JobSpec{
			RunID:          "run-test",
			Service:        "azkeys",
			Cloud:          "Public",
			TimeoutMinutes: 5,
		},
	}
}

// WithService sets the service package.
func (b *JobSpecBuilder) WithService(service string) *JobSpecBuilder {
	b.spec.Service = service
	return b
}

// WithCloud sets the target cloud.
func (b *JobSpecBuilder) WithCloud(cloud string) *JobSpecBuilder {
	b.spec.Cloud = cloud
	return b
}

// WithParam adds one parameter to the combination.
func (b *JobSpecBuilder) WithParam(key, value string) *JobSpecBuilder {
	if b.spec.Parameters == nil {
		b.spec.Parameters = make(map[string]string)
	}
	b.spec.Parameters[key] = value
	return b
}

// WithTimeoutMinutes sets the per-job timeout.
func (b *JobSpecBuilder) WithTimeoutMinutes(m int) *JobSpecBuilder {
	b.spec.TimeoutMinutes = m
	return b
}

// WithEnv adds one passthrough environment variable.
func (b *JobSpecBuilder) WithEnv(key, value string) *JobSpecBuilder {
	if b.spec.Env == nil {
		b.spec.Env = make(map[string]string)
	}
	b.spec.Env[key] = value
	return b
}

// Build returns the assembled spec.
func (b *JobSpecBuilder) Build() model.JobSpec {
	return b.spec
}

// MatrixDocumentBuilder provides a fluent interface for building matrix
// documents in tests.
type MatrixDocumentBuilder struct {
	doc config.MatrixDocument
}

// NewMatrixDocument creates a builder with a minimal valid document.
func NewMatrixDocument() *MatrixDocumentBuilder {
	return &MatrixDocumentBuilder{
		doc: config.MatrixDocument{
			Services:             []string{"azkeys"},
			ServiceDirectory:     "keyvault",
			SupportedClouds:      "Public",
			TestTimeoutInMinutes: 5,
		},
	}
}

// WithServices replaces the service list.
func (b *MatrixDocumentBuilder) WithServices(services ...string) *MatrixDocumentBuilder {
	b.doc.Services = services
	return b
}

// WithClouds sets the SupportedClouds string.
func (b *MatrixDocumentBuilder) WithClouds(clouds string) *MatrixDocumentBuilder {
	b.doc.SupportedClouds = clouds
	return b
}

// WithTimeout sets the global test timeout.
func (b *MatrixDocumentBuilder) WithTimeout(minutes int) *MatrixDocumentBuilder {
	b.doc.TestTimeoutInMinutes = minutes
	return b
}

// WithCloudConfig sets the configuration for one cloud.
func (b *MatrixDocumentBuilder) WithCloudConfig(cloud string, cc config.CloudConfig) *MatrixDocumentBuilder {
	if b.doc.CloudConfig == nil {
		b.doc.CloudConfig = make(map[string]config.CloudConfig)
	}
	b.doc.CloudConfig[cloud] = cc
	return b
}

// WithEnvVar adds one passthrough environment variable.
func (b *MatrixDocumentBuilder) WithEnvVar(key, value string) *MatrixDocumentBuilder {
	if b.doc.EnvVars == nil {
		b.doc.EnvVars = make(map[string]string)
	}
	b.doc.EnvVars[key] = value
	return b
}

// Build returns the assembled document.
func (b *MatrixDocumentBuilder) Build() *config.MatrixDocument {
	doc := b.doc
	return &doc
}
