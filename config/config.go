// Package config holds runtime configuration for the cloudmatrix engine.
//
// Two kinds of configuration exist and are deliberately separate:
//
//   - Process-level settings (worker capacity, runner command, archive and
//     baseline backends) loaded from environment variables via
//     github.com/caarlos0/env. See AppConfig.
//   - The matrix document describing one test run (services, clouds,
//     filters, timeouts). See matrix.go.
package config

import (
	"time"
)

// AppConfig is the process-level configuration, loaded from environment
// variables. See individual domain config files for details:
//   - database.go: run archive and baseline store configuration
//   - observability.go: metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Capacity is the global worker capacity: the maximum number of jobs
	// running concurrently across all clouds. A value <= 0 is a fatal
	// startup error; it is validated, not clamped.
	Capacity int `env:"WORKER_CAPACITY" envDefault:"4"`

	// RunnerCommand is the external test runner invoked once per job.
	// Required for `run`; expand/validate work without it.
	RunnerCommand string `env:"RUNNER_COMMAND"`

	// RunnerArgs are extra arguments passed to the runner before the
	// service and cloud positional arguments.
	RunnerArgs []string `env:"RUNNER_ARGS" envSeparator:" "`

	// DefaultServices is used when the matrix document omits its Services
	// list.
	DefaultServices []string `env:"DEFAULT_SERVICES" envSeparator:","`

	// TerminationGracePeriod is how long a timed-out job may take to
	// acknowledge cancellation before its resources are reclaimed anyway.
	TerminationGracePeriod time.Duration `env:"TERMINATION_GRACE_PERIOD" envDefault:"10s"`

	// Archive configuration (Postgres run history).
	ArchiveEnabled bool     `env:"ARCHIVE_ENABLED" envDefault:"false"`
	Postgres       DBConfig `envPrefix:"DB_"`

	// Baseline configuration (Redis previous-run statuses for regression
	// marking).
	BaselineEnabled bool        `env:"BASELINE_ENABLED" envDefault:"false"`
	Redis           RedisConfig `envPrefix:"REDIS_"`

	// Observability configuration.
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Capacity is intentionally not clamped here: a non-positive capacity must
// surface as a startup error, never be silently corrected.
func (c *AppConfig) Sanitize() {
	if c.TerminationGracePeriod < time.Second {
		c.TerminationGracePeriod = time.Second
	}
	c.Observability.Sanitize()
}
