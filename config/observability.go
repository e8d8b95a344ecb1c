package config

import "strings"

// ObservabilityConfig contains metrics configuration.
type ObservabilityConfig struct {
	// StatsdEnabled toggles metric emission.
	StatsdEnabled bool `env:"STATSD_ENABLED" envDefault:"false"`

	// StatsdAddress is the host:port of the StatsD UDP endpoint.
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"localhost:8125"`

	// StatsdPrefix is prepended to every metric name.
	StatsdPrefix string `env:"STATSD_PREFIX" envDefault:"cloudmatrix"`
}

// Sanitize applies guardrails to observability configuration values.
func (o *ObservabilityConfig) Sanitize() {
	o.StatsdAddress = strings.TrimSpace(o.StatsdAddress)
	if o.StatsdAddress == "" {
		o.StatsdEnabled = false
	}
}
