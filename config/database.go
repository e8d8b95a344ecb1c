package config

import "time"

// DBConfig contains PostgreSQL configuration for the run archive.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"cloudmatrix"`
	Password string `env:"PASSWORD" envDefault:"cloudmatrix"`
	Name     string `env:"NAME"     envDefault:"cloudmatrix"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the archive schema is applied
	// automatically when the archive connects.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the baseline store.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// BaselineTTL bounds how long a stored baseline stays relevant.
	BaselineTTL time.Duration `env:"BASELINE_TTL" envDefault:"720h"`
}
