package db

import "time"

// Config holds PostgreSQL connection parameters.
type Config struct {
	URL             string        `env:"DATABASE_URL" yaml:"url"`
	MigrationsTable string        `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"schema_migrations" yaml:"migrations_table"`
	MaxConns        int32         `env:"DATABASE_MAX_CONNS" envDefault:"10" yaml:"max_conns"`
	MinConns        int32         `env:"DATABASE_MIN_CONNS" envDefault:"2" yaml:"min_conns"`
	MaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m" yaml:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m" yaml:"max_conn_lifetime"`
	RetryAttempts   int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`
	RetryInterval   time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"2s" yaml:"retry_interval"`
}
