package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// DB captures the PostgreSQL connection settings.
type DB struct {
	URL             string        `env:"DATABASE_URL,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	MigrationsPath  string        `env:"DB_MIGRATIONS_PATH" envDefault:"file://migrations"`
}

// Retention configures the scheduled sweeper. An empty schedule disables it;
// on-demand pruning via the API works regardless.
type Retention struct {
	Schedule string `env:"RETENTION_SCHEDULE"`
	Days     int    `env:"RETENTION_DAYS" envDefault:"90"`
}

// Config is the full process configuration, parsed from the environment.
type Config struct {
	Addr       string        `env:"AUDIT_ADDR" envDefault:":8080"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"INFO"`
	AdminToken string        `env:"ADMIN_TOKEN"`
	ReqTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	DB         DB
	Retention  Retention
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
