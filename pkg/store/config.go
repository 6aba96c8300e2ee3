package store

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/openbms/tsdq/pkg/clickhouse"
)

// Backend names accepted in configuration
const (
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
)

// ErrDSNRequired is returned when the postgres backend has no DSN
var ErrDSNRequired = errors.New("DSN is required")

// Config selects and configures the timeseries store backend
type Config struct {
	Backend    string            `yaml:"backend" default:"clickhouse"`
	ClickHouse clickhouse.Config `yaml:"clickhouse"`
	Postgres   PostgresConfig    `yaml:"postgres"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns" default:"10"`
	MaxIdleConns int    `yaml:"maxIdleConns" default:"2"`
}

// Validate checks the configuration of the selected backend
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendClickHouse:
		if err := c.ClickHouse.Validate(); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres: %w", ErrDSNRequired)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}

	return nil
}

// New creates the store backend named by the configuration
func New(log logrus.FieldLogger, cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	switch cfg.Backend {
	case BackendClickHouse:
		client, err := clickhouse.NewClient(log, &cfg.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse client: %w", err)
		}

		return NewClickHouseStore(log, client), nil
	case BackendPostgres:
		return NewPostgresStore(log, &cfg.Postgres), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
