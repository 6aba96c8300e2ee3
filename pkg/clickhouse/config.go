// Package clickhouse provides a read-only ClickHouse client over the HTTP
// interface, used by the ClickHouse timeseries store backend
package clickhouse

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrURLRequired = errors.New("URL is required")
)

// Config contains ClickHouse connection settings
type Config struct {
	URL          string        `yaml:"url"`
	Database     string        `yaml:"database"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
	KeepAlive    time.Duration `yaml:"keepAlive"`
	Debug        bool          `yaml:"debug"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "bms"
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
}
