package cmd

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/openbms/tsdq/pkg/checks"
	"github.com/openbms/tsdq/pkg/redis"
	"github.com/openbms/tsdq/pkg/store"
)

// Config is the service configuration shared by the report, scheduler and
// worker commands. The report command only needs the store section; the
// scheduler and worker additionally need redis and checks.
type Config struct {
	Logging     string         `yaml:"logging" default:"info"`
	MetricsAddr string         `yaml:"metricsAddr" default:":9090"`
	Concurrency int            `yaml:"concurrency" default:"10"`
	Store       store.Config   `yaml:"store"`
	Redis       redis.Config   `yaml:"redis"`
	Checks      []checks.Check `yaml:"checks"`
}

// checksConfig wraps the check list for validation
func (c *Config) checksConfig() *checks.Config {
	return &checks.Config{Checks: c.Checks}
}

// validateServices checks the sections the scheduler and worker need
func (c *Config) validateServices() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := c.checksConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// loadConfig loads the service configuration from a YAML file
func loadConfig(file string) (*Config, error) {
	if file == "" {
		file = "config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	// Re-apply defaults so check entries from the file get their zero fields
	// filled in
	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setupLogger configures the global logger from the config level
func setupLogger(config *Config) error {
	level, err := logrus.ParseLevel(config.Logging)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Logging, err)
	}

	logger.SetLevel(level)

	return nil
}
