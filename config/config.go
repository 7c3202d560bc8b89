// Package config provides configuration loading and validation for the
// skemadb command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Schema  string        `yaml:"schema"` // path to a YAML schema descriptor
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Driver    string `yaml:"driver"`           // "memory", "sqlite" or "redis"
	DSN       string `yaml:"dsn"`              // sqlite file path or redis URL
	Namespace string `yaml:"namespace"`        // collection name
	Prefix    string `yaml:"prefix,omitempty"` // redis key prefix
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file. An empty path yields Default.
// Environment variables are expanded inside the file and SKEMADB_* variables
// override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies SKEMADB_* environment variables to the config.
//
//	SKEMADB_STORE      - store driver
//	SKEMADB_DSN        - sqlite path or redis URL
//	SKEMADB_NAMESPACE  - collection name
//	SKEMADB_SCHEMA     - schema descriptor path
//	SKEMADB_LOG_LEVEL  - log level
//	SKEMADB_LOG_FORMAT - json or console
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKEMADB_STORE"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SKEMADB_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("SKEMADB_NAMESPACE"); v != "" {
		cfg.Store.Namespace = v
	}
	if v := os.Getenv("SKEMADB_SCHEMA"); v != "" {
		cfg.Schema = v
	}
	if v := os.Getenv("SKEMADB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SKEMADB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMemory
	}
	if cfg.Store.Namespace == "" {
		cfg.Store.Namespace = "json"
	}
	if cfg.Store.DSN == "" {
		switch cfg.Store.Driver {
		case DriverSQLite:
			cfg.Store.DSN = "skemadb.db"
		case DriverRedis:
			cfg.Store.DSN = "redis://localhost:6379"
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be one of memory, sqlite, redis", c.Store.Driver))
	}
	if c.Store.Namespace == "" {
		errs = append(errs, errors.New("store.namespace is required"))
	}
	if c.Store.Driver != DriverMemory && c.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required for %s", c.Store.Driver))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}
