package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// MinNamespaceKeyLength is the floor for namespace keys. Topic derivation
// takes a fixed-length prefix of the key hash, so short keys are rejected
// at the boundary before any store or broker access.
const MinNamespaceKeyLength = 20

// Config holds the configuration for the list-sync service.
// Environment variables are parsed from the LISTSYNC_ prefix.
type Config struct {
	// Build target selects the high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// KV driver override; "auto" derives from BuildTarget
	KVDriver string `envconfig:"KV_DRIVER" default:"auto"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// SQLite Configuration (local target)
	SQLitePath string `envconfig:"SQLITE_PATH" default:"listsync.db"`

	// Postgres Configuration (cloud targets)
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Authorized namespace keys. Each key scopes one list; keys double as
	// the store key prefix, so they are secrets and never logged in full.
	APIKeys []string `envconfig:"API_KEYS"`

	// Broker bridge endpoint for change notifications. Empty selects the
	// in-process bus.
	BrokerBridgeURL string `envconfig:"BROKER_BRIDGE_URL" default:""`
	BusBuffer       int    `envconfig:"BUS_BUFFER" default:"64"`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults validates BuildTarget, derives KVDriver when set to
// "auto" or empty, and checks key lengths.
func (c *Config) ResolveDefaults() error {
	var defaultKV string

	switch c.BuildTarget {
	case "local":
		defaultKV = "sqlite"
	case "cloud-dev", "cloud":
		defaultKV = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.KVDriver == "" || c.KVDriver == "auto" {
		c.KVDriver = defaultKV
	}

	allowedKV := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !allowedKV[c.KVDriver] {
		return fmt.Errorf("unsupported KV_DRIVER: %s", c.KVDriver)
	}

	if c.KVDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("LISTSYNC_POSTGRES_DSN is required when KV_DRIVER=postgres")
	}

	for _, k := range c.APIKeys {
		if len(k) < MinNamespaceKeyLength {
			return fmt.Errorf("API key shorter than %d characters", MinNamespaceKeyLength)
		}
	}
	return nil
}

// New creates a Config by parsing LISTSYNC_-prefixed environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("LISTSYNC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
