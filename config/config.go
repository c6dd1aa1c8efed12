// Package config provides configuration loading and management for semsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/storage"
)

// Config represents the complete semsync configuration
type Config struct {
	Store     StoreConfig      `yaml:"store"`
	Health    HealthConfig     `yaml:"health"`
	SPARQL    SPARQLConfig     `yaml:"sparql"`
	Posts     PostsConfig      `yaml:"posts"`
	NATS      NATSConfig       `yaml:"nats"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// StoreConfig configures where the graph and the endpoint list are persisted
type StoreConfig struct {
	// Backend is one of memory, file, badger, sqlite, nats
	Backend string `yaml:"backend"`
	// Path is the directory (file, badger) or database file (sqlite)
	Path string `yaml:"path"`
	// Key is the key the serialized graph is stored under
	Key string `yaml:"key"`
	// Bucket is the JetStream KV bucket for the nats backend
	Bucket string `yaml:"bucket"`
	// Debounce is the delay between the last change and the write-behind save
	Debounce time.Duration `yaml:"debounce"`
}

// HealthConfig configures endpoint health checks
type HealthConfig struct {
	// Interval between scheduled check rounds
	Interval time.Duration `yaml:"interval"`
	// Timeout bounds one probe
	Timeout time.Duration `yaml:"timeout"`
}

// SPARQLConfig configures the protocol client
type SPARQLConfig struct {
	// Timeout bounds one query or update request
	Timeout time.Duration `yaml:"timeout"`
	// FailureThreshold is the number of consecutive transport failures
	// that open an endpoint's circuit during pull and push
	FailureThreshold int `yaml:"failure_threshold"`
	// Cooldown is how long an open circuit rejects requests
	Cooldown time.Duration `yaml:"cooldown"`
}

// PostsConfig configures the post projection
type PostsConfig struct {
	// BaseIRI prefixes generated post identifiers
	BaseIRI string `yaml:"base_iri"`
}

// NATSConfig configures the optional NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = no NATS)
	URL string `yaml:"url"`
	// SubjectPrefix prefixes forwarded notification subjects
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// EndpointConfig is a statically configured SPARQL endpoint
type EndpointConfig struct {
	URL      string `yaml:"url"`
	Label    string `yaml:"label,omitempty"`
	Type     string `yaml:"type"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:  storage.BackendFile,
			Path:     ".semsync",
			Key:      "graph.trig",
			Bucket:   storage.DefaultBucket,
			Debounce: 500 * time.Millisecond,
		},
		Health: HealthConfig{
			Interval: 60 * time.Second,
			Timeout:  10 * time.Second,
		},
		SPARQL: SPARQLConfig{
			Timeout:          30 * time.Second,
			FailureThreshold: 3,
			Cooldown:         30 * time.Second,
		},
		Posts: PostsConfig{
			BaseIRI: "urn:semsync:post:",
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "semsync",
		},
		Metrics: MetricsConfig{
			Addr: "", // Disabled
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	const op = "config"

	if !slices.Contains(storage.Backends, c.Store.Backend) {
		return errs.Configuration(op, "store.backend must be one of %v, got %q", storage.Backends, c.Store.Backend)
	}
	switch c.Store.Backend {
	case storage.BackendFile, storage.BackendBadger, storage.BackendSQLite:
		if c.Store.Path == "" {
			return errs.Configuration(op, "store.path is required for the %s backend", c.Store.Backend)
		}
	case storage.BackendNATS:
		if c.NATS.URL == "" {
			return errs.Configuration(op, "nats.url is required for the nats backend")
		}
	}
	if c.Store.Key == "" {
		return errs.Configuration(op, "store.key is required")
	}
	if c.Health.Interval <= 0 {
		return errs.Configuration(op, "health.interval must be positive")
	}
	if c.Health.Timeout <= 0 {
		return errs.Configuration(op, "health.timeout must be positive")
	}
	if c.SPARQL.Timeout <= 0 {
		return errs.Configuration(op, "sparql.timeout must be positive")
	}
	if c.SPARQL.FailureThreshold < 0 || c.SPARQL.Cooldown < 0 {
		return errs.Configuration(op, "sparql.failure_threshold and sparql.cooldown must not be negative")
	}
	if c.Posts.BaseIRI == "" {
		return errs.Configuration(op, "posts.base_iri is required")
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if ep.URL == "" {
			return errs.Configuration(op, "endpoints[%d].url is required", i)
		}
		if ep.Type != "query" && ep.Type != "update" {
			return errs.Configuration(op, "endpoints[%d].type must be query or update, got %q", i, ep.Type)
		}
		if seen[ep.URL] {
			return errs.Configuration(op, "endpoints[%d]: duplicate url %s", i, ep.URL)
		}
		seen[ep.URL] = true
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// ${VAR} references are expanded from the environment before parsing.
func LoadFromFile(path string) (*Config, error) {
	layer, err := loadLayer(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.Merge(layer)
	return config, nil
}

// loadLayer decodes a YAML file into a zero Config, so only the keys the file
// sets are non-zero and Merge leaves everything else alone.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Store
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.Key != "" {
		c.Store.Key = other.Store.Key
	}
	if other.Store.Bucket != "" {
		c.Store.Bucket = other.Store.Bucket
	}
	if other.Store.Debounce != 0 {
		c.Store.Debounce = other.Store.Debounce
	}

	// Health
	if other.Health.Interval != 0 {
		c.Health.Interval = other.Health.Interval
	}
	if other.Health.Timeout != 0 {
		c.Health.Timeout = other.Health.Timeout
	}

	// SPARQL
	if other.SPARQL.Timeout != 0 {
		c.SPARQL.Timeout = other.SPARQL.Timeout
	}
	if other.SPARQL.FailureThreshold != 0 {
		c.SPARQL.FailureThreshold = other.SPARQL.FailureThreshold
	}
	if other.SPARQL.Cooldown != 0 {
		c.SPARQL.Cooldown = other.SPARQL.Cooldown
	}

	// Posts
	if other.Posts.BaseIRI != "" {
		c.Posts.BaseIRI = other.Posts.BaseIRI
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}

	// Endpoints replace rather than append so a project can narrow the list
	if len(other.Endpoints) > 0 {
		c.Endpoints = append([]EndpointConfig(nil), other.Endpoints...)
	}
}
