// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Spec        SpecConfig        `yaml:"spec"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Augment     AugmentConfig     `yaml:"augment"`
	Logging     LoggingConfig     `yaml:"logging"`
	Seed        []SeedCollection  `yaml:"seed"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// IncludeMeta adds the diagnostic meta block to every response.
	IncludeMeta bool `yaml:"includeMeta"`

	// MaxBodyBytes caps request body size. Zero means the default.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

type SpecConfig struct {
	// File and URL are mutually exclusive sources for the document.
	File string `yaml:"file"`
	URL  string `yaml:"url"`
}

type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	DataDir string `yaml:"dataDir"`
}

type AugmentConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SeedCollection pre-populates one collection at startup.
type SeedCollection struct {
	// Path is the collection path, e.g. "/pets".
	Path string `yaml:"path"`

	// Items are stored as both collection entries and individual
	// items (keyed by their "id" field when present).
	Items []map[string]any `yaml:"items"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         4280,
			MaxBodyBytes: 1 << 20,
		},
		Persistence: PersistenceConfig{
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path, layered over Default, then applies
// FAUXD_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FAUXD_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("FAUXD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("FAUXD_SPEC_FILE"); v != "" {
		c.Spec.File = v
	}
	if v := os.Getenv("FAUXD_SPEC_URL"); v != "" {
		c.Spec.URL = v
	}
	if v := os.Getenv("FAUXD_DATA_DIR"); v != "" {
		c.Persistence.DataDir = v
		c.Persistence.Enabled = true
	}
	if v := os.Getenv("FAUXD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FAUXD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("FAUXD_AUGMENT_API_KEY"); v != "" {
		c.Augment.APIKey = v
		c.Augment.Enabled = true
	}
	if v := os.Getenv("FAUXD_AUGMENT_MODEL"); v != "" {
		c.Augment.Model = v
	}
	if v := os.Getenv("FAUXD_AUGMENT_ENDPOINT"); v != "" {
		c.Augment.Endpoint = v
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Spec.File != "" && c.Spec.URL != "" {
		return fmt.Errorf("spec.file and spec.url are mutually exclusive")
	}
	for i, seed := range c.Seed {
		if !strings.HasPrefix(seed.Path, "/") {
			return fmt.Errorf("seed[%d].path %q must start with /", i, seed.Path)
		}
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
