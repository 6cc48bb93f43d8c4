package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"aiaa/internal/common/fsutil"
)

// Built-in defaults for client settings.
const (
	DefaultServer         = "http://0.0.0.0:5000"
	DefaultTimeoutSeconds = 60
	DefaultLogLevel       = "warn"
)

// Config holds client settings shared by all subcommands.
// Zero values mean "unspecified" and are filled by WithDefaults.
type Config struct {
	Server         string `json:"server" yaml:"server" toml:"server"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	APIKey         string `json:"api_key" yaml:"api_key" toml:"api_key"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// Optional catalog file used to resolve labels without GET /v1/models.
	CatalogFile string `json:"catalog_file" yaml:"catalog_file" toml:"catalog_file"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// FromEnv reads AIAA_* variables. Unset or malformed values stay zero.
func FromEnv() Config {
	cfg := Config{
		Server:      os.Getenv("AIAA_SERVER"),
		APIKey:      os.Getenv("AIAA_API_KEY"),
		LogLevel:    os.Getenv("AIAA_LOG_LEVEL"),
		CatalogFile: os.Getenv("AIAA_CATALOG"),
	}
	if v := os.Getenv("AIAA_TIMEOUT"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.TimeoutSeconds = n
		}
	}
	return cfg
}

// Merge returns c with every zero field taken from other.
func (c Config) Merge(other Config) Config {
	if c.Server == "" {
		c.Server = other.Server
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = other.TimeoutSeconds
	}
	if c.APIKey == "" {
		c.APIKey = other.APIKey
	}
	if c.LogLevel == "" {
		c.LogLevel = other.LogLevel
	}
	if c.CatalogFile == "" {
		c.CatalogFile = other.CatalogFile
	}
	return c
}

// WithDefaults fills unspecified fields with the built-in defaults.
func (c Config) WithDefaults() Config {
	return c.Merge(Config{
		Server:         DefaultServer,
		TimeoutSeconds: DefaultTimeoutSeconds,
		LogLevel:       DefaultLogLevel,
	})
}

// Resolve layers env over the optional file over built-in defaults.
// Path falls back to AIAA_CONFIG when empty; no file is read when both are empty.
func Resolve(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("AIAA_CONFIG")
	}
	cfg := FromEnv()
	if path != "" {
		file, err := Load(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = cfg.Merge(file)
	}
	return cfg.WithDefaults(), nil
}
