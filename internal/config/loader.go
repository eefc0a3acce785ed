package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" env:"INFERD_ADDR"`

	// Model discovery sources.
	ModelDirs []string `json:"model_dirs" yaml:"model_dirs" toml:"model_dirs" env:"INFERD_MODEL_DIRS" envSeparator:","`
	Manifests []string `json:"manifests" yaml:"manifests" toml:"manifests" env:"INFERD_MANIFESTS" envSeparator:","`

	// Default device hint passed to adapters (e.g., cpu, cuda:0).
	DefaultDevice string `json:"default_device" yaml:"default_device" toml:"default_device" env:"INFERD_DEFAULT_DEVICE"`

	Cache     CacheConfig     `json:"cache" yaml:"cache" toml:"cache"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" toml:"metrics"`
	Selection SelectionConfig `json:"selection" yaml:"selection" toml:"selection"`
}

// CacheConfig configures the inference result cache.
type CacheConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend string `json:"backend" yaml:"backend" toml:"backend" env:"INFERD_CACHE_BACKEND"`
	// Dir holds the sqlite database when the sqlite backend is selected.
	Dir string `json:"dir" yaml:"dir" toml:"dir" env:"INFERD_CACHE_DIR"`
	// MaxBytes bounds the sum of entry size estimates. 0 uses the default.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" toml:"max_bytes" env:"INFERD_CACHE_MAX_BYTES"`
	// DefaultTTL applies when a caller does not pass an explicit ttl.
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" toml:"default_ttl" env:"INFERD_CACHE_TTL"`
}

// MetricsConfig configures the performance monitor.
type MetricsConfig struct {
	// WindowSize bounds retained samples per model. 0 uses the default.
	WindowSize int `json:"window_size" yaml:"window_size" toml:"window_size" env:"INFERD_METRICS_WINDOW"`
}

// SelectionConfig declares roles, their backend-format preferences, task
// preferences, and explicit assignments. Validated before use so unknown
// roles or kinds fail at startup rather than at selection time.
type SelectionConfig struct {
	// RolePrefs orders acceptable backend-format tags per caller role.
	RolePrefs map[string][]string `json:"role_prefs" yaml:"role_prefs" toml:"role_prefs"`
	// TaskPrefs orders acceptable backend-format tags per task kind.
	TaskPrefs map[string][]string `json:"task_prefs" yaml:"task_prefs" toml:"task_prefs"`
	// Assignments are explicit (role, task) -> ordered model id overrides.
	Assignments []Assignment `json:"assignments" yaml:"assignments" toml:"assignments"`
}

// Assignment pins an ordered model preference list to one (role, task) pair.
type Assignment struct {
	Role   string   `json:"role" yaml:"role" toml:"role"`
	Task   string   `json:"task" yaml:"task" toml:"task"`
	Models []string `json:"models" yaml:"models" toml:"models"`
}

// Load reads a configuration file based on its extension, then applies
// environment variable overrides on top.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
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
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}
