// Package config loads lume.yaml, the per-project runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = "lume.yaml"

// Config represents the top-level lume.yaml configuration.
type Config struct {
	// Cache configures the expression result cache.
	Cache CacheConfig `yaml:"cache"`

	// Dispatch configures the call-site method cache.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// MaxEvalDepth bounds non-tail evaluation nesting. Zero selects the
	// evaluator default.
	MaxEvalDepth int `yaml:"max_eval_depth,omitempty"`

	// StatePath is the optional sqlite file persisting expression weights
	// and type tags between sessions. Relative paths resolve against the
	// directory holding lume.yaml.
	StatePath string `yaml:"state_path,omitempty"`
}

type CacheConfig struct {
	// Capacity is the maximum number of cached expression results.
	Capacity int `yaml:"capacity,omitempty"`
}

type DispatchConfig struct {
	// SiteArity is how many receiver types one call site caches before it
	// goes megamorphic.
	SiteArity int `yaml:"site_arity,omitempty"`

	// Disabled turns the call-site cache off; every call resolves cold.
	Disabled bool `yaml:"disabled,omitempty"`
}

// Default returns the configuration used when no lume.yaml is present.
func Default() *Config {
	return &Config{
		Cache:    CacheConfig{Capacity: 4096},
		Dispatch: DispatchConfig{SiteArity: 8},
	}
}

// Load reads and validates a lume.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.StatePath != "" && !filepath.IsAbs(cfg.StatePath) {
		cfg.StatePath = filepath.Join(filepath.Dir(path), cfg.StatePath)
	}
	return cfg, nil
}

// Discover looks for lume.yaml in dir and its parents. A missing file is not
// an error: the defaults are returned.
func Discover(dir string) (*Config, error) {
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Parse decodes and validates configuration bytes, filling defaults for
// omitted fields.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity)
	}
	if c.Dispatch.SiteArity < 0 {
		return fmt.Errorf("dispatch.site_arity must not be negative, got %d", c.Dispatch.SiteArity)
	}
	if c.MaxEvalDepth < 0 {
		return fmt.Errorf("max_eval_depth must not be negative, got %d", c.MaxEvalDepth)
	}
	return nil
}
