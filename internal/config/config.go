// Package config loads gqlembed's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in a project root.
const FileName = ".gqlembed.yaml"

// Config holds all configuration for an engine session.
type Config struct {
	Tags    []string      `yaml:"tags"`
	Include []string      `yaml:"include"`
	Exclude []string      `yaml:"exclude"`
	Cache   CacheConfig   `yaml:"cache"`
	Resolve ResolveConfig `yaml:"resolve"`
	Dedupe  bool          `yaml:"dedupe"`
	Log     LogConfig     `yaml:"log"`
}

// CacheConfig sizes the resolver and registry caches.
type CacheConfig struct {
	Templates int `yaml:"templates"`
	External  int `yaml:"external"`
}

// ResolveConfig tunes static evaluation of holes.
type ResolveConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level int    `yaml:"level"` // commonlog verbosity, 0 = errors only
	File  string `yaml:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Tags:    []string{"gql", "graphql"},
		Include: []string{"**/*.ts", "**/*.tsx", "**/*.mts", "**/*.cts", "**/*.js", "**/*.jsx", "**/*.mjs", "**/*.cjs"},
		Exclude: []string{"**/node_modules/**", "**/.git/**", "**/dist/**", "**/build/**", "**/*.d.ts", "**/*.min.js"},
		Cache: CacheConfig{
			Templates: 512,
			External:  256,
		},
		Resolve: ResolveConfig{
			MaxDepth: 64,
		},
	}
}

// Load loads configuration from a YAML file on top of Default. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads FileName from dir.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Tags) == 0 {
		errs = append(errs, errors.New("tags must not be empty"))
	}
	if c.Cache.Templates <= 0 {
		errs = append(errs, fmt.Errorf("cache.templates must be positive, got %d", c.Cache.Templates))
	}
	if c.Cache.External <= 0 {
		errs = append(errs, fmt.Errorf("cache.external must be positive, got %d", c.Cache.External))
	}
	if c.Resolve.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("resolve.max_depth must be positive, got %d", c.Resolve.MaxDepth))
	}
	if c.Log.Level < 0 {
		errs = append(errs, fmt.Errorf("log.level must not be negative, got %d", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
