// Package config loads and validates casewire.yml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where serve looks for configuration when no flag is given.
const DefaultPath = "casewire.yml"

// Config represents the top-level casewire.yml configuration.
type Config struct {
	Version  string `yaml:"version"`
	Instance string `yaml:"instance"`

	// Listen is the report API address; HealthListen serves /healthz.
	Listen       string `yaml:"listen,omitempty"`
	HealthListen string `yaml:"health_listen,omitempty"`

	// RedisURL enables the live viewer sink; empty disables it.
	RedisURL string `yaml:"redis_url,omitempty"`

	Sources map[string]SourceConfig `yaml:"sources,omitempty"`
}

// SourceConfig carries per-source operator overrides.
type SourceConfig struct {
	Cooldown string `yaml:"cooldown,omitempty"` // Go duration string, e.g. "500ms"
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.HealthListen == "" {
		c.HealthListen = ":8081"
	}
	for name, src := range c.Sources {
		if src.Cooldown == "" {
			continue
		}
		d, err := time.ParseDuration(src.Cooldown)
		if err != nil {
			return fmt.Errorf("source '%s': invalid cooldown %q: %w", name, src.Cooldown, err)
		}
		if d < 0 {
			return fmt.Errorf("source '%s': cooldown must not be negative", name)
		}
	}
	return nil
}

// Cooldowns returns the per-source cooldown overrides. Call after Validate.
func (c *Config) Cooldowns() map[string]time.Duration {
	out := make(map[string]time.Duration)
	for name, src := range c.Sources {
		if src.Cooldown == "" {
			continue
		}
		if d, err := time.ParseDuration(src.Cooldown); err == nil {
			out[name] = d
		}
	}
	return out
}

// Load reads and validates casewire.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no casewire.yml exists.
func Default(instance string) *Config {
	return &Config{
		Version:      "1.0",
		Instance:     instance,
		Listen:       ":8080",
		HealthListen: ":8081",
	}
}
