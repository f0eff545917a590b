// Package config defines initialization parameters for the agentbus runtime.
//
// Configs follow the default-then-merge pattern: construct defaults, overlay
// values loaded from a YAML file, and hand the result to the orchestrator.
// Configuration is used only during initialization and never consulted again.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "250ms" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a duration string via time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BusConfig controls the message bus.
type BusConfig struct {
	// Name identifies the bus in logs and events.
	Name string `json:"name" yaml:"name"`

	// PollTimeout bounds how long the dispatch loop waits for the next
	// message before re-checking the running flag. Without it Stop could
	// hang on an empty queue.
	PollTimeout Duration `json:"poll_timeout" yaml:"poll_timeout"`

	// Observer names the registered observer implementation to use.
	Observer string `json:"observer" yaml:"observer"`
}

// DefaultBusConfig returns a BusConfig with sensible defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Name:        "default",
		PollTimeout: Duration(time.Second),
		Observer:    "noop",
	}
}

func (c *BusConfig) Merge(source *BusConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.PollTimeout > 0 {
		c.PollTimeout = source.PollTimeout
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// CoordinatorConfig controls collaboration orchestration.
type CoordinatorConfig struct {
	// DefaultParticipants is used when a collaboration spec does not name a
	// participant count.
	DefaultParticipants int `json:"default_participants" yaml:"default_participants"`
}

// DefaultCoordinatorConfig returns a CoordinatorConfig with sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		DefaultParticipants: 2,
	}
}

func (c *CoordinatorConfig) Merge(source *CoordinatorConfig) {
	if source.DefaultParticipants > 0 {
		c.DefaultParticipants = source.DefaultParticipants
	}
}

// Config holds initialization parameters for all agentbus subsystems.
type Config struct {
	Bus         BusConfig         `json:"bus" yaml:"bus"`
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
	LogLevel    string            `json:"log_level,omitempty" yaml:"log_level"`
}

// Default returns a Config with sensible defaults for all subsystems.
func Default() Config {
	return Config{
		Bus:         DefaultBusConfig(),
		Coordinator: DefaultCoordinatorConfig(),
		LogLevel:    "info",
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Bus.Merge(&source.Bus)
	c.Coordinator.Merge(&source.Coordinator)

	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
}

// Load reads a YAML config file, merges it with defaults, and returns the
// resulting Config.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
