// Package config loads engine configuration from a YAML file and fills in
// defaults for everything the file leaves out.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Path          string `yaml:"path"`          // storage root directory
	Backend       string `yaml:"backend"`       // "badger" or "file"
	Compression   string `yaml:"compression"`   // "zstd", "xz" or "none"; file backend only
	MinimumFreeGB int    `yaml:"minimumFreeGB"` // refuse to open below this much free space
}

// Default returns the configuration used when no file overrides anything.
// Path has no default; callers must set it.
func Default() Config {
	return Config{
		Backend:     "badger",
		Compression: "zstd",
	}
}

// Load reads a YAML configuration file and applies defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks that the configuration names a storage path and known
// backend and compression choices.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("no storage path configured")
	}

	switch c.Backend {
	case "badger", "file":
	default:
		return fmt.Errorf("unknown backend %q, want badger or file", c.Backend)
	}

	switch c.Compression {
	case "zstd", "xz", "none":
	default:
		return fmt.Errorf("unknown compression %q, want zstd, xz or none", c.Compression)
	}

	if c.MinimumFreeGB < 0 {
		return fmt.Errorf("minimumFreeGB must not be negative")
	}
	return nil
}
