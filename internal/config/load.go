package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no --config flag is given and the file exists.
const DefaultConfigPath = "/etc/hostforge/hostforge.yaml"

// Load reads the configuration file at path and overlays it on [Default].
// The format is chosen by extension: .toml for TOML, anything else is YAML.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	// #nosec G304 - path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads DefaultConfigPath when it exists and the defaults otherwise.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return Load(DefaultConfigPath)
	}
	return Load("")
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return nil
}
