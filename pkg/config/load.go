// Package config handles configuration loading and validation
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
)

// Default config file names to search for
var defaultConfigFiles = []string{
	".extscan.yaml",
	".extscan.yml",
	"extscan.yaml",
	"extscan.yml",
}

// Load loads configuration from a specific file path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to read config file: %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to parse config file: %s", path), err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("config validation failed", err)
	}

	return &cfg, nil
}

// LoadDefault searches for and loads configuration from default locations
// Search order:
// 1. Current directory
// 2. Parent directories (up to root)
// 3. User config directory (~/.config/extscan/)
func LoadDefault() (*Config, error) {
	if cfg, err := findInParents("."); err == nil {
		return cfg, nil
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".config", "extscan", "config.yaml")
		if cfg, err := Load(userConfigPath); err == nil {
			return cfg, nil
		}
	}

	// No config found - run on defaults
	return DefaultConfig(), nil
}

// LoadFromEnv loads config from environment variable path
// EXTSCAN_CONFIG can override the config file path
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv("EXTSCAN_CONFIG"); path != "" {
		return Load(path)
	}
	return LoadDefault()
}

// findInParents searches for config file in current directory and parent directories
func findInParents(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, filename := range defaultConfigFiles {
			configPath := filepath.Join(dir, filename)
			if _, err := os.Stat(configPath); err == nil {
				return Load(configPath)
			}
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			break
		}
		dir = parentDir
	}

	return nil, errors.ConfigError("no config file found", nil)
}
