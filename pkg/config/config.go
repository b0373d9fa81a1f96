// Copyright 2026 ExtScan Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package config provides configuration management for extscan-runner.
//
// Configuration Loading Order (later overrides earlier):
// 1. Defaults (hardcoded)
// 2. User Config: ~/.config/extscan/config.yaml
// 3. Project Config: ./.extscan.yaml (searched upward)
// 4. Environment Variable: EXTSCAN_CONFIG (explicit path)
package config

import (
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Cache   CacheConfig   `yaml:"cache"`
	Scan    ScanConfig    `yaml:"scan"`
	Global  GlobalConfig  `yaml:"global"`
}

// ServiceConfig contains analysis-service client settings.
type ServiceConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxResponseMB int           `yaml:"max_response_mb"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// CacheConfig contains result-cache settings.
type CacheConfig struct {
	Path   string        `yaml:"path"`
	MaxAge time.Duration `yaml:"max_age"`
	// SigningKeyEnv names the environment variable holding the
	// integrity signing key. The key itself is NOT allowed in the file.
	SigningKeyEnv string `yaml:"signing_key_env"`
}

// ScanConfig contains scan orchestration settings.
type ScanConfig struct {
	Workers       int    `yaml:"workers"`
	ExtensionsDir string `yaml:"extensions_dir"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}
