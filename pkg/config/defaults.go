// Copyright 2026 ExtScan Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the default configuration.
// These values are used when no config file is present.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Service: DefaultServiceConfig(),
		Cache:   DefaultCacheConfig(filepath.Join(homeDir, ".extscan")),
		Scan:    DefaultScanConfig(homeDir),
		Global: GlobalConfig{
			LogLevel: "info",
		},
	}
}

// DefaultServiceConfig returns default analysis-service settings.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		URL:           "https://api.extscan.dev",
		Timeout:       30 * time.Second,
		MaxAttempts:   3,
		BaseDelay:     2 * time.Second,
		MaxResponseMB: 10,
		PollInterval:  2 * time.Second,
	}
}

// DefaultCacheConfig returns default cache settings rooted at stateDir.
func DefaultCacheConfig(stateDir string) CacheConfig {
	return CacheConfig{
		Path:          filepath.Join(stateDir, "cache"),
		MaxAge:        24 * time.Hour,
		SigningKeyEnv: "EXTSCAN_SIGNING_KEY",
	}
}

// DefaultScanConfig returns default scan settings.
func DefaultScanConfig(homeDir string) ScanConfig {
	return ScanConfig{
		Workers:       3,
		ExtensionsDir: filepath.Join(homeDir, ".vscode", "extensions"),
	}
}

// applyDefaults fills zero-value fields after a file load.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Service.URL == "" {
		cfg.Service.URL = defaults.Service.URL
	}
	if cfg.Service.Timeout <= 0 {
		cfg.Service.Timeout = defaults.Service.Timeout
	}
	if cfg.Service.MaxAttempts <= 0 {
		cfg.Service.MaxAttempts = defaults.Service.MaxAttempts
	}
	if cfg.Service.BaseDelay <= 0 {
		cfg.Service.BaseDelay = defaults.Service.BaseDelay
	}
	if cfg.Service.MaxResponseMB <= 0 {
		cfg.Service.MaxResponseMB = defaults.Service.MaxResponseMB
	}
	if cfg.Service.PollInterval <= 0 {
		cfg.Service.PollInterval = defaults.Service.PollInterval
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = defaults.Cache.Path
	}
	if cfg.Cache.MaxAge == 0 {
		cfg.Cache.MaxAge = defaults.Cache.MaxAge
	}
	if cfg.Cache.SigningKeyEnv == "" {
		cfg.Cache.SigningKeyEnv = defaults.Cache.SigningKeyEnv
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = defaults.Scan.Workers
	}
	if cfg.Scan.ExtensionsDir == "" {
		cfg.Scan.ExtensionsDir = defaults.Scan.ExtensionsDir
	}
	if cfg.Global.LogLevel == "" {
		cfg.Global.LogLevel = defaults.Global.LogLevel
	}
}
