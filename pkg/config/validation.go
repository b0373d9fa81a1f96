package config

import (
	"fmt"
	"net/url"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
)

// maxWorkers caps configured parallelism. The analysis service rate
// limits aggressively, so high worker counts only trade scan errors for
// throughput that never materializes.
const maxWorkers = 16

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for inconsistencies. Called after
// defaults have been applied, so zero values are already filled.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.Service.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.ValidationError(fmt.Sprintf("service.url %q is not a valid URL", c.Service.URL), err)
	}

	if c.Scan.Workers < 1 || c.Scan.Workers > maxWorkers {
		return errors.ValidationError(
			fmt.Sprintf("scan.workers must be between 1 and %d, got %d", maxWorkers, c.Scan.Workers), nil)
	}

	if c.Cache.MaxAge < 0 {
		return errors.ValidationError("cache.max_age cannot be negative", nil)
	}

	if !validLogLevels[c.Global.LogLevel] {
		return errors.ValidationError(
			fmt.Sprintf("global.log_level %q must be one of debug, info, warn, error", c.Global.LogLevel), nil)
	}

	return nil
}
