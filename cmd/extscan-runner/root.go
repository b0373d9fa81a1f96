// Package main provides the extscan-runner CLI application.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/extscan-toolkit/extscan-runner/pkg/cache"
	"github.com/extscan-toolkit/extscan-runner/pkg/config"
	"github.com/extscan-toolkit/extscan-runner/pkg/integrity"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
	"github.com/extscan-toolkit/extscan-runner/pkg/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "extscan-runner",
	Short: "ExtScan Toolkit Runner",
	Long: `ExtScan Toolkit Runner - a security scanner for installed editor extensions.

The runner discovers locally installed extensions, submits them to the
remote analysis service, and caches signed results so repeat scans stay
fast and offline-tolerant.`,
	Version:       version.FullString(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// rootFlags holds the persistent flags shared by all commands
type rootFlags struct {
	config   string
	logLevel string
}

var rootOpts rootFlags

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.config, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig resolves configuration honoring the --config flag, then
// EXTSCAN_CONFIG, then the default search path.
func loadConfig() (*config.Config, error) {
	if rootOpts.config != "" {
		return config.Load(rootOpts.config)
	}
	return config.LoadFromEnv()
}

// newLogger builds the process logger, with the --log-level flag taking
// precedence over the configured level.
func newLogger(cfg *config.Config) observability.Logger {
	level := cfg.Global.LogLevel
	if rootOpts.logLevel != "" {
		level = rootOpts.logLevel
	}
	return observability.NewLogger(level)
}

// openCache builds the signer and opens the result cache from config.
// The configured env var is consulted first so deployments can point at
// a key source other than the default.
func openCache(cfg *config.Config, log observability.Logger) (*cache.Manager, error) {
	stateDir := filepath.Dir(cfg.Cache.Path)
	signer, err := integrity.NewSignerFromEnv(os.Getenv(cfg.Cache.SigningKeyEnv), stateDir)
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.Cache.Path, signer, log)
}
