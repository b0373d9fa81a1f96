// Package main provides the extscan-runner CLI application.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/extscan-toolkit/extscan-runner/pkg/extensions"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
	"github.com/extscan-toolkit/extscan-runner/pkg/output"
	"github.com/extscan-toolkit/extscan-runner/pkg/remote"
	"github.com/extscan-toolkit/extscan-runner/pkg/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan installed extensions",
	Long: `Scan locally installed extensions against the analysis service.

Results are cached locally with integrity signatures; extensions with a
fresh cached result are not re-submitted unless --force-refresh is set.`,
	RunE: runScan,
}

// scanFlags holds the flags for the scan command
type scanFlags struct {
	dir          string
	workers      int
	maxAge       time.Duration
	forceRefresh bool
	format       string
}

var scanOpts scanFlags

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanOpts.dir, "dir", "d", "", "Extensions directory (default from config)")
	scanCmd.Flags().IntVarP(&scanOpts.workers, "workers", "w", 0, "Concurrent scan workers (default from config)")
	scanCmd.Flags().DurationVar(&scanOpts.maxAge, "max-age", -1, "Oldest cache entry served as a hit; negative uses config")
	scanCmd.Flags().BoolVar(&scanOpts.forceRefresh, "force-refresh", false, "Ignore cached results and rescan everything")
	scanCmd.Flags().StringVarP(&scanOpts.format, "format", "f", "table", "Output format (table, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := openCache(cfg, log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	client := remote.NewClient(remote.Options{
		BaseURL:          cfg.Service.URL,
		Timeout:          cfg.Service.Timeout,
		MaxAttempts:      cfg.Service.MaxAttempts,
		BaseDelay:        cfg.Service.BaseDelay,
		MaxResponseBytes: int64(cfg.Service.MaxResponseMB) << 20,
		PollInterval:     cfg.Service.PollInterval,
	}, log)

	dir := scanOpts.dir
	if dir == "" {
		dir = cfg.Scan.ExtensionsDir
	}
	items, err := extensions.Discover(dir, log)
	if err != nil {
		return err
	}
	log.Info("discovered extensions",
		observability.Int("count", len(items)),
		observability.String("dir", dir))

	maxAge := cfg.Cache.MaxAge
	if cmd.Flags().Changed("max-age") {
		maxAge = scanOpts.maxAge
	}
	workers := scanOpts.workers
	if workers <= 0 {
		workers = cfg.Scan.Workers
	}

	orch := scanner.New(mgr, client, scanner.Options{
		MaxAge:       maxAge,
		ForceRefresh: scanOpts.forceRefresh,
	}, log)
	outcomes, runStats := orch.Run(ctx, items, workers)

	cacheStats, err := mgr.Stats()
	if err != nil {
		log.Warn("failed to read cache stats", observability.Err(err))
	}

	return output.Render(cmd.OutOrStdout(), output.Format(scanOpts.format), output.Report{
		Outcomes: outcomes,
		Run:      runStats,
		Retries:  client.RetryStats(),
		Cache:    cacheStats,
	})
}
