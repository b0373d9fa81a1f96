// Copyright 2026 ExtScan Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package output renders scan reports for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/extscan-toolkit/extscan-runner/pkg/cache"
	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/remote"
	"github.com/extscan-toolkit/extscan-runner/pkg/scanner"
)

// Format selects the rendering style.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Report bundles everything the run produced.
type Report struct {
	Outcomes []scanner.ItemOutcome
	Run      scanner.RunStats
	Retries  remote.RetryStats
	Cache    cache.CacheStats
}

type jsonRow struct {
	ExtensionID string             `json:"extension_id"`
	Version     string             `json:"version"`
	Status      string             `json:"status"`
	FromCache   bool               `json:"from_cache"`
	Reason      string             `json:"reason,omitempty"`
	Result      *remote.ScanResult `json:"result,omitempty"`
}

type jsonReport struct {
	Extensions []jsonRow         `json:"extensions"`
	Run        scanner.RunStats  `json:"run"`
	Retries    remote.RetryStats `json:"retries"`
	Cache      cache.CacheStats  `json:"cache"`
}

// Render writes the report to w in the requested format.
func Render(w io.Writer, format Format, report Report) error {
	switch format {
	case FormatJSON:
		out := jsonReport{
			Extensions: make([]jsonRow, 0, len(report.Outcomes)),
			Run:        report.Run,
			Retries:    report.Retries,
			Cache:      report.Cache,
		}
		for _, outcome := range report.Outcomes {
			out.Extensions = append(out.Extensions, jsonRow{
				ExtensionID: outcome.Item.ExtensionID(),
				Version:     outcome.Item.Version,
				Status:      outcome.Kind.String(),
				FromCache:   outcome.FromCache,
				Reason:      outcome.Reason,
				Result:      outcome.Result,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatTable, "":
		return renderTable(w, report)
	default:
		return errors.ValidationError(fmt.Sprintf("unknown output format %q", format), nil)
	}
}

func renderTable(w io.Writer, report Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXTENSION\tVERSION\tSTATUS\tRISK\tSCORE\tSOURCE")

	for _, outcome := range report.Outcomes {
		risk, score, source := "-", "-", "scan"
		if outcome.FromCache {
			source = "cache"
		}
		status := outcome.Kind.String()
		if outcome.Kind == remote.OutcomeSuccess && outcome.Result != nil {
			risk = outcome.Result.RiskLevel
			score = fmt.Sprintf("%.0f", outcome.Result.SecurityScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			outcome.Item.ExtensionID(), outcome.Item.Version, status, risk, score, source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d scanned: %d cached, %d fresh, %d failed\n",
		report.Run.Total, report.Run.CacheHits, report.Run.FreshScans, report.Run.Errors)
	if report.Retries.TotalRetries > 0 {
		fmt.Fprintf(w, "retries: %d total, %d recovered, %d exhausted\n",
			report.Retries.TotalRetries, report.Retries.SuccessfulRetries, report.Retries.FailedAfterRetries)
	}
	fmt.Fprintf(w, "cache: %d entries\n", report.Cache.TotalEntries)
	return nil
}
