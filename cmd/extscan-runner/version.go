// Package main provides the extscan-runner CLI application.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/extscan-toolkit/extscan-runner/pkg/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Info()
		fmt.Fprintf(cmd.OutOrStdout(), "extscan-runner version: %s\n", info["version"])
		fmt.Fprintf(cmd.OutOrStdout(), "  build date: %s\n", info["buildDate"])
		fmt.Fprintf(cmd.OutOrStdout(), "  git commit: %s\n", info["gitCommit"])
		fmt.Fprintf(cmd.OutOrStdout(), "  go version: %s\n", info["goVersion"])
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
