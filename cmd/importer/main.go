package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cadence-import",
		Short:         "Import compliance schedules from a spreadsheet export",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("format", "o", formatAuto, "Output format (auto, text, json, yaml)")

	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(runCmd())

	return rootCmd
}
