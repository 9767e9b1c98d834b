package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the CLI entry point.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hlstream",
		Short: "Hyperliquid resilient streaming service",
	}

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewProbeCmd())

	return rootCmd
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
