package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "bugrescue",
		Short: "BugRescue - AI-powered crash fixer",
		Long: `BugRescue runs the files of a project, captures crash output, and asks
an AI backend for a fix. Every patched file is backed up first, each fix
is re-run to verify, and the whole session ends in an HTML report.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
