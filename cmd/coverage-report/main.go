package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/log"
)

var (
	// Global flags
	verbosity string
	logDir    string

	// Root command
	rootCmd = &cobra.Command{
		Use:   "coverage-report",
		Short: "Build browsable coverage reports from LCOV and Go coverage profiles",
		Long: `coverage-report aggregates line, function and branch coverage from one or
more tracefiles into a directory tree and exports it as linked HTML pages or
a plain-text summary.

Run the subcommands as needed:

  report     Build a report from --input flags.
  to-file    Save the same flags as a TOML or YAML configuration.
  from-file  Build a report from a saved configuration.
  compile    Store a snapshot of the aggregated tree in SQLite.
  bigquery   Push the latest stored snapshot to BigQuery.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", "info", "Log verbosity (error, info, debug, trace)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for a timestamped log file (default: console only)")
}

// createLogger creates the logger for a command run
func createLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(verbosity)
	if err != nil {
		return nil, reporterrors.Wrap(err, reporterrors.CategoryConfig, "parse --verbosity")
	}

	logger, err := log.New(level, logDir)
	if err != nil {
		return nil, reporterrors.FileSystem(err, "create logger")
	}
	return logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(reporterrors.ExitCode(err))
	}
}
