package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-report/pkg/config"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/log"
	"github.com/jupierce/coverage-report/pkg/store"
)

var (
	dbPath        string
	compileConfig string

	compileCmd = &cobra.Command{
		Use:   "compile",
		Short: "Store a snapshot of the aggregated report in SQLite",
		Long: `Aggregate the inputs exactly like 'report' and store every node of the
resulting tree, with its line, function and branch counters, as a new run in
an SQLite database. Each run gets a unique id; the newest run per report
name is tracked so 'bigquery ingest' can export it.

Inputs come from --config or from --input flags.`,
		Example: `  # Snapshot from flags
  coverage-report compile --db coverage.db --name Nightly --input lcov.info

  # Snapshot from a saved configuration
  coverage-report compile --db coverage.db --config report.toml`,
		Args: cobra.NoArgs,
		RunE: runCompile,
	}
)

func init() {
	compileCmd.Flags().StringVar(&dbPath, "db", "coverage.db", "SQLite database path")
	compileCmd.Flags().StringVar(&compileConfig, "config", "", "Configuration file to read inputs from")
	compileCmd.Flags().StringArrayVarP(&inputSpecs, "input", "i", nil, "Coverage input: path or name=..,prefix=..,path=..,format=.. (repeatable)")
	compileCmd.Flags().StringVar(&reportName, "name", "", "Report name (default: derived from the inputs)")
	compileCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 8, "Maximum concurrent input reads")
	compileCmd.MarkFlagsMutuallyExclusive("config", "input")
	rootCmd.AddCommand(compileCmd)
}

func compileInputs() (config.Config, error) {
	if compileConfig != "" {
		cfg, err := config.Load(compileConfig)
		if err != nil {
			return config.Config{}, err
		}
		return relativeTo(filepath.Dir(compileConfig), cfg), nil
	}

	cfg := config.Config{Name: reportName}
	for _, spec := range inputSpecs {
		in, err := config.ParseInputSpec(spec)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Inputs = append(cfg.Inputs, in)
	}
	if len(cfg.Inputs) == 0 {
		return config.Config{}, reporterrors.Config("either --config or at least one --input is required")
	}
	return cfg.WithDefaults(), nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := compileInputs()
	if err != nil {
		return err
	}

	return withLogger(func(logger *log.Logger) error {
		ctx := cmd.Context()
		logger.Info("🗄️  Compiling %d input(s) into %s", len(cfg.Inputs), dbPath)

		root, err := loadReport(ctx, cfg, logger)
		if err != nil {
			return err
		}

		db, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runID, err := db.SaveSnapshot(ctx, cfg.Name, root)
		if err != nil {
			return err
		}
		logger.Success("Stored run %s for %q", runID, cfg.Name)
		return nil
	})
}
