package main

import (
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-report/pkg/bq"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/log"
	"github.com/jupierce/coverage-report/pkg/store"
)

// BigQuery command flags
var (
	bqProject string
	bqDataset string
	bqDBPath  string
)

var bigqueryCmd = &cobra.Command{
	Use:   "bigquery",
	Short: "BigQuery operations",
	Long:  `Export compiled coverage snapshots to Google BigQuery for trend analysis.`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the latest compiled snapshot into BigQuery",
	Long: `Ingest the latest run from a 'compile' database into BigQuery.

Creates two tables in the specified dataset:
  - coverage_runs:  One row per run with the report totals
  - coverage_nodes: One row per tree node with its counters and percentages

The dataset and tables are created if they don't exist.`,
	Example: `  coverage-report bigquery --project my-project --dataset my_dataset \
    ingest --db coverage.db`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	bigqueryCmd.PersistentFlags().StringVar(&bqProject, "project", "", "GCP project ID (required)")
	bigqueryCmd.PersistentFlags().StringVar(&bqDataset, "dataset", "", "BigQuery dataset name (required)")
	bigqueryCmd.MarkPersistentFlagRequired("project")
	bigqueryCmd.MarkPersistentFlagRequired("dataset")

	ingestCmd.Flags().StringVar(&bqDBPath, "db", "coverage.db", "SQLite database written by 'compile'")

	bigqueryCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(bigqueryCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(bqDBPath); err != nil {
		return reporterrors.Storage(err, "database not found at %s; run 'compile' first", bqDBPath)
	}

	return withLogger(func(logger *log.Logger) error {
		ctx := cmd.Context()
		ingestionTime := time.Now().UTC()

		db, err := store.Open(bqDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.LatestRun(ctx)
		if err != nil {
			return err
		}
		nodes, err := db.Nodes(ctx, run.ID)
		if err != nil {
			return err
		}
		logger.Info("Ingesting run %s (%q, %d nodes) into %s.%s", run.ID, run.Name, len(nodes), bqProject, bqDataset)
		logger.Info("Ingestion time: %s", ingestionTime.Format(time.RFC3339))

		client, err := bigquery.NewClient(ctx, bqProject)
		if err != nil {
			return fmt.Errorf("create BigQuery client: %w", err)
		}
		defer client.Close()

		if err := bq.EnsureTables(ctx, client, bqDataset, func(name string) {
			logger.Info("Created %s", name)
		}); err != nil {
			return fmt.Errorf("setup BigQuery: %w", err)
		}

		rows := bq.BuildNodeRows(run, nodes, ingestionTime)
		if err := bq.Insert(ctx, client, bqDataset, bq.BuildRunRow(run, ingestionTime), rows); err != nil {
			return err
		}

		logger.Success("Ingestion complete: 1 run row, %d node rows", len(rows))
		return nil
	})
}
