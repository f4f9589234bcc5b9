// Package bq pushes stored report snapshots into BigQuery.
package bq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/jupierce/coverage-report/pkg/coverage"
	"github.com/jupierce/coverage-report/pkg/store"
)

const (
	RunsTable  = "coverage_runs"
	NodesTable = "coverage_nodes"

	batchSize = 500
)

// RunRow is one row of the coverage_runs table.
type RunRow struct {
	IngestionTime    time.Time `bigquery:"ingestion_time"`
	RunID            string    `bigquery:"run_id"`
	ReportName       string    `bigquery:"report_name"`
	CreatedAt        time.Time `bigquery:"created_at"`
	LinesCount       int64     `bigquery:"lines_count"`
	LinesCovered     int64     `bigquery:"lines_covered"`
	FunctionsCount   int64     `bigquery:"functions_count"`
	FunctionsCovered int64     `bigquery:"functions_covered"`
	BranchesCount    int64     `bigquery:"branches_count"`
	BranchesCovered  int64     `bigquery:"branches_covered"`
}

// NodeRow is one row of the coverage_nodes table.
type NodeRow struct {
	IngestionTime    time.Time            `bigquery:"ingestion_time"`
	RunID            string               `bigquery:"run_id"`
	ReportName       string               `bigquery:"report_name"`
	NodePath         string               `bigquery:"node_path"`
	Kind             string               `bigquery:"kind"`
	Name             string               `bigquery:"name"`
	Depth            int64                `bigquery:"depth"`
	LinesCount       int64                `bigquery:"lines_count"`
	LinesCovered     int64                `bigquery:"lines_covered"`
	LinesPct         bigquery.NullFloat64 `bigquery:"lines_pct"`
	FunctionsCount   int64                `bigquery:"functions_count"`
	FunctionsCovered int64                `bigquery:"functions_covered"`
	FunctionsPct     bigquery.NullFloat64 `bigquery:"functions_pct"`
	BranchesCount    int64                `bigquery:"branches_count"`
	BranchesCovered  int64                `bigquery:"branches_covered"`
	BranchesPct      bigquery.NullFloat64 `bigquery:"branches_pct"`
}

func pct(c coverage.Counters) bigquery.NullFloat64 {
	p, ok := c.Percentage()
	return bigquery.NullFloat64{Float64: p, Valid: ok}
}

// BuildRunRow converts a stored run.
func BuildRunRow(run store.Run, ingestionTime time.Time) RunRow {
	a := run.Coverage
	return RunRow{
		IngestionTime:    ingestionTime,
		RunID:            run.ID,
		ReportName:       run.Name,
		CreatedAt:        run.CreatedAt,
		LinesCount:       int64(a.Lines.Count),
		LinesCovered:     int64(a.Lines.Covered),
		FunctionsCount:   int64(a.Functions.Count),
		FunctionsCovered: int64(a.Functions.Covered),
		BranchesCount:    int64(a.Branches.Count),
		BranchesCovered:  int64(a.Branches.Covered),
	}
}

// BuildNodeRows converts the stored nodes of run, keeping their order.
// Percentages are NULL when a node has nothing of that kind to cover.
func BuildNodeRows(run store.Run, nodes []store.Node, ingestionTime time.Time) []NodeRow {
	rows := make([]NodeRow, 0, len(nodes))
	for _, n := range nodes {
		a := n.Coverage
		rows = append(rows, NodeRow{
			IngestionTime:    ingestionTime,
			RunID:            run.ID,
			ReportName:       run.Name,
			NodePath:         n.Path,
			Kind:             string(n.Kind),
			Name:             n.Name,
			Depth:            int64(n.Depth),
			LinesCount:       int64(a.Lines.Count),
			LinesCovered:     int64(a.Lines.Covered),
			LinesPct:         pct(a.Lines),
			FunctionsCount:   int64(a.Functions.Count),
			FunctionsCovered: int64(a.Functions.Covered),
			FunctionsPct:     pct(a.Functions),
			BranchesCount:    int64(a.Branches.Count),
			BranchesCovered:  int64(a.Branches.Covered),
			BranchesPct:      pct(a.Branches),
		})
	}
	return rows
}

func counterFields() bigquery.Schema {
	var schema bigquery.Schema
	for _, kind := range []string{"lines", "functions", "branches"} {
		schema = append(schema,
			&bigquery.FieldSchema{Name: kind + "_count", Type: bigquery.IntegerFieldType, Required: true},
			&bigquery.FieldSchema{Name: kind + "_covered", Type: bigquery.IntegerFieldType, Required: true},
		)
	}
	return schema
}

// RunsSchema is the coverage_runs table schema.
func RunsSchema() bigquery.Schema {
	schema := bigquery.Schema{
		{Name: "ingestion_time", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "run_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "report_name", Type: bigquery.StringFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	}
	return append(schema, counterFields()...)
}

// NodesSchema is the coverage_nodes table schema.
func NodesSchema() bigquery.Schema {
	schema := bigquery.Schema{
		{Name: "ingestion_time", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "run_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "report_name", Type: bigquery.StringFieldType, Required: true},
		{Name: "node_path", Type: bigquery.StringFieldType, Required: true},
		{Name: "kind", Type: bigquery.StringFieldType, Required: true},
		{Name: "name", Type: bigquery.StringFieldType, Required: true},
		{Name: "depth", Type: bigquery.IntegerFieldType, Required: true},
	}
	for _, f := range counterFields() {
		schema = append(schema, f)
		if strings.HasSuffix(f.Name, "_covered") {
			kind := strings.TrimSuffix(f.Name, "_covered")
			schema = append(schema, &bigquery.FieldSchema{Name: kind + "_pct", Type: bigquery.FloatFieldType})
		}
	}
	return schema
}

func alreadyExists(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Already Exists") ||
		strings.Contains(msg, "alreadyExists") ||
		strings.Contains(msg, "409")
}

// EnsureTables creates the dataset and both tables when missing. Created
// objects are reported through created.
func EnsureTables(ctx context.Context, client *bigquery.Client, datasetID string, created func(name string)) error {
	dataset := client.Dataset(datasetID)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil {
		if !alreadyExists(err) {
			return fmt.Errorf("create dataset: %w", err)
		}
	} else if created != nil {
		created(datasetID)
	}

	tables := []struct {
		name       string
		schema     bigquery.Schema
		clustering []string
	}{
		{RunsTable, RunsSchema(), []string{"report_name"}},
		{NodesTable, NodesSchema(), []string{"report_name", "run_id", "kind"}},
	}
	for _, tbl := range tables {
		if err := dataset.Table(tbl.name).Create(ctx, &bigquery.TableMetadata{
			Schema: tbl.schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Field: "ingestion_time",
			},
			Clustering: &bigquery.Clustering{
				Fields: tbl.clustering,
			},
		}); err != nil {
			if !alreadyExists(err) {
				return fmt.Errorf("create %s table: %w", tbl.name, err)
			}
		} else if created != nil {
			created(tbl.name)
		}
	}
	return nil
}

// Insert streams the run row and its node rows, in batches.
func Insert(ctx context.Context, client *bigquery.Client, datasetID string, run RunRow, nodes []NodeRow) error {
	dataset := client.Dataset(datasetID)
	if err := dataset.Table(RunsTable).Inserter().Put(ctx, &run); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	inserter := dataset.Table(NodesTable).Inserter()
	for _, batch := range batches(nodes, batchSize) {
		savers := make([]*NodeRow, 0, len(batch))
		for j := range batch {
			savers = append(savers, &batch[j])
		}
		if err := inserter.Put(ctx, savers); err != nil {
			return fmt.Errorf("insert nodes of run %s: %w", run.RunID, err)
		}
	}
	return nil
}

func batches(rows []NodeRow, size int) [][]NodeRow {
	var out [][]NodeRow
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
