// Package store persists snapshots of built report trees in SQLite.
//
// Each compile run gets a uuid and one row per tree node, in walk order, so
// later commands (bigquery ingest, trend tooling) can read the aggregated
// counters back without re-parsing tracefiles.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/tree"
)

const schemaVersion = 1

// Kind classifies a stored node.
type Kind string

const (
	KindReport Kind = "report"
	KindRoot   Kind = "root"
	KindModule Kind = "module"
	KindFile   Kind = "file"
)

// ErrNoRuns is returned by LatestRun on an empty database.
var ErrNoRuns = errors.New("no compiled runs")

// Run describes one stored snapshot.
type Run struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Coverage  coverage.Aggregated
}

// Node is one stored tree node.
type Node struct {
	Path     string
	Kind     Kind
	Name     string
	Depth    int
	Coverage coverage.Aggregated
}

// Store wraps the snapshot database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, reporterrors.Storage(err, "open database %s", path)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, reporterrors.Storage(err, "create schema in %s", path)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

		CREATE TABLE IF NOT EXISTS runs (
			seq                INTEGER PRIMARY KEY AUTOINCREMENT,
			id                 TEXT NOT NULL UNIQUE,
			name               TEXT NOT NULL,
			created_at         TEXT NOT NULL,
			lines_count        INTEGER NOT NULL DEFAULT 0,
			lines_covered      INTEGER NOT NULL DEFAULT 0,
			functions_count    INTEGER NOT NULL DEFAULT 0,
			functions_covered  INTEGER NOT NULL DEFAULT 0,
			branches_count     INTEGER NOT NULL DEFAULT 0,
			branches_covered   INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS nodes (
			run_id             TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			ord                INTEGER NOT NULL,
			path               TEXT NOT NULL,
			kind               TEXT NOT NULL,
			name               TEXT NOT NULL,
			depth              INTEGER NOT NULL,
			lines_count        INTEGER NOT NULL DEFAULT 0,
			lines_covered      INTEGER NOT NULL DEFAULT 0,
			functions_count    INTEGER NOT NULL DEFAULT 0,
			functions_covered  INTEGER NOT NULL DEFAULT 0,
			branches_count     INTEGER NOT NULL DEFAULT 0,
			branches_covered   INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, path, kind)
		);

		CREATE TABLE IF NOT EXISTS reports (
			name           TEXT PRIMARY KEY,
			latest_run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			updated_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_run ON nodes(run_id, ord);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	}

	var currentVersion int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, schemaVersion)
	}
	return nil
}

func kindOf(n tree.Node) Kind {
	switch n.(type) {
	case *tree.MultiReport:
		return KindReport
	case *tree.Root:
		return KindRoot
	case *tree.Module:
		return KindModule
	default:
		return KindFile
	}
}

// SaveSnapshot stores every node of c as a new run named name and makes it
// the latest run for that name.
func (s *Store) SaveSnapshot(ctx context.Context, name string, c tree.Container) (string, error) {
	runID := uuid.NewString()
	createdAt := s.now().UTC().Format(time.RFC3339Nano)
	agg := c.Coverage()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", reporterrors.Storage(err, "begin snapshot")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, created_at,
			lines_count, lines_covered, functions_count, functions_covered,
			branches_count, branches_covered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, name, createdAt,
		agg.Lines.Count, agg.Lines.Covered, agg.Functions.Count, agg.Functions.Covered,
		agg.Branches.Count, agg.Branches.Covered); err != nil {
		return "", reporterrors.Storage(err, "insert run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (run_id, ord, path, kind, name, depth,
			lines_count, lines_covered, functions_count, functions_covered,
			branches_count, branches_covered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", reporterrors.Storage(err, "prepare node insert")
	}
	defer stmt.Close()

	ord := 0
	err = tree.Walk(c, func(n tree.Node) error {
		a := n.Coverage()
		path := n.Path()
		if _, err := stmt.ExecContext(ctx, runID, ord, path.String(), string(kindOf(n)), n.Name(), len(path.Parts),
			a.Lines.Count, a.Lines.Covered, a.Functions.Count, a.Functions.Covered,
			a.Branches.Count, a.Branches.Covered); err != nil {
			return fmt.Errorf("insert node %q: %w", path.String(), err)
		}
		ord++
		return nil
	})
	if err != nil {
		return "", reporterrors.Storage(err, "store snapshot %s", runID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reports (name, latest_run_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			latest_run_id = excluded.latest_run_id,
			updated_at = excluded.updated_at
	`, name, runID, createdAt); err != nil {
		return "", reporterrors.Storage(err, "update report %s", name)
	}

	if err := tx.Commit(); err != nil {
		return "", reporterrors.Storage(err, "commit snapshot %s", runID)
	}
	return runID, nil
}

// LatestRun returns the most recently saved run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at,
			lines_count, lines_covered, functions_count, functions_covered,
			branches_count, branches_covered
		FROM runs ORDER BY seq DESC LIMIT 1
	`)
	var r Run
	var createdAt string
	err := row.Scan(&r.ID, &r.Name, &createdAt,
		&r.Coverage.Lines.Count, &r.Coverage.Lines.Covered,
		&r.Coverage.Functions.Count, &r.Coverage.Functions.Covered,
		&r.Coverage.Branches.Count, &r.Coverage.Branches.Covered)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, reporterrors.Storage(ErrNoRuns, "no runs stored; run 'compile' first")
	}
	if err != nil {
		return Run{}, reporterrors.Storage(err, "load latest run")
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Run{}, reporterrors.Storage(err, "parse created_at of run %s", r.ID)
	}
	return r, nil
}

// Nodes returns the nodes of run in walk order.
func (s *Store) Nodes(ctx context.Context, runID string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, kind, name, depth,
			lines_count, lines_covered, functions_count, functions_covered,
			branches_count, branches_covered
		FROM nodes WHERE run_id = ? ORDER BY ord
	`, runID)
	if err != nil {
		return nil, reporterrors.Storage(err, "query nodes of run %s", runID)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		var kind string
		if err := rows.Scan(&n.Path, &kind, &n.Name, &n.Depth,
			&n.Coverage.Lines.Count, &n.Coverage.Lines.Covered,
			&n.Coverage.Functions.Count, &n.Coverage.Functions.Covered,
			&n.Coverage.Branches.Count, &n.Coverage.Branches.Covered); err != nil {
			return nil, reporterrors.Storage(err, "scan node of run %s", runID)
		}
		n.Kind = Kind(kind)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, reporterrors.Storage(err, "read nodes of run %s", runID)
	}
	return nodes, nil
}
