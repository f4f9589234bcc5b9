package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/tree"
)

func lines(path string, hits ...uint64) coverage.RawRecord {
	rec := coverage.NewRawRecord(path)
	for i, h := range hits {
		rec.Lines[uint32(i+1)] = h
	}
	return rec
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "coverage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	root, err := tree.NewBuilder(nil).Build(tree.RootInput{Records: []coverage.RawRecord{
		lines("main.cpp", 1, 1, 0, 1),
		lines("module/nested.cpp", 1, 1),
	}})
	require.NoError(t, err)

	runID, err := s.SaveSnapshot(ctx, "nightly", root)
	require.NoError(t, err)
	assert.Len(t, runID, 36)

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "nightly", run.Name)
	assert.Equal(t, coverage.NewCounters(6, 5), run.Coverage.Lines)
	assert.WithinDuration(t, time.Now(), run.CreatedAt, time.Minute)

	nodes, err := s.Nodes(ctx, runID)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.Equal(t, Node{Path: "", Kind: KindRoot, Name: tree.DefaultName, Depth: 0, Coverage: root.Coverage()}, nodes[0])
	assert.Equal(t, "module", nodes[1].Path)
	assert.Equal(t, KindModule, nodes[1].Kind)
	assert.Equal(t, "module/nested.cpp", nodes[2].Path)
	assert.Equal(t, KindFile, nodes[2].Kind)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, "main.cpp", nodes[3].Path)
	assert.Equal(t, coverage.NewCounters(4, 3), nodes[3].Coverage.Lines)
}

func TestLatestRunPicksNewest(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first, err := tree.NewBuilder(nil).Build(tree.RootInput{Records: []coverage.RawRecord{lines("a.go", 0)}})
	require.NoError(t, err)
	second, err := tree.NewBuilder(nil).Build(tree.RootInput{Records: []coverage.RawRecord{lines("a.go", 1)}})
	require.NoError(t, err)

	_, err = s.SaveSnapshot(ctx, "nightly", first)
	require.NoError(t, err)
	secondID, err := s.SaveSnapshot(ctx, "nightly", second)
	require.NoError(t, err)

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondID, run.ID)
	assert.Equal(t, coverage.NewCounters(1, 1), run.Coverage.Lines)
}

func TestMultiReportSnapshotKinds(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	multi, err := tree.NewBuilder(nil).BuildAll(ctx, "Merged", []tree.RootInput{
		{Spec: tree.RootSpec{Key: "core"}, Records: []coverage.RawRecord{lines("x.go", 1)}},
		{Spec: tree.RootSpec{Key: "lib"}, Records: []coverage.RawRecord{lines("y.go", 0)}},
	}, 0)
	require.NoError(t, err)

	runID, err := s.SaveSnapshot(ctx, "Merged", multi)
	require.NoError(t, err)

	nodes, err := s.Nodes(ctx, runID)
	require.NoError(t, err)

	var kinds []Kind
	var paths []string
	for _, n := range nodes {
		kinds = append(kinds, n.Kind)
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []Kind{KindReport, KindRoot, KindFile, KindRoot, KindFile}, kinds)
	assert.Equal(t, []string{"", "core", "core/x.go", "lib", "lib/y.go"}, paths)
}

func TestLatestRunEmpty(t *testing.T) {
	s := openStore(t)

	_, err := s.LatestRun(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRuns)
	assert.True(t, reporterrors.IsCategory(err, reporterrors.CategoryStorage))
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	root, err := tree.NewBuilder(nil).Build(tree.RootInput{Records: []coverage.RawRecord{lines("a.go", 1)}})
	require.NoError(t, err)
	runID, err := s.SaveSnapshot(ctx, "nightly", root)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
}
