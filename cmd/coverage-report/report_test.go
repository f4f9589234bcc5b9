package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-report/pkg/config"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/log"
	"github.com/jupierce/coverage-report/pkg/store"
	"github.com/jupierce/coverage-report/pkg/tree"
)

const coreLCOV = `TN:
SF:/ci/core/main.cpp
FN:1,main
FNDA:1,main
DA:1,1
DA:2,0
end_of_record
SF:/ci/core/util/str.cpp
DA:1,3
end_of_record
`

const libProfile = `mode: set
example.com/lib/lib.go:3.10,5.2 2 1
example.com/lib/lib.go:7.10,9.2 1 0
`

func quietLogger() *log.Logger {
	return log.NewWithWriters(log.ErrorLevel, io.Discard, io.Discard)
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestGenerateSingleInputText(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Output:   filepath.Join(dir, "out"),
		Reporter: config.ReporterText,
		Inputs:   []config.Input{{Path: writeFile(t, dir, "core.info", coreLCOV)}},
	}

	require.NoError(t, generate(context.Background(), cfg, quietLogger()))

	data, err := os.ReadFile(filepath.Join(dir, "out", "coverage.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Test report:")
	assert.Contains(t, string(data), "main.cpp")
	assert.Contains(t, string(data), "util")
}

func TestGenerateMultiInputHTML(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "site")
	cfg := config.Config{
		Name:   "Merged",
		Output: out,
		Inputs: []config.Input{
			{Name: "Core", Path: writeFile(t, dir, "core.info", coreLCOV)},
			{Path: writeFile(t, dir, "lib.out", libProfile), Format: "go"},
		},
	}

	require.NoError(t, generate(context.Background(), cfg, quietLogger()))

	for _, p := range []string{
		"index.html",
		filepath.Join("core", "index.html"),
		filepath.Join("core", "main.cpp.html"),
		filepath.Join("core", "util", "str.cpp.html"),
		filepath.Join("lib", "lib.go.html"),
		filepath.Join("_resources", "style.css"),
	} {
		assert.FileExists(t, filepath.Join(out, p))
	}
}

func TestLoadReportPrefixMismatch(t *testing.T) {
	dir := t.TempDir()
	prefix := "/elsewhere"
	cfg := config.Config{
		Output: "out",
		Inputs: []config.Input{{Prefix: &prefix, Path: writeFile(t, dir, "core.info", coreLCOV)}},
	}

	_, err := loadReport(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Equal(t, 7, reporterrors.ExitCode(err))
	assert.Contains(t, err.Error(), "Some tested files do not start with the prefix '/elsewhere'")
}

func TestLoadReportMissingInput(t *testing.T) {
	cfg := config.Config{Output: "out", Inputs: []config.Input{{Path: filepath.Join(t.TempDir(), "nope.info")}}}

	_, err := loadReport(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.True(t, reporterrors.IsCategory(err, reporterrors.CategoryInput))
}

func TestLoadReportSingleRootName(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{Name: "Nightly", Inputs: []config.Input{{Path: writeFile(t, dir, "core.info", coreLCOV)}}}

	root, err := loadReport(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	r, ok := root.(*tree.Root)
	require.True(t, ok)
	assert.Equal(t, "Nightly", r.Name())
	assert.Equal(t, []string{"ci", "core"}, r.Prefix())
	assert.Empty(t, r.Key())
}

func TestGenerateSingleRootUsesDefaultName(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Output:   filepath.Join(dir, "out"),
		Reporter: config.ReporterText,
		Inputs:   []config.Input{{Path: writeFile(t, dir, "core.info", coreLCOV)}},
	}

	root, err := loadReport(context.Background(), cfg.WithDefaults(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "Test report", root.Name())
	assert.Equal(t, []string{"ci", "core"}, root.(*tree.Root).Prefix())
}

func TestRelativeTo(t *testing.T) {
	cfg := relativeTo("conf", config.Config{
		Output:     "site",
		SourceRoot: "/abs/src",
		Inputs:     []config.Input{{Path: "a.info"}, {Path: "/tmp/b.info"}},
	})
	assert.Equal(t, filepath.Join("conf", "site"), cfg.Output)
	assert.Equal(t, "/abs/src", cfg.SourceRoot)
	assert.Equal(t, filepath.Join("conf", "a.info"), cfg.Inputs[0].Path)
	assert.Equal(t, "/tmp/b.info", cfg.Inputs[1].Path)
}

func TestConfigFromFlags(t *testing.T) {
	inputSpecs = []string{"name=Lib,path=lib.info", "core.info"}
	reportName = "Nightly"
	outputDir = "site"
	reporterName = "text"
	sourceRoot = ""
	t.Cleanup(func() { inputSpecs, reportName, outputDir, reporterName = nil, "", "", "html" })

	cfg, err := configFromFlags()
	require.NoError(t, err)
	assert.Equal(t, config.ReporterText, cfg.Reporter)
	assert.Equal(t, []config.Input{{Name: "Lib", Path: "lib.info"}, {Path: "core.info"}}, cfg.Inputs)

	outputDir = ""
	_, err = configFromFlags()
	assert.True(t, reporterrors.IsCategory(err, reporterrors.CategoryConfig))
}

func TestCompileSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{Name: "Nightly", Inputs: []config.Input{{Path: writeFile(t, dir, "core.info", coreLCOV)}}}
	ctx := context.Background()

	root, err := loadReport(ctx, cfg, quietLogger())
	require.NoError(t, err)

	db, err := store.Open(filepath.Join(dir, "coverage.db"))
	require.NoError(t, err)
	defer db.Close()

	runID, err := db.SaveSnapshot(ctx, cfg.Name, root)
	require.NoError(t, err)
	nodes, err := db.Nodes(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}
