package render

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jupierce/coverage-report/pkg/export"
	"github.com/jupierce/coverage-report/pkg/tree"
)

// LocalSource reads file sources from disk. Relative record paths are
// resolved against sourceRoot, or the working directory when it is empty.
func LocalSource(sourceRoot string) export.LinesSource {
	return func(f *tree.File) export.LinesProvider {
		path := filepath.FromSlash(f.SourcePath())
		if !filepath.IsAbs(path) && sourceRoot != "" {
			path = filepath.Join(sourceRoot, path)
		}
		return localLines(path)
	}
}

type localLines string

func (l localLines) Lines() ([]string, error) {
	data, err := os.ReadFile(string(l))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	text := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return strings.Split(text, "\n"), nil
}
