// Package export walks a built report tree and writes one page per node
// through a Renderer and a FileSystem.
package export

import (
	"context"
	"os"

	"github.com/jupierce/coverage-report/pkg/links"
	"github.com/jupierce/coverage-report/pkg/tree"
)

// Page is the navigation context of the page being rendered.
type Page struct {
	// Root is the container the export started from.
	Root tree.Container
	// Node is the node this page shows.
	Node tree.Node
	// Breadcrumbs lead from Root down to Node's parent.
	Breadcrumbs []links.Link
	// Links resolves child and shared-resource links from this page.
	Links *links.Computer
}

// Resource is a shared file every page may reference, such as a style
// sheet or an icon.
type Resource struct {
	Name string
	Data []byte
}

// LinesProvider returns the source lines of one file.
type LinesProvider interface {
	Lines() ([]string, error)
}

// LinesSource hands out the provider for a file.
type LinesSource func(f *tree.File) LinesProvider

// Renderer produces page bodies for the multi-page exporter.
type Renderer interface {
	RenderModule(page Page, c tree.Container) ([]byte, error)
	RenderFile(page Page, f *tree.File, lines LinesProvider) ([]byte, error)
	// Resources lists the shared files the pages of root refer to.
	Resources(root tree.Container) []Resource
}

// SummaryRenderer produces the single page of a one-file report.
type SummaryRenderer interface {
	RenderSummary(root tree.Container) ([]byte, error)
}

// Exporter writes a whole report.
type Exporter interface {
	Export(ctx context.Context, root tree.Container) (Stats, error)
}

// FileSystem persists rendered output. Implementations must be safe for
// concurrent use.
type FileSystem interface {
	MkdirAll(path string) error
	WriteFile(path string, data []byte) error
}

// LocalFileSystem writes to the host file system.
type LocalFileSystem struct{}

func (LocalFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (LocalFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

type unavailable struct{}

func (unavailable) Lines() ([]string, error) { return nil, os.ErrNotExist }

// NoSource is a LinesSource for which every file is unavailable.
func NoSource(*tree.File) LinesProvider { return unavailable{} }
