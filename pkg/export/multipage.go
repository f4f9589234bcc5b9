package export

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/links"
	"github.com/jupierce/coverage-report/pkg/tree"
)

// Stats summarises one export.
type Stats struct {
	Pages     int
	Resources int
}

// MultiPage writes index pages for containers, detail pages for files and
// one shared resource directory.
type MultiPage struct {
	renderer Renderer
	fs       FileSystem
	links    *links.Computer
	output   string

	// Lines provides file sources; nil means NoSource.
	Lines LinesSource
	// Concurrency bounds how many top-level subtrees render at once; < 1 means
	// no limit.
	Concurrency int
}

// NewMultiPage creates an exporter writing below output.
func NewMultiPage(renderer Renderer, fs FileSystem, computer *links.Computer, output string) *MultiPage {
	if computer == nil {
		computer = links.NewComputer("")
	}
	return &MultiPage{renderer: renderer, fs: fs, links: computer, output: output}
}

// Export renders root. The root's own page and files are written first, each
// top-level child subtree is then rendered in its own goroutine, and the
// resource bundle is written once every page is done.
func (e *MultiPage) Export(ctx context.Context, root tree.Container) (Stats, error) {
	var pages atomic.Int64
	lines := e.Lines
	if lines == nil {
		lines = NoSource
	}

	if err := e.writeModule(root, root); err != nil {
		return Stats{}, err
	}
	pages.Add(1)
	for _, f := range root.Files() {
		if err := e.writeFile(root, f, lines); err != nil {
			return Stats{}, err
		}
		pages.Add(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for _, child := range root.Children() {
		g.Go(func() error {
			return tree.Walk(child, func(n tree.Node) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				var err error
				switch n := n.(type) {
				case *tree.File:
					err = e.writeFile(root, n, lines)
				case tree.Container:
					err = e.writeModule(root, n)
				}
				if err == nil {
					pages.Add(1)
				}
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	resources := e.renderer.Resources(root)
	if len(resources) > 0 {
		dir := filepath.Join(e.output, links.ResourcesDir)
		if err := e.fs.MkdirAll(dir); err != nil {
			return Stats{}, reporterrors.FileSystem(err, "create %s", dir)
		}
		for _, res := range resources {
			path := filepath.Join(dir, res.Name)
			if err := e.fs.WriteFile(path, res.Data); err != nil {
				return Stats{}, reporterrors.FileSystem(err, "write %s", path)
			}
		}
	}

	return Stats{Pages: int(pages.Load()), Resources: len(resources)}, nil
}

func (e *MultiPage) page(root tree.Container, n tree.Node) (Page, error) {
	crumbs, err := e.links.Breadcrumbs(root, n)
	if err != nil {
		return Page{}, err
	}
	return Page{Root: root, Node: n, Breadcrumbs: crumbs, Links: e.links}, nil
}

func (e *MultiPage) writeModule(root, c tree.Container) error {
	page, err := e.page(root, c)
	if err != nil {
		return err
	}
	body, err := e.renderer.RenderModule(page, c)
	if err != nil {
		return reporterrors.Wrap(err, reporterrors.CategoryInternal, "render %s", c.Path())
	}
	return e.write(root, c, body)
}

func (e *MultiPage) writeFile(root tree.Container, f *tree.File, lines LinesSource) error {
	page, err := e.page(root, f)
	if err != nil {
		return err
	}
	body, err := e.renderer.RenderFile(page, f, lines(f))
	if err != nil {
		return reporterrors.Wrap(err, reporterrors.CategoryInternal, "render %s", f.Path())
	}
	return e.write(root, f, body)
}

func (e *MultiPage) write(root tree.Container, n tree.Node, body []byte) error {
	rel, err := e.links.OutputPath(root, n)
	if err != nil {
		return err
	}
	target := filepath.Join(append([]string{e.output}, rel...)...)
	dir := filepath.Dir(target)
	if err := e.fs.MkdirAll(dir); err != nil {
		return reporterrors.FileSystem(err, "create %s", dir)
	}
	if err := e.fs.WriteFile(target, body); err != nil {
		return reporterrors.FileSystem(err, "write %s", target)
	}
	return nil
}

// SummaryFileName is the single page written by SinglePage.
const SummaryFileName = "coverage.txt"

// SinglePage writes the whole report as one summary file.
type SinglePage struct {
	renderer SummaryRenderer
	fs       FileSystem
	output   string
}

// NewSinglePage creates an exporter writing output/coverage.txt.
func NewSinglePage(renderer SummaryRenderer, fs FileSystem, output string) *SinglePage {
	return &SinglePage{renderer: renderer, fs: fs, output: output}
}

// Export renders root into a single file.
func (e *SinglePage) Export(_ context.Context, root tree.Container) (Stats, error) {
	body, err := e.renderer.RenderSummary(root)
	if err != nil {
		return Stats{}, reporterrors.Wrap(err, reporterrors.CategoryInternal, "render summary")
	}
	if err := e.fs.MkdirAll(e.output); err != nil {
		return Stats{}, reporterrors.FileSystem(err, "create %s", e.output)
	}
	target := filepath.Join(e.output, SummaryFileName)
	if err := e.fs.WriteFile(target, body); err != nil {
		return Stats{}, reporterrors.FileSystem(err, "write %s", target)
	}
	return Stats{Pages: 1}, nil
}
