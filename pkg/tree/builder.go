package tree

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/pathutil"
)

// Diagnostics receives non-fatal notices from the builder.
type Diagnostics interface {
	Warning(format string, args ...interface{})
}

type discard struct{}

func (discard) Warning(string, ...interface{}) {}

// RootInput is everything needed to build one root.
type RootInput struct {
	Spec    RootSpec
	Records []coverage.RawRecord
}

// Builder turns records into trees. It is safe for concurrent use as long
// as its Diagnostics sink is.
type Builder struct {
	diag Diagnostics
}

// NewBuilder creates a Builder. A nil diag discards diagnostics.
func NewBuilder(diag Diagnostics) *Builder {
	if diag == nil {
		diag = discard{}
	}
	return &Builder{diag: diag}
}

// NewRoot creates an empty root for spec.
func (b *Builder) NewRoot(spec RootSpec) *Root {
	return newRoot(spec)
}

// Build creates a root and inserts every record in order. On error no
// root is returned.
func (b *Builder) Build(in RootInput) (*Root, error) {
	root := newRoot(in.Spec)
	for _, rec := range in.Records {
		if err := b.Insert(root, rec); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Insert adds one record to root.
//
// The root prefix is stripped from the record path; a path outside the
// prefix is a configuration error. A path that strips to nothing is dropped
// with a diagnostic. The remaining components name modules, reused when a
// sibling of the same name exists, down to the file itself. The record's
// counters are added once to every container from root to the file's parent.
func (b *Builder) Insert(root *Root, rec coverage.RawRecord) error {
	parts := pathutil.Split(rec.Path)
	rest, ok := pathutil.TrimPrefix(parts, root.prefix)
	if !ok {
		return reporterrors.PrefixMismatch(strings.Join(root.prefix, "/"), rec.Path)
	}
	if len(rest) == 0 {
		b.diag.Warning("Dropping record %q: it maps to the report root itself", rec.Path)
		return nil
	}
	if err := checkComponents(rec.Path, rest); err != nil {
		return err
	}
	if existing := lookupFile(&root.container, rest); existing != nil {
		return reporterrors.Input("duplicate record for %s", rec.Path).WithPath(rec.Path)
	}

	base := root.Path()
	file := newFile(rec, base.Join(false, rest...), rest)
	agg := file.coverage

	current := &root.container
	current.coverage = current.coverage.Add(agg)
	for i, name := range rest[:len(rest)-1] {
		next := current.module(name)
		if next == nil {
			next = &Module{name: name, path: base.Join(true, rest[:i+1]...)}
			current.modules = append(current.modules, next)
		}
		current = &next.container
		current.coverage = current.coverage.Add(agg)
	}
	current.files = append(current.files, file)
	return nil
}

func lookupFile(c *container, rest []string) *File {
	for _, name := range rest[:len(rest)-1] {
		m := c.module(name)
		if m == nil {
			return nil
		}
		c = &m.container
	}
	return c.file(rest[len(rest)-1])
}

func checkComponents(path string, parts []string) error {
	for _, p := range parts {
		if p == "." || p == ".." {
			return reporterrors.Config("record path %s contains a relative component %q", path, p).WithPath(path)
		}
	}
	return nil
}

// BuildAll builds one root per input, at most concurrency at a time, and
// appends them to a new MultiReport in input order. concurrency < 1 means
// no limit.
func (b *Builder) BuildAll(ctx context.Context, name string, inputs []RootInput, concurrency int) (*MultiReport, error) {
	roots := make([]*Root, len(inputs))

	g, _ := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := range inputs {
		g.Go(func() error {
			root, err := b.Build(inputs[i])
			if err != nil {
				return err
			}
			roots[i] = root
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	multi := NewMultiReport(name)
	for _, root := range roots {
		if err := multi.AddRoot(root); err != nil {
			return nil, err
		}
	}
	return multi, nil
}

func errDuplicateKey(key string) error {
	return reporterrors.Invariant("root key %q is already used in this report", key)
}
