// Package tree aggregates flat, path-keyed coverage records into a rooted
// tree of modules (directories) and files.
//
// Every container's coverage equals the sum of its direct files plus the sum
// of its direct child containers. The tree is built once by a Builder and is
// read-only afterwards; nodes hold no parent pointers, so anything that needs
// ancestry takes the root explicitly.
package tree

import (
	"github.com/jupierce/coverage-report/pkg/coverage"
	"github.com/jupierce/coverage-report/pkg/pathutil"
)

// DefaultName names a root whose prefix is empty and that was given no name.
const DefaultName = "Test report"

// Node is the capability set shared by files and containers.
type Node interface {
	Name() string
	// Path is the node's location relative to the report output root.
	Path() pathutil.Path
	IsDir() bool
	Coverage() coverage.Aggregated
}

// Container is a Node that can hold child containers and files: a Module, a
// Root or a MultiReport.
type Container interface {
	Node
	Children() []Container
	Files() []*File
}

// File is a leaf: one source file's record plus its aggregated counters.
type File struct {
	name      string
	path      pathutil.Path
	relative  string
	source    string
	coverage  coverage.Aggregated
	lines     map[uint32]uint64
	functions map[string]uint64
}

func newFile(rec coverage.RawRecord, path pathutil.Path, relative []string) *File {
	f := &File{
		name:      path.Base(),
		path:      path,
		relative:  pathutil.FilePath(relative...).String(),
		source:    rec.Path,
		coverage:  coverage.FromRawRecord(rec),
		lines:     make(map[uint32]uint64, len(rec.Lines)),
		functions: make(map[string]uint64, len(rec.Functions)),
	}
	for line, hits := range rec.Lines {
		f.lines[line] = hits
	}
	for name, hits := range rec.Functions {
		f.functions[name] = hits
	}
	return f
}

func (f *File) Name() string                  { return f.name }
func (f *File) Path() pathutil.Path           { return f.path }
func (f *File) IsDir() bool                   { return false }
func (f *File) Coverage() coverage.Aggregated { return f.coverage }

// RelativePath is the file's path with the owning root's prefix stripped.
func (f *File) RelativePath() string { return f.relative }

// SourcePath is the path exactly as the coverage record named it.
func (f *File) SourcePath() string { return f.source }

// Hits returns the hit count recorded for line.
func (f *File) Hits(line uint32) (uint64, bool) {
	hits, ok := f.lines[line]
	return hits, ok
}

// LineHits lists per-line hit counts in line order.
func (f *File) LineHits() []coverage.LineHit {
	return coverage.SortedLines(f.lines)
}

// FunctionHits lists per-function hit counts in name order.
func (f *File) FunctionHits() []coverage.FunctionHit {
	return coverage.SortedFunctions(f.functions)
}

// container is the child storage shared by Module and Root.
type container struct {
	modules  []*Module
	files    []*File
	coverage coverage.Aggregated
}

func (c *container) module(name string) *Module {
	for _, m := range c.modules {
		if m.name == name {
			return m
		}
	}
	return nil
}

func (c *container) file(name string) *File {
	for _, f := range c.files {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (c *container) children() []Container {
	out := make([]Container, len(c.modules))
	for i, m := range c.modules {
		out[i] = m
	}
	return out
}

// Module is an intermediate directory node.
type Module struct {
	container
	name string
	path pathutil.Path
}

func (m *Module) Name() string                  { return m.name }
func (m *Module) Path() pathutil.Path           { return m.path }
func (m *Module) IsDir() bool                   { return true }
func (m *Module) Coverage() coverage.Aggregated { return m.coverage }
func (m *Module) Children() []Container         { return m.children() }
func (m *Module) Files() []*File                { return m.files }

// Modules returns the child modules in first-seen order.
func (m *Module) Modules() []*Module { return m.modules }

// RootSpec describes the root of one coverage input.
type RootSpec struct {
	// Prefix is stripped from every record path. Records must start with it.
	Prefix []string
	// Key names the root's output subtree inside a multi-report; empty for a
	// standalone report.
	Key string
	// Name is the display name. Empty means the last prefix component, or
	// DefaultName when the prefix is empty too.
	Name string
}

// DisplayName resolves the name a root built from s will carry.
func (s RootSpec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.Prefix) > 0 {
		return s.Prefix[len(s.Prefix)-1]
	}
	return DefaultName
}

// Root is the top of the tree built from one coverage input.
type Root struct {
	container
	prefix []string
	key    string
	name   string
}

func newRoot(spec RootSpec) *Root {
	return &Root{
		prefix: append([]string(nil), spec.Prefix...),
		key:    spec.Key,
		name:   spec.DisplayName(),
	}
}

func (r *Root) Name() string { return r.name }

// Path is the key as a single directory component, or the empty path.
func (r *Root) Path() pathutil.Path {
	if r.key == "" {
		return pathutil.DirPath()
	}
	return pathutil.DirPath(r.key)
}

func (r *Root) IsDir() bool                   { return true }
func (r *Root) Coverage() coverage.Aggregated { return r.coverage }
func (r *Root) Children() []Container         { return r.children() }
func (r *Root) Files() []*File                { return r.files }

// Modules returns the top-level modules in first-seen order.
func (r *Root) Modules() []*Module { return r.modules }

// Prefix returns the stripped common prefix.
func (r *Root) Prefix() []string { return append([]string(nil), r.prefix...) }

// Key returns the deduplicated output key.
func (r *Root) Key() string { return r.key }

// MultiReport merges several independently rooted trees. Its children are
// whole roots; it has no files of its own.
type MultiReport struct {
	name     string
	roots    []*Root
	coverage coverage.Aggregated
}

// NewMultiReport creates an empty multi-report.
func NewMultiReport(name string) *MultiReport {
	if name == "" {
		name = DefaultName
	}
	return &MultiReport{name: name}
}

// AddRoot appends r and folds its totals in. Keys must be unique.
func (m *MultiReport) AddRoot(r *Root) error {
	for _, existing := range m.roots {
		if existing.key == r.key {
			return errDuplicateKey(r.key)
		}
	}
	m.roots = append(m.roots, r)
	m.coverage = m.coverage.Add(r.coverage)
	return nil
}

func (m *MultiReport) Name() string                  { return m.name }
func (m *MultiReport) Path() pathutil.Path           { return pathutil.DirPath() }
func (m *MultiReport) IsDir() bool                   { return true }
func (m *MultiReport) Coverage() coverage.Aggregated { return m.coverage }
func (m *MultiReport) Files() []*File                { return nil }

func (m *MultiReport) Children() []Container {
	out := make([]Container, len(m.roots))
	for i, r := range m.roots {
		out[i] = r
	}
	return out
}

// Roots returns the merged roots in the order they were added.
func (m *MultiReport) Roots() []*Root { return m.roots }
