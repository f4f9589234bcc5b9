package tree

import (
	"github.com/jupierce/coverage-report/pkg/coverage"
)

// Walk visits c depth first: the container itself, then each child
// container's subtree, then the container's own files. A non-nil error from
// fn stops the walk.
func Walk(c Container, fn func(Node) error) error {
	if err := fn(c); err != nil {
		return err
	}
	for _, child := range c.Children() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	for _, f := range c.Files() {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// EnumerateFiles lists every file under c in Walk order.
func EnumerateFiles(c Container) []*File {
	var files []*File
	_ = Walk(c, func(n Node) error {
		if f, ok := n.(*File); ok {
			files = append(files, f)
		}
		return nil
	})
	return files
}

// CheckTotals recomputes every container's coverage from its direct files
// and children and returns the first container whose stored total differs.
func CheckTotals(c Container) (Container, bool) {
	var sum coverage.Aggregated
	for _, f := range c.Files() {
		sum = sum.Add(f.Coverage())
	}
	for _, child := range c.Children() {
		if bad, ok := CheckTotals(child); !ok {
			return bad, false
		}
		sum = sum.Add(child.Coverage())
	}
	if sum != c.Coverage() {
		return c, false
	}
	return nil, true
}

// Equal reports whether two trees have the same shape, names, paths,
// counters and raw hit data, with children in the same order.
func Equal(a, b Container) bool {
	if a.Name() != b.Name() || !a.Path().Equal(b.Path()) || a.Coverage() != b.Coverage() {
		return false
	}
	af, bf := a.Files(), b.Files()
	if len(af) != len(bf) {
		return false
	}
	for i := range af {
		if !fileEqual(af[i], bf[i]) {
			return false
		}
	}
	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

func fileEqual(a, b *File) bool {
	if a.name != b.name || !a.path.Equal(b.path) || a.relative != b.relative ||
		a.source != b.source || a.coverage != b.coverage {
		return false
	}
	if len(a.lines) != len(b.lines) || len(a.functions) != len(b.functions) {
		return false
	}
	for line, hits := range a.lines {
		if other, ok := b.lines[line]; !ok || other != hits {
			return false
		}
	}
	for name, hits := range a.functions {
		if other, ok := b.functions[name]; !ok || other != hits {
			return false
		}
	}
	return true
}
