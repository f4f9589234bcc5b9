// Package links computes the relative hyperlinks between pages of a
// statically exported multi-page report.
//
// Every link is relative to the page it appears on. A directory-like node
// renders to index.<ext> inside its own directory; a file renders to
// <file name>.<ext> inside its parent's directory, so the extension is
// appended and never replaces the file's own.
package links

import (
	"strings"

	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/pathutil"
	"github.com/jupierce/coverage-report/pkg/tree"
)

const (
	// DefaultExtension is the page extension of the HTML reporter.
	DefaultExtension = "html"
	// ResourcesDir holds shared styles and icons, once per report.
	ResourcesDir = "_resources"
)

// Link is one navigation entry.
type Link struct {
	Href  string
	Label string
}

// Computer derives links from tree positions only.
type Computer struct {
	ext string
}

// NewComputer creates a Computer for pages with the given extension. An
// empty ext means DefaultExtension.
func NewComputer(ext string) *Computer {
	if ext == "" {
		ext = DefaultExtension
	}
	return &Computer{ext: strings.TrimPrefix(ext, ".")}
}

// Extension returns the page extension without a leading dot.
func (c *Computer) Extension() string { return c.ext }

func (c *Computer) index() string { return "index." + c.ext }

// PageName is the file name a node's page is written to. A file named
// "index", "index_", "index__" and so on gets one more trailing underscore,
// so its page never replaces the index page of its directory.
func (c *Computer) PageName(n tree.Node) string {
	if n.IsDir() {
		return c.index()
	}
	name := n.Name()
	if strings.Trim(strings.TrimPrefix(name, "index"), "_") == "" && strings.HasPrefix(name, "index") {
		name += "_"
	}
	return name + "." + c.ext
}

// OutputPath returns the components of n's page relative to the output
// directory of root.
func (c *Computer) OutputPath(root tree.Node, n tree.Node) ([]string, error) {
	rel, err := below(root, n)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		rel = rel[:len(rel)-1]
	}
	return append(append([]string(nil), rel...), c.PageName(n)), nil
}

// Breadcrumbs lists the links from root down to target's parent, root
// first. Each link is relative to target's page. Labels are the names of the
// containers found at each step, so a keyed root inside a multi-report shows
// its display name. A target equal to root has no breadcrumbs.
func (c *Computer) Breadcrumbs(root tree.Container, target tree.Node) ([]Link, error) {
	rootParts := root.Path().Parts
	targetParts := target.Path().Parts
	if pathutil.Equal(rootParts, targetParts) {
		return []Link{}, nil
	}
	if _, err := below(root, target); err != nil {
		return nil, err
	}

	dir := target.Path().Location()
	labels := containerNames(root, targetParts)

	crumbs := make([]Link, 0, len(targetParts)-len(rootParts))
	for end := len(targetParts) - 1; end > len(rootParts); end-- {
		href, err := c.href(dir, targetParts[:end], c.index())
		if err != nil {
			return nil, err
		}
		label := targetParts[end-1]
		if name, ok := labels[end]; ok {
			label = name
		}
		crumbs = append(crumbs, Link{Href: href, Label: label})
	}

	href, err := c.href(dir, rootParts, c.index())
	if err != nil {
		return nil, err
	}
	crumbs = append(crumbs, Link{Href: href, Label: root.Name()})

	for i, j := 0, len(crumbs)-1; i < j; i, j = i+1, j-1 {
		crumbs[i], crumbs[j] = crumbs[j], crumbs[i]
	}
	return crumbs, nil
}

// LinkTo links from the page of the container from to target's page.
// Target must live under from.
func (c *Computer) LinkTo(from tree.Node, target tree.Node) (Link, error) {
	if _, err := below(from, target); err != nil {
		return Link{}, err
	}
	href, err := c.href(from.Path().Location(), target.Path().Location(), c.PageName(target))
	if err != nil {
		return Link{}, err
	}
	return Link{Href: href, Label: target.Name()}, nil
}

// LinkToSharedResource links from current's page to a file in the shared
// resource directory at the top of root's output.
func (c *Computer) LinkToSharedResource(root tree.Node, current tree.Node, name string) (string, error) {
	if _, err := below(root, current); err != nil {
		return "", err
	}
	return c.href(current.Path().Location(), append(append([]string(nil), root.Path().Parts...), ResourcesDir), name)
}

func (c *Computer) href(from, to []string, leaf string) (string, error) {
	rel, err := pathutil.RelativePath(from, to)
	if err != nil {
		return "", err
	}
	return strings.Join(append(rel, leaf), "/"), nil
}

// below returns n's components under root.
func below(root tree.Node, n tree.Node) ([]string, error) {
	rest, ok := pathutil.TrimPrefix(n.Path().Parts, root.Path().Parts)
	if !ok {
		return nil, reporterrors.Invariant("%q is not inside %q", n.Path().String(), root.Path().String())
	}
	return rest, nil
}

// containerNames follows target's components down from root and maps each
// prefix length that names a container to that container's display name.
func containerNames(root tree.Container, targetParts []string) map[int]string {
	names := map[int]string{}
	current := root
	for end := len(root.Path().Parts) + 1; end < len(targetParts); end++ {
		var next tree.Container
		for _, child := range current.Children() {
			if pathutil.Equal(child.Path().Parts, targetParts[:end]) {
				next = child
				break
			}
		}
		if next == nil {
			break
		}
		names[end] = next.Name()
		current = next
	}
	return names
}
