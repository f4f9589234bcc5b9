// Package pathutil splits slash-separated coverage paths into components and
// does the prefix and relative-path arithmetic the report tree relies on.
//
// All paths are handled as '/'-separated strings regardless of the host OS;
// coverage tracefiles record paths that way and the report output mirrors them.
package pathutil

import (
	"strings"

	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
)

const separator = "/"

// Path is an ordered list of non-empty components plus a directory flag.
// Two paths are equal when their components are equal; the flag only
// decides how a path is rendered as a link.
type Path struct {
	Parts []string
	Dir   bool
}

// NewPath splits s into a Path.
func NewPath(s string, dir bool) Path {
	return Path{Parts: Split(s), Dir: dir}
}

// DirPath builds a directory Path from components, copying them.
func DirPath(parts ...string) Path {
	return Path{Parts: append([]string(nil), parts...), Dir: true}
}

// FilePath builds a file Path from components, copying them.
func FilePath(parts ...string) Path {
	return Path{Parts: append([]string(nil), parts...)}
}

// String joins the components with '/'.
func (p Path) String() string {
	return strings.Join(p.Parts, separator)
}

// Equal compares component sequences.
func (p Path) Equal(o Path) bool {
	return Equal(p.Parts, o.Parts)
}

// Base returns the last component, or "" for the empty path.
func (p Path) Base() string {
	if len(p.Parts) == 0 {
		return ""
	}
	return p.Parts[len(p.Parts)-1]
}

// Join returns a new path with parts appended.
func (p Path) Join(dir bool, parts ...string) Path {
	joined := make([]string, 0, len(p.Parts)+len(parts))
	joined = append(joined, p.Parts...)
	joined = append(joined, parts...)
	return Path{Parts: joined, Dir: dir}
}

// Location is the directory a page for p lives in: p itself for a
// directory, its parent for a file.
func (p Path) Location() []string {
	if p.Dir || len(p.Parts) == 0 {
		return p.Parts
	}
	return p.Parts[:len(p.Parts)-1]
}

// Split returns the non-empty components of path. Leading, trailing and
// repeated separators are ignored.
func Split(path string) []string {
	raw := strings.Split(path, separator)
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// Equal reports whether two component slices are identical.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether parts starts with prefix.
func HasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	return Equal(parts[:len(prefix)], prefix)
}

// TrimPrefix strips prefix from parts. ok is false when parts does not
// start with prefix.
func TrimPrefix(parts, prefix []string) (rest []string, ok bool) {
	if !HasPrefix(parts, prefix) {
		return nil, false
	}
	return parts[len(prefix):], true
}

// CommonPrefix returns the element-wise shared prefix of the given component
// lists. It stops as soon as the running prefix becomes empty.
func CommonPrefix(paths [][]string) []string {
	if len(paths) == 0 {
		return nil
	}
	prefix := paths[0]
	for _, path := range paths[1:] {
		n := 0
		for n < len(prefix) && n < len(path) && prefix[n] == path[n] {
			n++
		}
		prefix = prefix[:n]
		if len(prefix) == 0 {
			return nil
		}
	}
	return append([]string(nil), prefix...)
}

// LongestCommonPrefix returns the longest directory shared by every file
// path. File names are dropped first, so a single path yields its own
// directory. An empty list yields the empty prefix.
func LongestCommonPrefix(filePaths []string) []string {
	dirs := make([][]string, 0, len(filePaths))
	for _, p := range filePaths {
		parts := Split(p)
		if len(parts) > 0 {
			parts = parts[:len(parts)-1]
		}
		dirs = append(dirs, parts)
	}
	return CommonPrefix(dirs)
}

// RelativePath returns the components that lead from the directory from to
// to, using ".." to climb. Applying the result to from yields to, and
// RelativePath(x, x) is empty.
//
// Components "." and ".." are not representable in tree paths; finding one
// is an invariant violation reported as an error.
func RelativePath(from, to []string) ([]string, error) {
	if err := checkComponents(from); err != nil {
		return nil, err
	}
	if err := checkComponents(to); err != nil {
		return nil, err
	}

	common := 0
	for common < len(from) && common < len(to) && from[common] == to[common] {
		common++
	}

	rel := make([]string, 0, len(from)-common+len(to)-common)
	for i := common; i < len(from); i++ {
		rel = append(rel, "..")
	}
	rel = append(rel, to[common:]...)
	return rel, nil
}

// Apply walks rel from the directory base, resolving "..". It is the
// inverse of RelativePath.
func Apply(base, rel []string) ([]string, error) {
	out := append([]string(nil), base...)
	for _, part := range rel {
		if part == ".." {
			if len(out) == 0 {
				return nil, reporterrors.Invariant("path %q climbs above %q", strings.Join(rel, separator), strings.Join(base, separator))
			}
			out = out[:len(out)-1]
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

func checkComponents(parts []string) error {
	for _, part := range parts {
		if part == "." || part == ".." {
			return reporterrors.Invariant("path %q has no representable common ancestor", strings.Join(parts, separator))
		}
	}
	return nil
}
