// Package input reads coverage tracefiles into raw records and resolves
// each input's root prefix and output key before the tree is built.
package input

import (
	"fmt"
	"strings"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/pathutil"
	"github.com/jupierce/coverage-report/pkg/tree"
)

// Source is one parsed coverage input.
type Source struct {
	// Name overrides the root's display name and is the key of last resort.
	Name string
	// Prefix is stripped from every record. Nil infers the longest common
	// directory of the records; a non-nil value, even empty, is validated.
	Prefix  *string
	Records []coverage.RawRecord
}

// prefix resolves the root prefix of src.
func (src Source) prefix() ([]string, error) {
	if src.Prefix == nil {
		paths := make([]string, len(src.Records))
		for i, rec := range src.Records {
			paths[i] = rec.Path
		}
		return pathutil.LongestCommonPrefix(paths), nil
	}

	prefix := pathutil.Split(*src.Prefix)
	for _, rec := range src.Records {
		if !pathutil.HasPrefix(pathutil.Split(rec.Path), prefix) {
			return nil, reporterrors.PrefixMismatch(*src.Prefix, rec.Path)
		}
	}
	return prefix, nil
}

// candidateKey is the last prefix component, else the sanitised name. A
// "." or ".." component is not a valid directory name in the output and
// falls through to the name, then to the empty bucket.
func candidateKey(prefix []string, name string) string {
	if len(prefix) > 0 {
		if last := prefix[len(prefix)-1]; last != "." && last != ".." {
			return last
		}
	}
	key := strings.ReplaceAll(strings.TrimSpace(name), "/", "_")
	if key == "." || key == ".." {
		return ""
	}
	return key
}

// ResolveSingle prepares the only input of a report. The root has no key and
// is named after the input, else reportName, else its prefix.
func ResolveSingle(src Source, reportName string) (tree.RootInput, error) {
	prefix, err := src.prefix()
	if err != nil {
		return tree.RootInput{}, err
	}
	name := src.Name
	if name == "" {
		name = reportName
	}
	return tree.RootInput{
		Spec:    tree.RootSpec{Prefix: prefix, Name: name},
		Records: src.Records,
	}, nil
}

// Resolve prepares several inputs for a multi-report: every prefix is
// resolved first, failing on the first mismatch, and the candidate keys are
// then deduplicated in input order.
func Resolve(sources []Source) ([]tree.RootInput, error) {
	resolved := make([]tree.RootInput, len(sources))
	candidates := make([]string, len(sources))
	for i, src := range sources {
		prefix, err := src.prefix()
		if err != nil {
			return nil, fmt.Errorf("resolve input %d: %w", i+1, err)
		}
		resolved[i] = tree.RootInput{
			Spec:    tree.RootSpec{Prefix: prefix, Name: src.Name},
			Records: src.Records,
		}
		candidates[i] = candidateKey(prefix, src.Name)
	}

	for i, key := range DedupKeys(candidates) {
		resolved[i].Spec.Key = key
	}
	return resolved, nil
}

// DedupKeys makes candidate keys unique. A key that occurs once stays bare;
// every occurrence of a repeated key gets a 1-based "_<n>" suffix in input
// order. The empty key is always suffixed. A generated key never reuses
// another input's bare key: the counter skips ahead instead.
func DedupKeys(candidates []string) []string {
	counts := make(map[string]int, len(candidates))
	for _, key := range candidates {
		counts[key]++
	}

	taken := make(map[string]bool, len(candidates))
	for key, n := range counts {
		if n == 1 && key != "" {
			taken[key] = true
		}
	}

	next := make(map[string]int)
	keys := make([]string, len(candidates))
	for i, key := range candidates {
		if counts[key] == 1 && key != "" {
			keys[i] = key
			continue
		}
		n := next[key]
		var suffixed string
		for {
			n++
			suffixed = fmt.Sprintf("%s_%d", key, n)
			if !taken[suffixed] {
				break
			}
		}
		next[key] = n
		taken[suffixed] = true
		keys[i] = suffixed
	}
	return keys
}
