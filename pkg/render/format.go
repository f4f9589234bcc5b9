// Package render turns report tree nodes into page bodies: a multi-page
// HTML report and a single-page text summary.
package render

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/jupierce/coverage-report/pkg/coverage"
)

// FormatPercentage renders two decimals and a percent sign, or "-" when the
// percentage is undefined.
func FormatPercentage(c coverage.Counters) string {
	pct, ok := c.Percentage()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatRatio renders covered/count.
func FormatRatio(c coverage.Counters) string {
	return fmt.Sprintf("%d/%d", c.Covered, c.Count)
}

// PercentageClass maps a percentage to one of eleven CSS buckets,
// prefix-0 through prefix-10, or prefix-none when undefined.
func PercentageClass(prefix string, c coverage.Counters) string {
	pct, ok := c.Percentage()
	if !ok {
		return prefix + "-none"
	}
	return fmt.Sprintf("%s-%d", prefix, int(math.Round(pct/10)))
}

var icons = map[string]string{
	"go":   "go.svg",
	"rs":   "rust.svg",
	"dart": "dart.svg",
	"c":    "cpp.svg",
	"cc":   "cpp.svg",
	"cpp":  "cpp.svg",
	"cxx":  "cpp.svg",
	"h":    "cpp.svg",
	"hpp":  "cpp.svg",
	"py":   "python.svg",
	"js":   "js.svg",
	"jsx":  "js.svg",
	"ts":   "js.svg",
	"tsx":  "js.svg",
}

// IconFor returns the icon resource for a file name, keyed by extension.
func IconFor(name string) (string, bool) {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	icon, ok := icons[strings.ToLower(ext)]
	return icon, ok
}
