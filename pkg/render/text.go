package render

import (
	"fmt"
	"strings"

	"github.com/jupierce/coverage-report/pkg/coverage"
	"github.com/jupierce/coverage-report/pkg/tree"
)

// Text renders the whole tree as one fixed-width summary.
type Text struct{}

// RenderSummary lists the root's totals, then one row per node: a
// container's files before its child containers, indented by depth.
func (Text) RenderSummary(root tree.Container) ([]byte, error) {
	var b strings.Builder
	agg := root.Coverage()
	fmt.Fprintf(&b, "%s:\n", root.Name())
	fmt.Fprintf(&b, "  - Lines     %s\n", textCounters(agg.Lines))
	fmt.Fprintf(&b, "  - Functions %s\n", textCounters(agg.Functions))
	fmt.Fprintf(&b, "  - Branches  %s\n", textCounters(agg.Branches))
	b.WriteString("\nDetails:\n\n")
	writeTextRows(&b, root, 1)
	return []byte(b.String()), nil
}

func writeTextRows(b *strings.Builder, c tree.Container, level int) {
	for _, f := range c.Files() {
		writeTextRow(b, level, f.Name(), f.Coverage())
	}
	for _, child := range c.Children() {
		writeTextRow(b, level, child.Name(), child.Coverage())
		writeTextRows(b, child, level+1)
	}
}

func writeTextRow(b *strings.Builder, level int, name string, agg coverage.Aggregated) {
	fmt.Fprintf(b, "%-50s Lines %s    Functions %s    Branches %s\n",
		strings.Repeat("  ", level)+name,
		textCounters(agg.Lines),
		textCounters(agg.Functions),
		textCounters(agg.Branches))
}

func textCounters(c coverage.Counters) string {
	return fmt.Sprintf("%10s %8s", FormatRatio(c), FormatPercentage(c))
}
