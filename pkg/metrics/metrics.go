// Package metrics exposes report totals as Prometheus gauges, written in the
// node_exporter textfile-collector format.
package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jupierce/coverage-report/pkg/coverage"
	"github.com/jupierce/coverage-report/pkg/tree"
)

const namespace = "coverage_report"

var labels = []string{"report", "root", "kind"}

// Recorder holds the coverage gauges.
type Recorder struct {
	total   *prom.GaugeVec
	covered *prom.GaugeVec
	ratio   *prom.GaugeVec
}

// NewRecorder creates the gauges and registers them with reg.
func NewRecorder(reg prom.Registerer) *Recorder {
	r := &Recorder{
		total: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Instrumented items per report root and kind",
		}, labels),
		covered: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "items_covered",
			Help:      "Covered items per report root and kind",
		}, labels),
		ratio: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_ratio",
			Help:      "Covered over total per report root and kind, absent when nothing is instrumented",
		}, labels),
	}
	reg.MustRegister(r.total, r.covered, r.ratio)
	return r
}

// Observe sets the gauges for every root of c. A multi-report contributes
// one series set per root plus one for its merged total under root="".
func (r *Recorder) Observe(c tree.Container) {
	report := c.Name()
	switch v := c.(type) {
	case *tree.MultiReport:
		r.observe(report, "", v.Coverage())
		for _, root := range v.Roots() {
			r.observe(report, root.Key(), root.Coverage())
		}
	default:
		r.observe(report, "", c.Coverage())
	}
}

func (r *Recorder) observe(report, root string, agg coverage.Aggregated) {
	for _, k := range []struct {
		kind     string
		counters coverage.Counters
	}{
		{"lines", agg.Lines},
		{"functions", agg.Functions},
		{"branches", agg.Branches},
	} {
		r.total.WithLabelValues(report, root, k.kind).Set(float64(k.counters.Count))
		r.covered.WithLabelValues(report, root, k.kind).Set(float64(k.counters.Covered))
		if pct, ok := k.counters.Percentage(); ok {
			r.ratio.WithLabelValues(report, root, k.kind).Set(pct / 100)
		}
	}
}

// WriteTextfile writes the gauges for c to path.
func WriteTextfile(path string, c tree.Container) error {
	reg := prom.NewRegistry()
	NewRecorder(reg).Observe(c)
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
