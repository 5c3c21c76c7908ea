package builder

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Node actions counted by Metrics.
const (
	actionCreated  = "created"
	actionReused   = "reused"
	actionReplaced = "replaced"
	actionRemoved  = "removed"
)

// Metrics holds the Prometheus collectors updated by compiles. One instance
// can be shared by many builders; series are labeled by scope.
type Metrics struct {
	compileTotal      *prometheus.CounterVec
	compileErrorTotal *prometheus.CounterVec
	nodesTotal        *prometheus.CounterVec
	linksCreatedTotal *prometheus.CounterVec
	linksSkippedTotal *prometheus.CounterVec
	compileDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		compileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_builder_compile_total",
				Help: "Number of compiles by scope.",
			},
			[]string{"scope"},
		),
		compileErrorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_builder_compile_error_total",
				Help: "Number of failed compiles by scope.",
			},
			[]string{"scope"},
		),
		nodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_builder_nodes_total",
				Help: "Number of node materializations by scope and action.",
			},
			[]string{"scope", "action"},
		),
		linksCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_builder_links_created_total",
				Help: "Number of links created by scope.",
			},
			[]string{"scope"},
		),
		linksSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_builder_links_skipped_total",
				Help: "Number of unforced links ignored on compiled adjustable scopes.",
			},
			[]string{"scope"},
		),
		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "framegraph_builder_compile_duration_seconds",
				Help:    "Time taken by one compile, nested compiles included.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering builder metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.compileTotal,
		m.compileErrorTotal,
		m.nodesTotal,
		m.linksCreatedTotal,
		m.linksSkippedTotal,
		m.compileDuration,
	}
}

func (m *Metrics) compiled(scope string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.compileTotal.WithLabelValues(scope).Inc()
	if err != nil {
		m.compileErrorTotal.WithLabelValues(scope).Inc()
	}
	m.compileDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) node(scope, action string) {
	if m == nil {
		return
	}
	m.nodesTotal.WithLabelValues(scope, action).Inc()
}

func (m *Metrics) linkCreated(scope string) {
	if m == nil {
		return
	}
	m.linksCreatedTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) linkSkipped(scope string) {
	if m == nil {
		return
	}
	m.linksSkippedTotal.WithLabelValues(scope).Inc()
}
