package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the collectors the server records into.
type Metrics struct {
	Registry *prometheus.Registry

	quotesComputed *prometheus.CounterVec
	quoteRejected  *prometheus.CounterVec
	computeSeconds prometheus.Histogram
	quoteLines     prometheus.Histogram
}

// New registers the quote collectors plus the Go and process collectors on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		quotesComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteworks",
			Name:      "quotes_computed_total",
			Help:      "Quotes computed successfully, by whether they were saved.",
		}, []string{"saved"}),
		quoteRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteworks",
			Name:      "quotes_rejected_total",
			Help:      "Quote calculations rejected by the engine, by error kind.",
		}, []string{"kind"}),
		computeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quoteworks",
			Name:      "quote_compute_seconds",
			Help:      "Time spent loading materials and computing a quote.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		quoteLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quoteworks",
			Name:      "quote_lines",
			Help:      "Number of line items per computed quote.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
	reg.MustRegister(
		m.quotesComputed,
		m.quoteRejected,
		m.computeSeconds,
		m.quoteLines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveComputed records a successful calculation.
func (m *Metrics) ObserveComputed(saved bool, lines int, took time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if saved {
		label = "true"
	}
	m.quotesComputed.WithLabelValues(label).Inc()
	m.quoteLines.Observe(float64(lines))
	m.computeSeconds.Observe(took.Seconds())
}

// ObserveRejected records a calculation the engine refused.
func (m *Metrics) ObserveRejected(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.quoteRejected.WithLabelValues(kind).Inc()
}
