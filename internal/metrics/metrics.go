// Package metrics exposes annobot's Prometheus counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "annobot"

// Post decision results.
const (
	ResultPosted   = "posted"
	ResultDryRun   = "dry_run"
	ResultRejected = "rejected"
	ResultDenied   = "denied"
	ResultError    = "error"
)

// Metrics holds the counters on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// PostDecisions counts post and delete outcomes.
	// Labels: table, result (posted, dry_run, rejected, denied, error)
	PostDecisions *prometheus.CounterVec

	// RuleRejections counts rule errors by kind.
	// Labels: kind (duplicate, redundant, missing_parent, ...)
	RuleRejections *prometheus.CounterVec
}

// New creates the counters on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PostDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_decisions_total",
			Help:      "Annotation post and delete decisions by table and result",
		}, []string{"table", "result"}),
		RuleRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_rejections_total",
			Help:      "Annotations rejected by the annotation rules, by error kind",
		}, []string{"kind"}),
	}
}

// Decision records the outcome of a post or delete.
func (m *Metrics) Decision(table, result string) {
	if m == nil {
		return
	}
	m.PostDecisions.WithLabelValues(table, result).Inc()
}

// Rejection records a rule error of the given kind.
func (m *Metrics) Rejection(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.RuleRejections.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NewServer returns an HTTP server exposing /metrics on addr. The caller
// starts and stops it.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
