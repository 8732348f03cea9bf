// Package metrics owns the service's prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcome labels.
const (
	OutcomeCorrect       = "correct"
	OutcomeIncorrect     = "incorrect"
	OutcomeAlreadySolved = "already_solved"
	OutcomeConflict      = "conflict"
	OutcomeRejected      = "rejected"
	OutcomeError         = "error"
)

type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	broadcasts  prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Name:      "submissions_total",
		Help:      "Answer submissions by outcome.",
	}, []string{"outcome"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Name:      "broadcast_messages_total",
		Help:      "Messages written to connected viewers.",
	})
	registry.MustRegister(submissions, broadcasts)

	return &Metrics{registry: registry, submissions: submissions, broadcasts: broadcasts}
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBroadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
