// Package metrics exposes Prometheus instruments for remote calls and board moves.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	moves          *prometheus.CounterVec
	reconcileCalls *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_remote_requests_total",
				Help: "Requests sent to the remote kanban API",
			},
			[]string{"op", "outcome"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kanban_remote_request_duration_seconds",
				Help:    "Latency of requests sent to the remote kanban API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		moves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_moves_total",
				Help: "Task moves applied to the local board",
			},
			[]string{"scope"},
		),
		reconcileCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_reconcile_updates_total",
				Help: "Per-task updates issued while reconciling moves",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.remoteRequests, m.remoteDuration, m.moves, m.reconcileCalls)
	return m
}

func (m *Metrics) ObserveRemote(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(op, outcome(err)).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMove(crossColumn bool) {
	if m == nil {
		return
	}
	scope := "same_column"
	if crossColumn {
		scope = "cross_column"
	}
	m.moves.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveReconcile(err error) {
	if m == nil {
		return
	}
	m.reconcileCalls.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
