package orchestration

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/solk8s/internal/manifest"
)

// Metrics are the orchestrator's Prometheus collectors.
type Metrics struct {
	nodes        *prometheus.GaugeVec
	apiCalls     *prometheus.CounterVec
	readySeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "solk8s",
				Subsystem: "orchestrator",
				Name:      "nodes",
				Help:      "Number of nodes by role and phase",
			},
			[]string{"role", "phase"},
		),
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "solk8s",
				Subsystem: "orchestrator",
				Name:      "api_calls_total",
				Help:      "Total number of Kubernetes create calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		readySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "solk8s",
				Subsystem: "orchestrator",
				Name:      "node_ready_seconds",
				Help:      "Time from submission to readiness of a node in seconds",
				Buckets:   prometheus.ExponentialBuckets(5, 2, 8), // 5s to ~10min
			},
			[]string{"role"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.nodes, m.apiCalls, m.readySeconds)
	}
	return m
}

func (m *Metrics) recordPlan(plan *manifest.Plan) {
	for _, n := range plan.Nodes {
		m.nodes.WithLabelValues(string(n.Role), string(PhasePending)).Inc()
	}
}

func (m *Metrics) recordTransition(t Transition) {
	m.nodes.WithLabelValues(string(t.Role), string(t.From)).Dec()
	m.nodes.WithLabelValues(string(t.Role), string(t.To)).Inc()
}

func (m *Metrics) recordAPICall(operation, result string) {
	m.apiCalls.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) recordReady(role manifest.Role, seconds float64) {
	m.readySeconds.WithLabelValues(string(role)).Observe(seconds)
}
