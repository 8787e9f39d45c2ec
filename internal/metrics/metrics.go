package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tinyleap"

// Metrics exposes Prometheus collectors for agent calls and evaluation sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	agentCalls    *prometheus.CounterVec
	agentDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

var (
	defaultOnce   sync.Once
	sharedMetrics *Metrics
)

// Default returns the package-level instance registered with the global
// Prometheus registry. Collectors are created once so repeated construction
// does not panic on duplicate registration.
func Default() *Metrics {
	defaultOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs Metrics registered with reg. Registration errors panic.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		agentCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "calls_total",
				Help:      "Agent completion calls by agent and outcome.",
			},
			[]string{"agent", "outcome"},
		),
		agentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "call_duration_seconds",
				Help:      "Latency of agent completion calls.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"agent"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "fallbacks_total",
				Help:      "Agent calls answered with a fallback value.",
			},
			[]string{"agent", "reason"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "evaluation",
				Name:      "transitions_total",
				Help:      "Evaluation session transitions by target step.",
			},
			[]string{"action", "step"},
		),
	}
	reg.MustRegister(m.agentCalls, m.agentDuration, m.fallbacks, m.transitions)
	return m
}

// ObserveCall records one agent call.
func (m *Metrics) ObserveCall(agent, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.agentCalls.WithLabelValues(agent, outcome).Inc()
	m.agentDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// Fallback records an agent answer replaced by its fallback value.
func (m *Metrics) Fallback(agent, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(agent, reason).Inc()
}

// Transition records an evaluation session action and the step it reached.
func (m *Metrics) Transition(action, step string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, step).Inc()
}
