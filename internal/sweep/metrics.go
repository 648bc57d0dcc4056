package sweep

import "github.com/prometheus/client_golang/prometheus"

// Scenario call outcomes.
const (
	outcomeCorrect   = "correct"
	outcomeIncorrect = "incorrect"
	outcomeError     = "error"
	outcomeTerminal  = "terminal"
)

var (
	scenarioCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_scenario_calls_total",
			Help: "Total number of scenario calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	providerRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_provider_retries_total",
			Help: "Total number of provider call retries by reason.",
		},
		[]string{"provider", "reason"},
	)

	activeModelRuns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frontier_active_model_runs",
			Help: "Number of model runs currently holding concurrency slots.",
		},
		[]string{"provider"},
	)

	scenarioLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frontier_scenario_latency_seconds",
			Help:    "Latency of answered scenario calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"provider"},
	)

	sweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_sweeps_total",
			Help: "Total number of sweeps by terminal status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(scenarioCallsTotal)
	prometheus.MustRegister(providerRetriesTotal)
	prometheus.MustRegister(activeModelRuns)
	prometheus.MustRegister(scenarioLatency)
	prometheus.MustRegister(sweepsTotal)
}
