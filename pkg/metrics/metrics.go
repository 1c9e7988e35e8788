package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_dispatches_total",
			Help: "Total number of task events dispatched to the rule engine (count)",
		},
		[]string{"kind", "origin"},
	)

	RulesEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_rules_evaluated_total",
			Help: "Total number of rule evaluations, by match outcome (count)",
		},
		[]string{"outcome"},
	)

	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_executions_total",
			Help: "Total number of rule executions, by recorded status (count)",
		},
		[]string{"status"},
	)

	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_action_duration_ms",
			Help:    "Duration of individual action side effects in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"action_type", "status"},
	)

	ScannerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_scanner_runs_total",
			Help: "Total number of due-date scanner runs (count)",
		},
		[]string{"status"},
	)

	ScannerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_scanner_events_total",
			Help: "Total number of due-date events synthesized by the scanner (count)",
		},
		[]string{"kind"},
	)

	ActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "automation_active_rules",
			Help: "Number of active automation rules across all workspaces (count)",
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of events sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests seen by the API rate limiter (count)",
		},
		[]string{"status"},
	)
)

func RegisterEngineMetrics() {
	prometheus.MustRegister(
		DispatchesTotal,
		RulesEvaluatedTotal,
		ExecutionsTotal,
		ActionDuration,
		ScannerRunsTotal,
		ScannerEventsTotal,
		ActiveRules,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		DLQMessagesTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(
		RateLimitRequestsTotal,
	)
}

func ObserveActionDuration(actionType, status string, d time.Duration) {
	ActionDuration.WithLabelValues(actionType, status).Observe(float64(d.Milliseconds()))
}

func SetActiveRules(n int) {
	ActiveRules.Set(float64(n))
}
