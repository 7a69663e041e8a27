// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package metrics exposes Prometheus collectors for Stanza.
//
// Collectors are registered on the default registry via promauto and served by
// promhttp at /metrics:
//
//	curl http://localhost:8087/metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation read path
	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stanza_recommend_duration_seconds",
			Help:    "Latency of recommendation requests",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"regime"}, // cold, light, heavy
	)

	RecommendResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stanza_recommend_result_size",
			Help:    "Number of items returned per recommendation request",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
	)

	StrategyCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_strategy_candidates_total",
			Help: "Candidates contributed by each strategy",
		},
		[]string{"strategy"}, // user_cf, item_cf, content, popularity, padding
	)

	StrategyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_strategy_errors_total",
			Help: "Strategy executions that degraded because a collaborator failed",
		},
		[]string{"strategy"},
	)

	// Vector store
	SnapshotItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_snapshot_items",
			Help: "Number of item vectors in the current snapshot",
		},
	)

	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_snapshot_version",
			Help: "Monotonic version of the current snapshot",
		},
	)

	VectorCacheLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_vector_cache_loads_total",
			Help: "Durable cache load attempts by result",
		},
		[]string{"result"}, // hit, mismatch, missing, error
	)

	// Coordinator
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stanza_recompute_duration_seconds",
			Help:    "Duration of coordinator operations",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"}, // rebuild_all, apply_new_item, initialize
	)

	// Scheduler
	SchedulerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stanza_scheduler_state",
			Help: "1 for the scheduler's current state, 0 otherwise",
		},
		[]string{"state"},
	)

	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_scheduler_runs_total",
			Help: "Recomputation runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // trigger: scheduled, retry, manual; outcome: success, failure, aborted
	)

	SchedulerRetryCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_scheduler_retry_count",
			Help: "Retry counter of the pending batch",
		},
	)

	SchedulerPendingBatch = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_scheduler_pending_batch_size",
			Help: "Change reasons accumulated in the pending batch",
		},
	)

	SchedulerLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_scheduler_last_success_timestamp",
			Help: "Unix time of the last successful recomputation",
		},
	)

	// Change watcher
	WatcherPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_watcher_polls_total",
			Help: "Corpus polls by result",
		},
		[]string{"result"}, // unchanged, growth, shrink, error
	)

	WatcherNewItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stanza_watcher_new_items_total",
			Help: "New corpus items observed by the watcher",
		},
	)

	// Resource guard
	ResourceCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_run_cpu_percent",
			Help: "Average process CPU percent during the last run",
		},
	)

	ResourceMemoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stanza_run_memory_percent",
			Help: "Average process memory percent during the last run",
		},
	)

	ResourceBreaches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_run_resource_breaches_total",
			Help: "Runs whose averaged usage exceeded a threshold",
		},
		[]string{"resource"}, // cpu, memory, budget
	)

	// Embedding collaborator
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_embedding_requests_total",
			Help: "Embedding batches requested by result",
		},
		[]string{"provider", "result"},
	)

	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stanza_embedding_duration_seconds",
			Help:    "Latency of embedding batches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stanza_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stanza_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// schedulerStates lists every label value SchedulerState may carry.
var schedulerStates = []string{"idle", "pending", "running", "retry_wait"}

// RecordRecommendation records one read-path request.
func RecordRecommendation(regime string, duration time.Duration, returned int) {
	RecommendDuration.WithLabelValues(regime).Observe(duration.Seconds())
	RecommendResults.Observe(float64(returned))
}

// RecordStrategy adds a strategy's candidate count, or an error if it degraded.
func RecordStrategy(strategy string, candidates int, err error) {
	if err != nil {
		StrategyErrors.WithLabelValues(strategy).Inc()
		return
	}
	StrategyCandidates.WithLabelValues(strategy).Add(float64(candidates))
}

// RecordSnapshot publishes the size and version of a freshly swapped snapshot.
func RecordSnapshot(items int, version uint64) {
	SnapshotItems.Set(float64(items))
	SnapshotVersion.Set(float64(version))
}

// RecordRecompute observes a coordinator operation.
func RecordRecompute(operation string, duration time.Duration) {
	RecomputeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetSchedulerState flips the state gauge so exactly one state reads 1.
func SetSchedulerState(state string) {
	for _, s := range schedulerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		SchedulerState.WithLabelValues(s).Set(v)
	}
}

// RecordRun counts a finished run.
func RecordRun(trigger, outcome string) {
	SchedulerRuns.WithLabelValues(trigger, outcome).Inc()
	if outcome == "success" {
		SchedulerLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordResourceReport publishes the averaged resource usage of a run.
func RecordResourceReport(cpu, memory float64, cpuExceeded, memoryExceeded, overBudget bool) {
	ResourceCPUPercent.Set(cpu)
	ResourceMemoryPercent.Set(memory)
	if cpuExceeded {
		ResourceBreaches.WithLabelValues("cpu").Inc()
	}
	if memoryExceeded {
		ResourceBreaches.WithLabelValues("memory").Inc()
	}
	if overBudget {
		ResourceBreaches.WithLabelValues("budget").Inc()
	}
}

// RecordEmbedding observes an embedding batch.
func RecordEmbedding(provider string, duration time.Duration, err error) {
	EmbeddingDuration.WithLabelValues(provider).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "failure"
	}
	EmbeddingRequests.WithLabelValues(provider, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
