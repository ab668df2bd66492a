// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bandhub",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bandhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bandhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	aiGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bandhub",
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "AI generation attempts by feature and outcome.",
		},
		[]string{"feature", "outcome"},
	)

	withdrawalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bandhub",
			Subsystem: "vault",
			Name:      "withdrawal_transitions_total",
			Help:      "Withdrawal status transitions by target status and actor.",
		},
		[]string{"status", "actor"},
	)

	rewardDistributions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bandhub",
			Subsystem: "vault",
			Name:      "reward_distributions_total",
			Help:      "Reward distributions by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		aiGenerations,
		withdrawalTransitions,
		rewardDistributions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument records request count, latency and in-flight requests,
// labelled by the matched chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordGeneration counts one AI generation attempt.
func RecordGeneration(feature, outcome string) {
	aiGenerations.WithLabelValues(feature, outcome).Inc()
}

// RecordWithdrawalTransition counts a withdrawal moving to status.
func RecordWithdrawalTransition(status, actor string) {
	withdrawalTransitions.WithLabelValues(status, actor).Inc()
}

// RecordDistribution counts a reward distribution attempt.
func RecordDistribution(trigger, outcome string) {
	rewardDistributions.WithLabelValues(trigger, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
