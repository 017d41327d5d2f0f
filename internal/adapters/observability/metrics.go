package observability

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "onboarding", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onboarding", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "onboarding", Name: "session_events_total", Help: "Session lifecycle events."},
		[]string{"event"}, // event: created|reused|completed|abandoned
	)
	StepUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "onboarding", Name: "step_updates_total", Help: "Draft step updates."},
		[]string{"step"},
	)
	CommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onboarding", Name: "commit_duration_seconds",
			Help:    "Integration transaction duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "outcome"}, // kind: commit|migrate
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "onboarding", Name: "notifications_total", Help: "Downstream notifications."},
		[]string{"type", "outcome"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "onboarding", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, SessionEvents, StepUpdates, CommitDuration, Notifications, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveSession(event string) { // event: created|reused|completed
	SessionEvents.WithLabelValues(event).Inc()
}

func ObserveSessionsAbandoned(n int64) {
	SessionEvents.WithLabelValues("abandoned").Add(float64(n))
}

func ObserveStepUpdate(step string) {
	StepUpdates.WithLabelValues(step).Inc()
}

func ObserveCommit(kind, outcome string, dur time.Duration) {
	CommitDuration.WithLabelValues(kind, outcome).Observe(dur.Seconds())
}

func ObserveNotification(typ, outcome string) {
	Notifications.WithLabelValues(typ, outcome).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
