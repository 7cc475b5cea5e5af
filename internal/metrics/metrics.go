package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// REST calls
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kraken_bdd_api_latency_seconds",
			Help:    "Kraken REST call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kraken_bdd_api_error_count_total",
			Help: "Failed Kraken REST calls by error type",
		},
		[]string{"endpoint", "type"},
	)

	// Scenarios
	ScenarioCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kraken_bdd_scenario_count_total",
			Help: "Finished scenarios by status",
		},
		[]string{"status"},
	)

	SuiteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kraken_bdd_suite_duration_seconds",
			Help:    "Wall time of a full suite run",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(
		APILatency,
		APIErrorCount,
		ScenarioCount,
		SuiteDuration,
	)
}

// StartMetricsServer serves /metrics on port. A port of 0 picks a free one;
// the bound port is returned.
func StartMetricsServer(port int) (int, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux}

	bound := ln.Addr().(*net.TCPAddr).Port
	log.Info().Int("port", bound).Msg("metrics server listening")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return bound, nil
}

// ObserveAPILatency records one REST call.
func ObserveAPILatency(endpoint string, d time.Duration) {
	APILatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordError counts a failed REST call.
func RecordError(endpoint, errType string) {
	APIErrorCount.WithLabelValues(endpoint, errType).Inc()
}

// RecordScenario counts a finished scenario; status is "passed" or "failed".
func RecordScenario(status string) {
	ScenarioCount.WithLabelValues(status).Inc()
}

// ObserveSuite records a full suite run.
func ObserveSuite(d time.Duration) {
	SuiteDuration.Observe(d.Seconds())
}
