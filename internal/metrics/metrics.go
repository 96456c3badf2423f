package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsEndpoint = "0.0.0.0:9090"
)

var (
	APIRequestCount *prometheus.CounterVec

	APIRequestErrorCount *prometheus.CounterVec

	CacheHitCount *prometheus.CounterVec

	TokenExchangeCount *prometheus.CounterVec

	LookupCount *prometheus.CounterVec

	LookupRunTimeSummary *prometheus.SummaryVec
)

func init() {
	APIRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportwatch_api_requests_total",
			Help: "A counter metric to measure the total count of support API requests issued upstream",
		},
		[]string{"endpoint"},
	)

	APIRequestErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportwatch_api_request_errors_total",
			Help: "A counter metric to measure the total count of support API requests that failed",
		},
		[]string{"endpoint", "kind"}, // kind is auth/transport/upstream
	)

	CacheHitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportwatch_cache_hits_total",
			Help: "A counter metric to measure the total count of support API responses served from the cache",
		},
		[]string{"endpoint"},
	)

	TokenExchangeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportwatch_token_exchanges_total",
			Help: "A counter metric to measure the total count of OAuth2 client-credential exchanges, successful and failed",
		},
		[]string{"outcome"},
	)

	LookupCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportwatch_lookups_total",
			Help: "A counter metric to measure the total count of device support lookups",
		},
		[]string{"state"}, // state is completed/skipped/error
	)

	LookupRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "supportwatch_lookup_duration_seconds",
			Help: "A summary metric to measure the total time spent assembling each aggregate support record",
		},
		[]string{"state"},
	)
}

// ListenAndServe exposes prometheus metrics as /metrics
func ListenAndServe() {
	go func() {
		http.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              MetricsEndpoint,
			ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
		}

		if err := server.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()
}
