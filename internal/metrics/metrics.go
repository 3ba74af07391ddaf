// Package metrics holds the Prometheus collectors exposed at GET /metrics.
//
//	subgate_adapter_results_total       counter: adapter outcomes by adapter/status
//	subgate_adapter_duration_seconds    histogram: adapter latency by adapter
//	subgate_synthetic_fallbacks_total   counter: resolutions served from the synthetic fallback
//	subgate_artifact_fetches_total      counter: artifact fetches by outcome
//	subgate_http_requests_total         counter: HTTP requests by route/method/status
//	subgate_http_request_duration_secs  histogram: HTTP latency by route
//	subgate_upstream_up                 gauge: last probe result per upstream
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Artifact fetch outcomes.
const (
	FetchRemote      = "remote"
	FetchGenerated   = "generated"
	FetchPlaceholder = "placeholder"
)

var AdapterResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subgate_adapter_results_total",
	Help: "Subtitle adapter outcomes by adapter and status.",
}, []string{"adapter", "status"})

var AdapterDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "subgate_adapter_duration_seconds",
	Help:    "Subtitle adapter latency in seconds.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
}, []string{"adapter"})

var SyntheticFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subgate_synthetic_fallbacks_total",
	Help: "Resolutions answered with synthetic placeholder records.",
})

var ArtifactFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subgate_artifact_fetches_total",
	Help: "Artifact fetches by outcome.",
}, []string{"outcome"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subgate_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"route", "method", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "subgate_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"route"})

var UpstreamUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "subgate_upstream_up",
	Help: "1 if the last probe of the upstream succeeded, 0 otherwise.",
}, []string{"upstream"})

// ObserveAdapter records one settled adapter run.
func ObserveAdapter(adapter, status string, d time.Duration) {
	AdapterResults.WithLabelValues(adapter, status).Inc()
	AdapterDuration.WithLabelValues(adapter).Observe(d.Seconds())
}

func SetUpstreamUp(upstream string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	UpstreamUp.WithLabelValues(upstream).Set(v)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency, labelled by the matched
// mux route template to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
