// Package metrics exposes prometheus registries for the api and worker
// binaries. Each binary carries its own registry so /metrics never mixes
// the two.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ca"

// HTTPServerMetrics covers the api binary: request-level metrics plus the
// domain counters for ingestion, URL fetching and image analysis.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ingestFilesTotal *prometheus.CounterVec
	ingestDuration   *prometheus.HistogramVec
	ingestFileBytes  *prometheus.HistogramVec
	fetchTotal       *prometheus.CounterVec
	visionTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"service", "method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		ingestFilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total ingested files by media family and outcome.",
		}, []string{"service", "family", "outcome"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "file_duration_seconds",
			Help:      "Per-file ingestion duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "family"}),
		ingestFileBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "file_bytes",
			Help:      "Distribution of ingested file sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"service", "family"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "urls_total",
			Help:      "Total URL fetch attempts by outcome.",
		}, []string{"service", "outcome"}),
		visionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vision",
			Name:      "analyses_total",
			Help:      "Total vision-model image analyses by outcome.",
		}, []string{"service", "outcome"}),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.ingestFilesTotal,
		m.ingestDuration,
		m.ingestFileBytes,
		m.fetchTotal,
		m.visionTotal,
	)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses key-carrying routes so label cardinality stays
// bounded no matter how many blobs or chats exist.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/blobs/"):
		return "/v1/blobs/{key}"
	case strings.HasPrefix(path, "/v1/chats/"):
		return "/v1/chats/{chat_id}"
	case strings.HasPrefix(path, "/v1/collection/"):
		return "/v1/collection/{chat_id}"
	case strings.HasPrefix(path, "/v1/bin/"):
		return "/v1/bin/{chat_id}"
	}
	return path
}

func (m *HTTPServerMetrics) RecordIngestedFile(service, family, outcome string, sizeBytes int64, duration time.Duration) {
	if family == "" {
		family = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.ingestFilesTotal.WithLabelValues(service, family, outcome).Inc()
	m.ingestDuration.WithLabelValues(service, family).Observe(duration.Seconds())
	if sizeBytes > 0 {
		m.ingestFileBytes.WithLabelValues(service, family).Observe(float64(sizeBytes))
	}
}

func (m *HTTPServerMetrics) RecordURLFetch(service string, err error) {
	m.fetchTotal.WithLabelValues(service, outcomeLabel(err)).Inc()
}

func (m *HTTPServerMetrics) RecordVisionAnalysis(service string, err error) {
	m.visionTotal.WithLabelValues(service, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not implement http.Hijacker")
	}
	return h.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	p, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return p.Push(target, opts)
}
