package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const namespace = "divinegpt"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rateLimited     *prometheus.CounterVec

	answerRequestsTotal *prometheus.CounterVec
	recoveryStageTotal  *prometheus.CounterVec
	fallbackTotal       *prometheus.CounterVec
	retrievedPassages   *prometheus.HistogramVec
	answerDuration      *prometheus.HistogramVec
	breakerState        *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rateLimited := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)
	answerRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "requests_total",
			Help:      "Answered requests by path (conversational or rag) and corpus selector.",
		},
		[]string{"service", "path", "corpus"},
	)
	recoveryStageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "recovery_stage_total",
			Help:      "Answers by the recovery stage that produced them.",
		},
		[]string{"service", "stage"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "fallback_total",
			Help:      "Answers served from the fallback answer, by reason.",
		},
		[]string{"service", "reason"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "retrieved_passages",
			Help:      "Passages retrieved per answered request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "path"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "Answer duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "path"},
	)
	breakerState := newBreakerStateGauge()

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rateLimited,
		answerRequestsTotal,
		recoveryStageTotal,
		fallbackTotal,
		retrievedPassages,
		answerDuration,
		breakerState,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		rateLimited:         rateLimited,
		answerRequestsTotal: answerRequestsTotal,
		recoveryStageTotal:  recoveryStageTotal,
		fallbackTotal:       fallbackTotal,
		retrievedPassages:   retrievedPassages,
		answerDuration:      answerDuration,
		breakerState:        breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/datasets/"):
		return "/v1/datasets/{dataset_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRateLimited(path string) {
	m.rateLimited.WithLabelValues(m.service, normalizePath(path)).Inc()
}

// ObserveAnswer implements ports.AnswerObserver.
func (m *HTTPServerMetrics) ObserveAnswer(obs ports.AnswerObservation) {
	corpus := obs.Corpus
	if corpus == "" {
		corpus = "unknown"
	}
	m.answerRequestsTotal.WithLabelValues(m.service, obs.Path, corpus).Inc()
	if obs.RecoveryStage != "" {
		m.recoveryStageTotal.WithLabelValues(m.service, obs.RecoveryStage).Inc()
	}
	if obs.Fallback {
		m.fallbackTotal.WithLabelValues(m.service, strings.TrimPrefix(obs.RecoveryStage, "fallback_")).Inc()
	}
	m.retrievedPassages.WithLabelValues(m.service, obs.Path).Observe(float64(obs.Passages))
	m.answerDuration.WithLabelValues(m.service, obs.Path).Observe(obs.Duration.Seconds())
}

// ObserveBreakerState matches resilience.StateObserver.
func (m *HTTPServerMetrics) ObserveBreakerState(operation, _, to string) {
	setBreakerState(m.breakerState, operation, to)
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
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
