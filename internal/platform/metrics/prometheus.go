package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds custom Prometheus metrics.
type MetricsManager struct {
	Registry            *prometheus.Registry
	DomainEventsTotal   *prometheus.CounterVec   // by event subject and publish outcome
	HTTPRequestsTotal   *prometheus.CounterVec   // by method, route and status class
	HTTPErrorsTotal     *prometheus.CounterVec   // by route and error kind
	HTTPRequestLatency  *prometheus.HistogramVec // by method and route
	LiveFeedConnections prometheus.Gauge
}

// NewMetricsManager initializes and registers the service metrics on a
// dedicated registry.
func NewMetricsManager(serviceName string) *MetricsManager {
	namespace := strings.ReplaceAll(serviceName, "-", "_")
	registry := prometheus.NewRegistry()

	domainEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_events_total",
		Help:      "Domain events emitted after successful mutations.",
	}, []string{"subject", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"method", "route", "status"})
	apiErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_errors_total",
		Help:      "Total number of API errors by route and kind.",
	}, []string{"route", "error_type"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_latency_seconds",
		Help:      "Latency of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	liveFeeds := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_feed_connections",
		Help:      "Open conversation live feed websockets.",
	})

	registry.MustRegister(
		domainEvents,
		requests,
		apiErrors,
		latency,
		liveFeeds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:            registry,
		DomainEventsTotal:   domainEvents,
		HTTPRequestsTotal:   requests,
		HTTPErrorsTotal:     apiErrors,
		HTTPRequestLatency:  latency,
		LiveFeedConnections: liveFeeds,
	}
}

// ObserveRequest records one finished HTTP request.
func (m *MetricsManager) ObserveRequest(method, route string, status int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Inc()
	m.HTTPRequestLatency.WithLabelValues(method, route).Observe(seconds)
}

// Publisher is the event publishing port the instrumented wrapper decorates.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// InstrumentedPublisher counts every published domain event.
type InstrumentedPublisher struct {
	next    Publisher
	metrics *MetricsManager
}

// InstrumentPublisher wraps next so each Publish call is counted.
func InstrumentPublisher(next Publisher, m *MetricsManager) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, metrics: m}
}

func (p *InstrumentedPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	err := p.next.Publish(ctx, subject, data)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.DomainEventsTotal.WithLabelValues(subjectLabel(subject), outcome).Inc()
	return err
}

// subjectLabel folds per-conversation live subjects into one label value so
// the counter stays bounded.
func subjectLabel(subject string) string {
	tokens := strings.Split(subject, ".")
	if len(tokens) == 4 && tokens[0] == "garala" && tokens[1] == "conversations" && tokens[3] == "messages" {
		return "garala.conversations.*.messages"
	}
	return subject
}

// NewMetricsServer builds the HTTP server that exposes /metrics for registry.
func NewMetricsServer(port string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
}

// StartMetricsServer serves Prometheus metrics until the server is closed.
func StartMetricsServer(server *http.Server, appLogger *logger.Logger) error {
	if server == nil {
		appLogger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}
	appLogger.Info("Prometheus metrics server starting", zap.String("addr", server.Addr), zap.String("path", "/metrics"))
	return server.ListenAndServe()
}
