// Package observability provides Prometheus metrics for the streamable HTTP
// transport: request latency, active stream counts, reconnection attempts,
// and auth challenges.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures a MetricsProvider.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string

	MetricsPath string // default: /metrics
	MetricsPort int    // default: 9090

	Namespace        string // default: mcp_streamable_http
	HistogramBuckets []float64

	ConstLabels prometheus.Labels
}

// MetricsProvider records transport-level operations.
type MetricsProvider interface {
	// RecordSend records the outcome of a single dispatched request or
	// notification, keyed by JSON-RPC method and terminal status
	// ("ok", "http_error", "unauthorized", "unexpected_content_type").
	RecordSend(ctx context.Context, method, status string, duration time.Duration)

	// RecordStreamOpened increments the active-stream gauge for kind
	// ("request" or "standalone").
	RecordStreamOpened(kind string)

	// RecordStreamClosed decrements the active-stream gauge for kind.
	RecordStreamClosed(kind string)

	// RecordReconnectAttempt records one resumption attempt at the given
	// backoff delay, keyed by outcome ("scheduled", "exhausted").
	RecordReconnectAttempt(outcome string, delay time.Duration)

	// RecordAuthChallenge records a 401 response and how it was resolved
	// ("refreshed", "redirected", "unresolved").
	RecordAuthChallenge(outcome string)

	// RecordSessionState sets the current session gauge: 1 if a session id
	// is held, 0 once it has been cleared by TerminateSession.
	RecordSessionState(active bool)

	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using
// github.com/prometheus/client_golang.
type PrometheusMetricsProvider struct {
	config MetricsConfig
	server *http.Server

	sendDuration      *prometheus.HistogramVec
	sendTotal         *prometheus.CounterVec
	activeStreams     *prometheus.GaugeVec
	reconnectAttempts *prometheus.CounterVec
	reconnectDelay    prometheus.Histogram
	authChallenges    *prometheus.CounterVec
	sessionActive     prometheus.Gauge
}

// NewMetricsProvider builds and registers a PrometheusMetricsProvider.
func NewMetricsProvider(config MetricsConfig) (MetricsProvider, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp_streamable_http"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}
	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	if config.ServiceName != "" {
		config.ConstLabels["service"] = config.ServiceName
	}
	if config.ServiceVersion != "" {
		config.ConstLabels["version"] = config.ServiceVersion
	}

	p := &PrometheusMetricsProvider{config: config}
	p.initMetrics()
	if err := p.register(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return p, nil
}

func (p *PrometheusMetricsProvider) initMetrics() {
	p.sendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   p.config.Namespace,
		Name:        "send_duration_milliseconds",
		Help:        "Duration of dispatched JSON-RPC sends in milliseconds",
		Buckets:     p.config.HistogramBuckets,
		ConstLabels: p.config.ConstLabels,
	}, []string{"method", "status"})

	p.sendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   p.config.Namespace,
		Name:        "send_total",
		Help:        "Total number of dispatched JSON-RPC sends",
		ConstLabels: p.config.ConstLabels,
	}, []string{"method", "status"})

	p.activeStreams = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   p.config.Namespace,
		Name:        "active_streams",
		Help:        "Number of open SSE streams",
		ConstLabels: p.config.ConstLabels,
	}, []string{"kind"})

	p.reconnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   p.config.Namespace,
		Name:        "reconnect_attempts_total",
		Help:        "Total number of SSE reconnection attempts",
		ConstLabels: p.config.ConstLabels,
	}, []string{"outcome"})

	p.reconnectDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   p.config.Namespace,
		Name:        "reconnect_delay_milliseconds",
		Help:        "Backoff delay chosen before a reconnection attempt",
		Buckets:     p.config.HistogramBuckets,
		ConstLabels: p.config.ConstLabels,
	})

	p.authChallenges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   p.config.Namespace,
		Name:        "auth_challenges_total",
		Help:        "Total number of 401 responses observed, by resolution",
		ConstLabels: p.config.ConstLabels,
	}, []string{"outcome"})

	p.sessionActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   p.config.Namespace,
		Name:        "session_active",
		Help:        "1 if the transport currently holds a session id",
		ConstLabels: p.config.ConstLabels,
	})
}

func (p *PrometheusMetricsProvider) register() error {
	collectors := []prometheus.Collector{
		p.sendDuration, p.sendTotal, p.activeStreams,
		p.reconnectAttempts, p.reconnectDelay, p.authChallenges, p.sessionActive,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func (p *PrometheusMetricsProvider) RecordSend(_ context.Context, method, status string, duration time.Duration) {
	p.sendDuration.WithLabelValues(method, status).Observe(float64(duration.Milliseconds()))
	p.sendTotal.WithLabelValues(method, status).Inc()
}

func (p *PrometheusMetricsProvider) RecordStreamOpened(kind string) {
	p.activeStreams.WithLabelValues(kind).Inc()
}

func (p *PrometheusMetricsProvider) RecordStreamClosed(kind string) {
	p.activeStreams.WithLabelValues(kind).Dec()
}

func (p *PrometheusMetricsProvider) RecordReconnectAttempt(outcome string, delay time.Duration) {
	p.reconnectAttempts.WithLabelValues(outcome).Inc()
	p.reconnectDelay.Observe(float64(delay.Milliseconds()))
}

func (p *PrometheusMetricsProvider) RecordAuthChallenge(outcome string) {
	p.authChallenges.WithLabelValues(outcome).Inc()
}

func (p *PrometheusMetricsProvider) RecordSessionState(active bool) {
	if active {
		p.sessionActive.Set(1)
	} else {
		p.sessionActive.Set(0)
	}
}

func (p *PrometheusMetricsProvider) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.Handler())
	p.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler: mux,
	}
	go func() {
		_ = p.server.ListenAndServe()
	}()
	return nil
}

func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}

// NoopMetricsProvider discards every recording. Used as the default when no
// MetricsProvider is supplied via WithMetrics.
type NoopMetricsProvider struct{}

func (NoopMetricsProvider) RecordSend(context.Context, string, string, time.Duration) {}
func (NoopMetricsProvider) RecordStreamOpened(string)                                 {}
func (NoopMetricsProvider) RecordStreamClosed(string)                                 {}
func (NoopMetricsProvider) RecordReconnectAttempt(string, time.Duration)              {}
func (NoopMetricsProvider) RecordAuthChallenge(string)                                {}
func (NoopMetricsProvider) RecordSessionState(bool)                                   {}
func (NoopMetricsProvider) Start(context.Context) error                              { return nil }
func (NoopMetricsProvider) Shutdown(context.Context) error                           { return nil }
