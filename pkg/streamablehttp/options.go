package streamablehttp

import (
	"net/http"
	"time"

	"github.com/modelcontext-go/streamable-transport/pkg/auth"
	"github.com/modelcontext-go/streamable-transport/pkg/logging"
	"github.com/modelcontext-go/streamable-transport/pkg/observability"
)

// Doer performs one HTTP round trip. *http.Client satisfies it directly;
// callers that need custom auth, proxying, or instrumentation on every
// request supply their own implementation via WithHTTPClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HeaderSource supplies caller headers for one request. Both a plain
// map[string]string and an http.Header satisfy it, matching §4.6's
// requirement that requestInit.headers accept either a dictionary or a
// multi-map form; mutations the caller makes to the underlying value after
// construction are visible because the transport re-reads it on every send.
type HeaderSource interface {
	ForEach(func(key, value string))
}

// StringMapHeaders adapts a map[string]string to HeaderSource.
type StringMapHeaders map[string]string

func (h StringMapHeaders) ForEach(fn func(key, value string)) {
	for k, v := range h {
		fn(k, v)
	}
}

// MultiMapHeaders adapts an http.Header (or any map[string][]string) to
// HeaderSource, preserving repeated header values.
type MultiMapHeaders http.Header

func (h MultiMapHeaders) ForEach(fn func(key, value string)) {
	for k, values := range h {
		for _, v := range values {
			fn(k, v)
		}
	}
}

// RequestInit is a template applied to every outbound request. The
// transport never mutates it and keeps the Headers value it was given;
// edits the caller makes to that value's underlying map between sends are
// picked up on the next send (§3 invariant 4, §8 property 3).
type RequestInit struct {
	Headers HeaderSource
}

// ReconnectionOptions configures the Resumption Manager (§4.4).
type ReconnectionOptions struct {
	InitialReconnectionDelay   time.Duration
	MaxReconnectionDelay       time.Duration
	ReconnectionDelayGrowFactor float64
	MaxRetries                  int
}

// DefaultReconnectionOptions returns the spec's suggested defaults.
func DefaultReconnectionOptions() ReconnectionOptions {
	return ReconnectionOptions{
		InitialReconnectionDelay:   time.Second,
		MaxReconnectionDelay:       30 * time.Second,
		ReconnectionDelayGrowFactor: 1.5,
		MaxRetries:                  2,
	}
}

// Option configures a Transport at construction time.
type Option func(*config)

type config struct {
	httpClient          Doer
	requestInit         RequestInit
	reconnectionOptions ReconnectionOptions
	authProvider        auth.OAuthClientProvider
	logger              logging.Logger
	metrics             observability.MetricsProvider
	tracing             *observability.TracingProvider
}

func defaultConfig() *config {
	return &config{
		httpClient:          http.DefaultClient,
		reconnectionOptions: DefaultReconnectionOptions(),
		logger:              logging.New(nil, nil),
		metrics:             observability.NoopMetricsProvider{},
	}
}

// WithHTTPClient overrides the Doer used to issue requests. Grounded in the
// pluggable fetch integration point of §6.2, expressed as the Go-idiomatic
// http.Client-shaped interface rather than a fetch(url, init) function.
func WithHTTPClient(client Doer) Option {
	return func(c *config) { c.httpClient = client }
}

// WithRequestInit sets the header template merged into every request.
func WithRequestInit(init RequestInit) Option {
	return func(c *config) { c.requestInit = init }
}

// WithReconnectionOptions overrides the Resumption Manager's backoff policy.
func WithReconnectionOptions(opts ReconnectionOptions) Option {
	return func(c *config) { c.reconnectionOptions = opts }
}

// WithAuthProvider installs the Auth Coordinator's OAuth provider (§6.3).
func WithAuthProvider(provider auth.OAuthClientProvider) Option {
	return func(c *config) { c.authProvider = provider }
}

// WithLogger overrides the transport's structured logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics overrides the transport's metrics sink.
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(c *config) { c.metrics = metrics }
}

// WithTracing enables span instrumentation around each dispatched HTTP
// exchange. Omitted by default so tests and simple callers pay no
// OpenTelemetry setup cost.
func WithTracing(tracing *observability.TracingProvider) Option {
	return func(c *config) { c.tracing = tracing }
}
