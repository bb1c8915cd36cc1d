package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the transport's tracer.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	// SampleRate is 0.0 to 1.0. Defaults to 1.0 (always sample).
	SampleRate float64

	// Exporter is where finished spans are sent. Callers that want spans to
	// leave the process (OTLP, Jaeger, stdout) supply their own exporter;
	// NewTracingProvider leaves spans unexported when nil, which is sufficient for the
	// transport's own tests and for callers that only read the current
	// span's attributes in-process.
	Exporter sdktrace.SpanExporter
}

// TracingProvider wraps an OpenTelemetry tracer scoped to the transport.
type TracingProvider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// NewTracingProvider builds a TracingProvider. It never dials a collector:
// callers that need spans exported off-process supply config.Exporter.
func NewTracingProvider(config TracingConfig) (*TracingProvider, error) {
	if config.ServiceName == "" {
		config.ServiceName = "mcp-streamable-http-client"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 1.0
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(config.SampleRate)),
	}
	if config.Exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(config.Exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	return &TracingProvider{
		tracerProvider: tp,
		tracer:         tp.Tracer("streamablehttp"),
	}, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// StartSpan starts a span for one dispatched request or stream operation.
func (tp *TracingProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, name, opts...)
}

// RecordError marks the current span as failed.
func (tp *TracingProvider) RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetAttributes adds attributes to the current span.
func (tp *TracingProvider) SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// Shutdown flushes and stops the underlying tracer provider.
func (tp *TracingProvider) Shutdown(ctx context.Context) error {
	return tp.tracerProvider.Shutdown(ctx)
}
