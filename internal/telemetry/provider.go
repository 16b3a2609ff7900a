// Package telemetry wires the OpenTelemetry SDK behind the tracer the
// service layer uses.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ericogr/skirmish/internal/version"
)

// Settings select where spans go. An empty Endpoint leaves tracing off.
type Settings struct {
	Endpoint    string
	Enabled     bool
	ServiceName string
}

// Setup registers a global tracer provider exporting over OTLP/HTTP.
//
// Tracing is opt-in: with no endpoint, or when disabled, Setup returns a
// no-op shutdown and the global provider stays the default no-op one.
// The returned shutdown flushes pending spans.
func Setup(ctx context.Context, s Settings) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !s.Enabled || s.Endpoint == "" {
		return noop, nil
	}
	if s.ServiceName == "" {
		s.ServiceName = "skirmish"
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(s.Endpoint))
	if err != nil {
		return noop, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(s.ServiceName),
			semconv.ServiceVersion(version.Version),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}
