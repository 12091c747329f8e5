// Package telemetry wires the OpenTelemetry trace pipeline. When an OTLP
// endpoint is configured the report spans (populate, render, pdf_task)
// are exported over gRPC; without one the global no-op provider stays in
// place and tracing costs nothing.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/duration"
)

// Options configures the exporter connection.
type Options struct {
	// Endpoint is the OTLP/gRPC collector address (e.g. "localhost:4317").
	Endpoint string

	// ServiceName overrides the resource service name. Defaults to the
	// tool name.
	ServiceName string

	// Insecure disables TLS on the collector connection.
	Insecure bool

	// Headers are added to every export request.
	Headers map[string]string
}

// Provider owns the exporter and tracer provider lifecycle. A nil
// Provider is valid and shuts down as a no-op, so callers can hold one
// unconditionally.
type Provider struct {
	tp       *sdktrace.TracerProvider
	endpoint string
}

// New connects the OTLP exporter and installs the tracer provider as the
// process-global one. The connection is established eagerly so a
// misconfigured endpoint surfaces at startup, not on the first report.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4317"
	}

	var grpcOpts []grpc.DialOption
	if opts.Insecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithDialOption(grpcOpts...),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(ctx, duration.TelemetryStartup)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	// Built without merging the default resource; mixed schema URLs make
	// the merge fail.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "reporting"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, endpoint: opts.Endpoint}, nil
}

// Endpoint returns the configured collector address.
func (p *Provider) Endpoint() string {
	if p == nil {
		return ""
	}
	return p.endpoint
}

// Shutdown flushes pending spans and stops the exporter. Bounded by the
// telemetry shutdown budget regardless of the caller's context.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, duration.TelemetryShutdown)
	defer cancel()
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
	}
	return nil
}
