package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Tracer is the instrumentation scope used for pipeline spans.
const Tracer = "github.com/apresai/polycast"

// TraceOptions describes the service reported on every span.
type TraceOptions struct {
	ServiceName string
	Version     string
	Environment string
	// SampleRatio is the fraction of new root traces recorded. Children
	// follow their parent's decision. Values outside (0, 1] mean 1.
	SampleRatio float64
}

func (o TraceOptions) sampler() sdktrace.Sampler {
	if o.SampleRatio <= 0 || o.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
}

func (o TraceOptions) resource() (*resource.Resource, error) {
	env := o.Environment
	if env == "" {
		env = "development"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(o.ServiceName),
			semconv.ServiceVersion(o.Version),
			semconv.DeploymentEnvironmentName(env),
		),
	)
}

// InitTracer installs a global TracerProvider exporting over OTLP gRPC to
// OTEL_EXPORTER_OTLP_ENDPOINT. Callers must Shutdown the provider.
func InitTracer(ctx context.Context, opts TraceOptions) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	res, err := opts.resource()
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(opts.sampler()),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}
