package tracer

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
)

// ServiceName identifies this process in traces.
const ServiceName = "emotion-diary-backend"

// InitTracer installs an OTLP HTTP trace exporter (Jaeger accepts OTLP on
// port 4318). It returns a shutdown function to call on exit; when tracing is
// disabled or the exporter cannot be built, shutdown is a no-op.
func InitTracer(enabled bool, log *zap.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if log == nil {
		log = zap.NewNop()
	}
	if !enabled {
		log.Info("OpenTelemetry tracing is disabled (set OTEL_ENABLED=true to enable)")
		return noop
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("failed to create OTLP exporter, tracing disabled", zap.Error(err))
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	log.Info("OpenTelemetry tracer initialized", zap.String("endpoint", endpoint))

	return tp.Shutdown
}
