package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/trendline/pkg/batch/core/config"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const moduleName = "metrics"

// Module provides the MetricRecorder and Tracer selected by surfin.observability.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)

// NewMetricRecorder builds the recorder named by cfg.Metrics.Exporter and ties
// its flush to the application lifecycle.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.ObservabilityConfig) (metrics.MetricRecorder, error) {
	switch cfg.Metrics.Exporter {
	case "", "none":
		return metrics.NewNoOpMetricRecorder(), nil

	case "prometheus":
		rec := NewPrometheusRecorder()
		if path := cfg.Metrics.TextfilePath; path != "" {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					if err := rec.WriteTextfile(path); err != nil {
						logger.Errorf("Metrics: failed to write textfile '%s': %v", path, err)
						return err
					}
					logger.Infof("Metrics: wrote Prometheus textfile '%s'.", path)
					return nil
				},
			})
		}
		return rec, nil

	case "otlp":
		exporter, err := newMetricExporter(context.Background(), cfg.Metrics.OTLP)
		if err != nil {
			return nil, exception.NewConfigurationError(moduleName, "failed to create OTLP metric exporter", err)
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
			sdkmetric.WithResource(serviceResource(cfg.Tracing.ServiceName)),
		)
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
		return NewOTelRecorder(provider)

	default:
		return nil, exception.NewConfigurationError(moduleName,
			fmt.Sprintf("unknown metrics exporter '%s'", cfg.Metrics.Exporter), nil)
	}
}

// NewTracer builds the tracer named by cfg.Tracing.Exporter.
func NewTracer(lc fx.Lifecycle, cfg *config.ObservabilityConfig) (metrics.Tracer, error) {
	switch cfg.Tracing.Exporter {
	case "", "none":
		return metrics.NewNoOpTracer(), nil

	case "otlp":
		exporter, err := newSpanExporter(context.Background(), cfg.Tracing.OTLP)
		if err != nil {
			return nil, exception.NewConfigurationError(moduleName, "failed to create OTLP trace exporter", err)
		}
		provider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(serviceResource(cfg.Tracing.ServiceName)),
		)
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
		return NewOpenTelemetryTracer(provider), nil

	default:
		return nil, exception.NewConfigurationError(moduleName,
			fmt.Sprintf("unknown tracing exporter '%s'", cfg.Tracing.Exporter), nil)
	}
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

func newMetricExporter(ctx context.Context, cfg config.OTLPConfig) (sdkmetric.Exporter, error) {
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case "", "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol '%s'", cfg.Protocol)
	}
}

func newSpanExporter(ctx context.Context, cfg config.OTLPConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case "", "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol '%s'", cfg.Protocol)
	}
}
