// Package telemetry bootstraps OpenTelemetry trace and log export. Scope and
// migration spans use the global tracer provider installed here, and the log
// provider feeds slog through the otelslog bridge.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/amp-uow/config"
	"github.com/amp-labs/amp-uow/logger"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Enabled        bool
	Timeout        time.Duration
}

// FromConfig derives the telemetry settings from the runtime config.
func FromConfig(cfg *config.Config, environment string) *Config {
	return &Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: defaultServiceVersion,
		Environment:    environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Timeout:        defaultTimeout,
	}
}

// Providers holds the installed providers. The zero value is a disabled
// setup on which every method is a no-op.
type Providers struct {
	name   string
	tracer *sdktrace.TracerProvider
	logs   *sdklog.LoggerProvider
}

// Enabled reports whether export was set up.
func (p *Providers) Enabled() bool {
	return p != nil && p.tracer != nil
}

// Initialize sets up trace and log export and installs the global tracer
// provider and propagator. Export stays disabled when cfg disables it or
// names no endpoint.
func Initialize(ctx context.Context, cfg *Config) (*Providers, error) {
	if !cfg.Enabled {
		logger.Get(ctx).Info("OpenTelemetry is disabled")

		return &Providers{}, nil
	}

	if cfg.Endpoint == "" {
		logger.Get(ctx).Warn("OpenTelemetry endpoint not configured, export will be disabled")

		return &Providers{}, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(cfg.Endpoint),
		otlploghttp.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	providers := &Providers{
		name: cfg.ServiceName,
		tracer: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		),
		logs: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		),
	}

	otel.SetTracerProvider(providers.tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Get(ctx).Info("OpenTelemetry initialized",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint,
	)

	return providers, nil
}

// LogHandler returns a slog handler exporting records, or nil when export
// is disabled. Pass it to logger.WithHandlers.
func (p *Providers) LogHandler() slog.Handler {
	if !p.Enabled() {
		return nil
	}

	return otelslog.NewHandler(p.name, otelslog.WithLoggerProvider(p.logs))
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	logger.Get(ctx).Info("Shutting down OpenTelemetry providers")

	return errors.Join(p.tracer.Shutdown(ctx), p.logs.Shutdown(ctx))
}
