package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	gcpdetectors "go.opentelemetry.io/contrib/detectors/gcp"
	hostMetrics "go.opentelemetry.io/contrib/instrumentation/host"
	runtimeMetrics "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
)

const (
	metricReportingPeriod = 30 * time.Second
)

// Create a new OpenTelemetry resource to describe the source of metrics and traces.
func newTelemetryResource(ctx context.Context, name string) (*resource.Resource, error) {
	logger := logger.V(1).WithValues("name", name)
	logger.Info("Creating new OpenTelemetry resource descriptor")
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for telemetry resource: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceNamespaceKey.String(PackageName),
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(version),
			semconv.ServiceInstanceIDKey.String(id.String()),
		),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithOS(),
		resource.WithProcessPID(),
		resource.WithProcessExecutableName(),
		resource.WithProcessExecutablePath(),
		resource.WithProcessCommandArgs(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithProcessRuntimeDescription(),
		// The detector is placed last to override the base service
		// attributes with specifiers from GCP, when running there.
		resource.WithDetectors(gcpdetectors.NewDetector()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create new telemetry resource: %w", err)
	}
	logger.V(1).Info("OpenTelemetry resource created", "resource", res)
	return res, nil
}

// Initialises a periodic reader that will send OpenTelemetry metrics to
// the target provided, returning a shutdown function.
func initMetrics(ctx context.Context, target string, creds credentials.TransportCredentials, res *resource.Resource) (func(context.Context) error, error) {
	logger := logger.V(1).WithValues("target", target, "res", res)
	logger.V(1).Info("Creating OpenTelemetry metric handlers")
	if target == "" {
		logger.V(0).Info("OpenTelemetry endpoint is not set; no metrics will be sent to collector")
		return func(_ context.Context) error {
			return nil
		}, nil
	}
	options := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(target),
		otlpmetricgrpc.WithCompressor(gzip.Name),
	}
	if creds != nil {
		options = append(options, otlpmetricgrpc.WithTLSCredentials(creds))
	}
	exporter, err := otlpmetricgrpc.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new metric exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(metricReportingPeriod),
		)),
	)
	if err = runtimeMetrics.Start(runtimeMetrics.WithMeterProvider(provider)); err != nil {
		return nil, fmt.Errorf("failed to start runtime metrics: %w", err)
	}
	if err = hostMetrics.Start(hostMetrics.WithMeterProvider(provider)); err != nil {
		return nil, fmt.Errorf("failed to start host metrics: %w", err)
	}

	otel.SetMeterProvider(provider)
	logger.V(1).Info("OpenTelemetry metric handlers created and started")
	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failure to shutdown meter provider: %w", err)
		}
		return nil
	}, nil
}

// Initialises a pipeline handler that will send OpenTelemetry spans to
// the target provided, returning a shutdown function.
func initTrace(ctx context.Context, target string, creds credentials.TransportCredentials, res *resource.Resource, sampler sdktrace.Sampler) (func(context.Context) error, error) {
	logger := logger.V(1).WithValues("target", target, "res", res, "sampler", sampler.Description())
	logger.V(1).Info("Creating new OpenTelemetry trace exporter")
	if target == "" {
		logger.V(0).Info("OpenTelemetry endpoint is not set; no traces will be sent to collector")
		return func(_ context.Context) error {
			return nil
		}, nil
	}
	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(target),
		otlptracegrpc.WithCompressor(gzip.Name),
	}
	if creds != nil {
		options = append(options, otlptracegrpc.WithTLSCredentials(creds))
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(options...))
	if err != nil {
		return nil, fmt.Errorf("failed to create new trace exporter: %w", err)
	}
	spanProcessor := sdktrace.NewBatchSpanProcessor(exporter)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithSpanProcessor(spanProcessor),
		sdktrace.WithResource(res),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(provider)
	logger.V(1).Info("OpenTelemetry trace handlers created and started")
	return func(ctx context.Context) error {
		if err := spanProcessor.Shutdown(ctx); err != nil {
			logger.Error(err, "Error raised while shutting down trace processor; continuing")
		}
		if err := exporter.Shutdown(ctx); err != nil {
			return fmt.Errorf("failure to shutdown trace exporter: %w", err)
		}
		return nil
	}, nil
}

// Creates the gRPC transport credentials to use with the OTLP
// collector target from the various configuration options provided.
func newOTLPCredentials() (credentials.TransportCredentials, error) {
	if viper.GetBool("otlp-insecure") {
		return insecure.NewCredentials(), nil
	}
	pool, err := newCACertPool(viper.GetStringSlice("cacert"))
	if err != nil {
		return nil, err
	}
	tlsConf, err := newTLSConfig(viper.GetString("cert"), viper.GetString("key"), nil, pool)
	if err != nil {
		return nil, err
	}
	if authority := viper.GetString("otlp-authority"); authority != "" {
		tlsConf.ServerName = authority
	}
	return credentials.NewTLS(tlsConf), nil
}

// Initializes OpenTelemetry metric and trace processing and delivery to
// a collector target, returning a function that can be called to
// shutdown the background pipeline processes.
func initTelemetry(ctx context.Context, name string, sampler sdktrace.Sampler) (func(context.Context), error) {
	target := viper.GetString("otlp-target")
	logger := logger.V(1).WithValues("name", name, "target", target, "sampler", sampler.Description())
	logger.Info("Initializing OpenTelemetry")
	creds, err := newOTLPCredentials()
	if err != nil {
		return nil, err
	}
	res, err := newTelemetryResource(ctx, name)
	if err != nil {
		return nil, err
	}
	shutdownMetrics, err := initMetrics(ctx, target, creds, res)
	if err != nil {
		return nil, err
	}
	shutdownTraces, err := initTrace(ctx, target, creds, res, sampler)
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry initialization complete, returning shutdown function")
	// Return a function that will cancel OpenTelemetry processes when called.
	return func(ctx context.Context) {
		if shutdownTraces != nil {
			if err := shutdownTraces(ctx); err != nil {
				logger.Error(err, "Error raised while shutting down tracing; continuing")
			}
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(ctx); err != nil {
				logger.Error(err, "Error raised while shutting down metrics; continuing")
			}
		}
	}, nil
}
