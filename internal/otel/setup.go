package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ServiceName = "contest-engine"

// SetupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupOTelSDK(
	ctx context.Context,
	useOTLP bool,
	component string,
) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(ServiceName),
			attribute.String("contest_engine.component", component),
		),
	)
	if err != nil {
		return func(context.Context) error { return nil }, err
	}

	// Errors from the registered cleanups are joined and each runs once
	shutdown := func(ctx context.Context) error {
		var er error
		for _, fn := range shutdownFuncs {
			er = errors.Join(er, fn(ctx))
		}
		shutdownFuncs = nil
		return er
	}

	handleErr := func(inErr error) error {
		return errors.Join(inErr, shutdown(ctx))
	}

	otel.SetTextMapPropagator(newPropagator())

	tracerProvider, err := newTracerProvider(useOTLP, res)
	if err != nil {
		return shutdown, handleErr(err)
	}
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	meterProvider, err := newMeterProvider(useOTLP, res)
	if err != nil {
		return shutdown, handleErr(err)
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	loggerProvider, err := newLoggerProvider(useOTLP, res)
	if err != nil {
		return shutdown, handleErr(err)
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	return shutdown, nil
}

//nolint:ireturn // no control over otel's propagator interface return.
func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(useOTLP bool, res *resource.Resource) (*trace.TracerProvider, error) {
	var err error
	var traceExporter trace.SpanExporter

	if useOTLP {
		traceExporter, err = otlptracegrpc.New(context.Background())
	} else {
		traceExporter, err = stdouttrace.New(stdouttrace.WithoutTimestamps())
	}
	if err != nil {
		return nil, err
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(trace.AlwaysSample())),
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	return tracerProvider, nil
}

func newMeterProvider(useOTLP bool, res *resource.Resource) (*metric.MeterProvider, error) {
	var err error
	var metricExporter metric.Exporter

	if useOTLP {
		metricExporter, err = otlpmetricgrpc.New(context.Background())
	} else {
		metricExporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
		metric.WithResource(res),
	)
	return meterProvider, nil
}

func newLoggerProvider(useOTLP bool, res *resource.Resource) (*log.LoggerProvider, error) {
	var err error
	var logExporter log.Exporter

	if useOTLP {
		logExporter, err = otlploggrpc.New(context.Background())
	} else {
		logExporter, err = stdoutlog.New()
	}
	if err != nil {
		return nil, err
	}

	loggerProvider := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
		log.WithResource(res),
	)
	return loggerProvider, nil
}
