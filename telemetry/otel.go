// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry wires the process-wide OpenTelemetry SDK: span
// export over OTLP/gRPC, an optional console exporter for local
// development, and HTTP server instrumentation with an excluded-path
// filter.
package telemetry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc/credentials"
)

const (
	// EnvOTLPEndpoint names the standard OTLP endpoint variable honored
	// by Setup when SetupParams.OTLPEndpoint is empty.
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

	// EnvEnableConsoleExport toggles the stdout span exporter.
	EnvEnableConsoleExport = "AGENTID_OTEL_ENABLE_CONSOLE_EXPORT"
)

// SetupParams configures the OpenTelemetry SDK.
type SetupParams struct {
	// ServiceName identifies this process in exported spans.
	// Defaults to "agent-identity".
	ServiceName string

	// ServiceVersion is reported as the service version resource
	// attribute. Defaults to "dev".
	ServiceVersion string

	// OTLPEndpoint is the OTLP/gRPC collector endpoint. When empty, the
	// OTEL_EXPORTER_OTLP_ENDPOINT environment variable is consulted; if
	// that is empty too, no OTLP exporter is configured.
	OTLPEndpoint string

	// Headers are sent with every OTLP export request.
	Headers map[string]string

	// Insecure disables transport security on the OTLP connection, for
	// local collectors.
	Insecure bool

	// ConsoleExport enables the stdout span exporter. The
	// AGENTID_OTEL_ENABLE_CONSOLE_EXPORT environment variable enables
	// it as well.
	ConsoleExport bool

	// TracesSampleRate is the parent-based trace sampling ratio.
	// Defaults to 1.
	TracesSampleRate float64
}

// Setup bootstraps the OpenTelemetry pipeline and installs the global
// tracer provider and propagators. When neither an OTLP endpoint nor
// the console exporter is configured, Setup does nothing.
//
// If it does not return an error, make sure to call the returned
// shutdown function for proper cleanup.
func Setup(ctx context.Context, params SetupParams) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	endpoint := cmp.Or(params.OTLPEndpoint, os.Getenv(EnvOTLPEndpoint))
	consoleExport := params.ConsoleExport || envFlagEnabled(EnvEnableConsoleExport)
	if endpoint == "" && !consoleExport {
		slog.Debug("No exporters configured, skipping OpenTelemetry initialization")
		return shutdown, nil
	}

	serviceName := cmp.Or(params.ServiceName, "agent-identity")
	res, err := resource.New(ctx,
		resource.WithAttributes(buildResources(serviceName, params)...),
	)
	if err != nil {
		return shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var exporters []sdktrace.SpanExporter
	if endpoint != "" {
		clientOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithHeaders(params.Headers),
		}
		if params.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		} else {
			clientOpts = append(clientOpts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}

		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
		if err != nil {
			return shutdown, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporters = append(exporters, exporter)
	}
	if consoleExport {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return shutdown, fmt.Errorf("failed to create console exporter: %w", err)
		}
		exporters = append(exporters, exporter)
	}

	sampleRate := params.TracesSampleRate
	if sampleRate == 0 {
		sampleRate = 1
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
		sdktrace.WithResource(res),
	}
	for _, exporter := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tracerProvider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tracerProvider)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	for _, exporter := range exporters {
		shutdownFuncs = append(shutdownFuncs, exporter.Shutdown)
	}
	slog.Info("OpenTelemetry tracer initialized",
		slog.String("service", serviceName),
		slog.Bool("otlp", endpoint != ""),
		slog.Bool("console", consoleExport),
	)

	return shutdown, nil
}

func buildResources(serviceName string, params SetupParams) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(cmp.Or(params.ServiceVersion, "dev")),
		attribute.String("library.language", "go"),
		attribute.String("library.language.version", runtime.Version()),
		attribute.String("os.name", runtime.GOOS),
		attribute.String("os.arch", runtime.GOARCH),
	}
}

func envFlagEnabled(flag string) bool {
	v, ok := os.LookupEnv(flag)
	return ok && (v == "1" || strings.ToLower(v) == "true")
}
