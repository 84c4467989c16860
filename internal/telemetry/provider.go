// Copyright 2025 Tom Barlow
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

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/tombee/bazaar"

// Config selects the telemetry exporters.
type Config struct {
	Enabled bool

	// Stdout pretty-prints spans to stderr.
	Stdout bool

	// Endpoint is an OTLP collector. URLs with an http or https scheme use
	// OTLP/HTTP; a bare host:port uses OTLP/gRPC.
	Endpoint string

	// MetricsTextfile, when set, receives the event counters in Prometheus
	// text format on Shutdown (node-exporter textfile collector).
	MetricsTextfile string

	ServiceName    string
	ServiceVersion string
}

// Providers owns the tracer and meter providers built by Init.
type Providers struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	registry       *promclient.Registry
	textfile       string
	shutdownFns    []func(context.Context) error
}

// Init builds providers from cfg. When telemetry is disabled no-op providers
// are returned and nothing is exported.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	if !cfg.Enabled {
		return &Providers{
			tracerProvider: tracenoop.NewTracerProvider(),
			meterProvider:  metricnoop.NewMeterProvider(),
		}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "bazaar"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	p := &Providers{textfile: cfg.MetricsTextfile}

	tp, err := buildTraceProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace provider: %w", err)
	}
	p.tracerProvider = tp
	p.shutdownFns = append(p.shutdownFns, tp.Shutdown)

	// A private registry keeps CLI counters out of the global default registry.
	p.registry = promclient.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(p.registry))
	if err != nil {
		return nil, fmt.Errorf("telemetry: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)
	p.meterProvider = mp
	p.shutdownFns = append(p.shutdownFns, mp.Shutdown)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return p, nil
}

func buildTraceProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporters []sdktrace.SpanExporter

	if cfg.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, exp)
	}

	if cfg.Endpoint != "" {
		exp, err := newOTLPExporter(ctx, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	for _, exp := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// newOTLPExporter picks the OTLP transport from the endpoint form.
func newOTLPExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if isHTTPEndpoint(endpoint) {
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
}

func isHTTPEndpoint(endpoint string) bool {
	if !strings.Contains(endpoint, "://") {
		return false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Tracer returns the CLI tracer.
func (p *Providers) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(instrumentationScope)
}

// Meter returns the CLI meter.
func (p *Providers) Meter() metric.Meter {
	return p.meterProvider.Meter(instrumentationScope)
}

// Sink returns an OTel-backed sink, or NopSink when telemetry is disabled.
func (p *Providers) Sink() (Sink, error) {
	if p.registry == nil {
		return NopSink{}, nil
	}
	return NewOTelSink(p.Tracer(), p.Meter())
}

// Shutdown writes the metrics textfile, if configured, then flushes and
// stops the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.textfile != "" && p.registry != nil {
		if err := promclient.WriteToTextfile(p.textfile, p.registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics textfile: %w", err))
		}
	}
	for _, fn := range p.shutdownFns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdownFns = nil
	return errors.Join(errs...)
}
