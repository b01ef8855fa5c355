package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig is the subset of settings the manager needs up front.
// Nested toggles (OTLP endpoint, per-metric switches) are read from the full
// config on demand.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string

	Enabled       bool
	ConsoleOutput bool
	PrettyPrint   bool
	SampleRate    float64

	Prometheus PrometheusConfig
}

// ObservabilityManager owns the process-wide OpenTelemetry providers and
// hands out tracers, HTTP middleware and the custom instrument set.
type ObservabilityManager struct {
	cfg     ObservabilityConfig
	full    *config.Config
	res     *resource.Resource
	traces  *trace.TracerProvider
	meters  *sdkmetric.MeterProvider
	metrics *Metrics
	closers []func(context.Context) error
}

// NewObservabilityManager wires up tracing and metrics according to the
// config. With Enabled false it returns an inert manager whose middleware
// and tracers are no-ops.
func NewObservabilityManager(oc ObservabilityConfig, appCfg *config.Config) (*ObservabilityManager, error) {
	o := &ObservabilityManager{cfg: oc, full: appCfg}
	if !oc.Enabled {
		return o, nil
	}

	res, err := o.buildResource()
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}
	o.res = res

	if err := o.startTracing(); err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	if err := o.startMetrics(); err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}
	return o, nil
}

// buildResource describes this process to every exporter: service name,
// version and instance id on top of the SDK defaults.
func (o *ObservabilityManager) buildResource() (*resource.Resource, error) {
	attrs := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(o.cfg.ServiceName),
		semconv.ServiceVersion(o.cfg.ServiceVersion),
		attribute.String("service.instance.id", o.instanceID()))
	return resource.Merge(resource.Default(), attrs)
}

func (o *ObservabilityManager) instanceID() string {
	if o.full != nil && o.full.Observability.ServiceInstance != "" {
		return o.full.Observability.ServiceInstance
	}
	return "ats-1"
}

func (o *ObservabilityManager) startTracing() error {
	exp, err := o.traceExporter()
	if err != nil {
		return err
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(o.res),
		trace.WithSampler(trace.TraceIDRatioBased(o.cfg.SampleRate)))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	o.traces = provider
	o.closers = append(o.closers, provider.Shutdown)
	return nil
}

// traceExporter picks the span exporter for the current environment: stdout
// during development, OTLP when an endpoint is configured, otherwise spans
// are sampled but never shipped.
func (o *ObservabilityManager) traceExporter() (trace.SpanExporter, error) {
	switch {
	case o.cfg.ConsoleOutput:
		var opts []stdouttrace.Option
		if o.cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create console span exporter: %w", err)
		}
		return exp, nil
	case o.full != nil && o.full.Observability.OTLP.Enabled:
		return o.newOTLPTraceExporter()
	default:
		return dropSpanExporter{}, nil
	}
}

func (o *ObservabilityManager) startMetrics() error {
	readers, err := o.metricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(o.res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	o.meters = provider
	o.closers = append(o.closers, provider.Shutdown)

	metrics, err := newInstruments(provider.Meter(o.cfg.ServiceName))
	if err != nil {
		return err
	}
	o.metrics = metrics
	return nil
}

// metricReaders assembles every configured export path. Console and OTLP
// push on a timer; Prometheus pulls through its own scrape endpoint on a
// dedicated port.
func (o *ObservabilityManager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if o.cfg.ConsoleOutput {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp,
			sdkmetric.WithInterval(o.collectionInterval())))
	}

	if o.full != nil && o.full.Observability.OTLP.Enabled {
		r, err := o.newOTLPMetricReader()
		if err != nil {
			return nil, err
		}
		readers = append(readers, r)
	}

	if o.cfg.Prometheus.Enabled {
		r, mux, err := SetupPrometheusExporter(o.cfg.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if r != nil {
			readers = append(readers, r)
			if err := StartPrometheusServer(mux, o.cfg.Prometheus.Port); err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
		}
	}

	// With no exporter configured a manual reader keeps the pipeline valid
	// so instrument registration still succeeds.
	if len(readers) == 0 {
		readers = []sdkmetric.Reader{sdkmetric.NewManualReader()}
	}
	return readers, nil
}

func (o *ObservabilityManager) newOTLPTraceExporter() (trace.SpanExporter, error) {
	otlp := o.full.Observability.OTLP

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
	}

	exp, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP span exporter: %w", err)
	}
	return exp, nil
}

func (o *ObservabilityManager) newOTLPMetricReader() (sdkmetric.Reader, error) {
	otlp := o.full.Observability.OTLP

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
	}

	exp, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exp,
		sdkmetric.WithInterval(o.collectionInterval())), nil
}

func (o *ObservabilityManager) collectionInterval() time.Duration {
	if o.full != nil {
		return o.full.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// GetMetrics never returns nil. When telemetry is disabled the instruments
// inside are nil and every recording method no-ops.
func (o *ObservabilityManager) GetMetrics() *Metrics {
	if o.metrics == nil {
		return &Metrics{}
	}
	return o.metrics
}

func passthroughMiddleware(h http.Handler) http.Handler { return h }

// HTTPMiddleware instruments inbound requests with traces and the standard
// HTTP server metrics.
func (o *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !o.cfg.Enabled {
		return passthroughMiddleware
	}
	return otelhttp.NewMiddleware(o.cfg.ServiceName,
		otelhttp.WithTracerProvider(o.traces),
		otelhttp.WithMeterProvider(o.meters))
}

// Tracer returns a tracer scoped to name, or a no-op tracer when telemetry
// is disabled.
func (o *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !o.cfg.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops every provider the manager started.
func (o *ObservabilityManager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, stop := range o.closers {
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dropSpanExporter discards spans when neither console nor OTLP output is
// configured.
type dropSpanExporter struct{}

func (dropSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }

func (dropSpanExporter) Shutdown(context.Context) error { return nil }
