package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter and optional tracer for the funnel.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
	gateOps         otelmetric.Int64Counter

	tracer *Tracer
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracer: NoopTracer(serviceName)}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"funnel.requests",
		otelmetric.WithDescription("Number of funnel API requests handled"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"funnel.request.duration",
		otelmetric.WithDescription("Funnel API request duration"),
		otelmetric.WithUnit("ms"),
	)

	gateOps, _ := meter.Int64Counter(
		"funnel.gate.operations",
		otelmetric.WithDescription("Application state gate operations by name and outcome"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		gateOps:         gateOps,
		tracer:          NoopTracer(serviceName),
	}
}

// WithTracer attaches a tracer built by NewTracer.
func (o *Observability) WithTracer(t *Tracer) *Observability {
	if t != nil {
		o.tracer = t
	}
	return o
}

func (o *Observability) Tracer() *Tracer {
	return o.tracer
}

func (o *Observability) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordGateOperation(ctx context.Context, op string, err error) {
	if o.gateOps == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.gateOps.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracer != nil {
		_ = o.tracer.Shutdown(ctx)
	}
}
