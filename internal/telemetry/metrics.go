package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// StoreMetrics records file store operations. A nil *StoreMetrics is valid
// and records nothing.
type StoreMetrics struct {
	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

// NewStoreMetrics registers the store instruments on the global MeterProvider.
func NewStoreMetrics() (*StoreMetrics, error) {
	meter := otel.Meter("github.com/KarenYumi/OrganizationApp/repository")

	ops, err := meter.Int64Counter("store.operations",
		metric.WithDescription("File store operations by file, operation and result."),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("store.operation.duration",
		metric.WithDescription("File store operation latency."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &StoreMetrics{ops: ops, duration: duration}, nil
}

func (m *StoreMetrics) Record(ctx context.Context, file, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("file", file),
		attribute.String("op", op),
		attribute.String("result", result),
	)
	m.ops.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}
