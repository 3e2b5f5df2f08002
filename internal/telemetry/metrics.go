package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const exportInterval = 10 * time.Second

// Instruments holds the counters and histograms the service records.
// Until InitMetrics runs they are bound to the no-op global meter.
type Instruments struct {
	Assessments  metric.Int64Counter     // by outcome: ok, invalid, unavailable, error
	ModelLatency metric.Float64Histogram // ms per Predict call
	ModelReloads metric.Int64Counter     // by outcome: loaded, unchanged, error
}

func NewInstruments() Instruments {
	meter := otel.Meter(scopeName)

	var inst Instruments
	inst.Assessments, _ = meter.Int64Counter("cardio_assessments_total",
		metric.WithDescription("Assessments handled, by outcome"))
	inst.ModelLatency, _ = meter.Float64Histogram("cardio_model_latency_ms",
		metric.WithDescription("Model inference latency"),
		metric.WithUnit("ms"))
	inst.ModelReloads, _ = meter.Int64Counter("cardio_model_reloads_total",
		metric.WithDescription("Model artifact load attempts, by outcome"))
	return inst
}

// InitMetrics pushes the instruments to the collector every exportInterval.
// Instruments created before the call pick up the new provider because the
// global meter delegates.
func InitMetrics(ctx context.Context, service string) Shutdown {
	endpoint := collectorEndpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	exporter, err := otlpmetricgrpc.New(dialCtx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithDialOption(plaintext()),
	)
	if err != nil {
		slog.Warn("metrics export disabled", "endpoint", endpoint, "error", err)
		return noopShutdown
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
		sdkmetric.WithResource(serviceResource(service)),
	)
	otel.SetMeterProvider(provider)
	slog.Info("metrics export enabled", "endpoint", endpoint, "interval", exportInterval)
	return provider.Shutdown
}
