package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/0xc0d3d00d/candlesync"

// Metrics counts the outcome of one ingestion run. A run is a short lived
// process, so the counters are pushed to a Pushgateway rather than scraped.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	candlesFetched  otelmetric.Int64Counter
	recordsInserted otelmetric.Int64Counter
	recordsFailed   otelmetric.Int64Counter
}

func New(registry *prometheus.Registry) (*Metrics, error) {
	// OpenTelemetry metrics exported through the prometheus registry
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	m := &Metrics{
		registry: registry,
		provider: provider,
	}

	m.candlesFetched, err = meter.Int64Counter("candlesync.candles.fetched",
		otelmetric.WithDescription("Candles returned by the market data API"))
	if err != nil {
		return nil, err
	}

	m.recordsInserted, err = meter.Int64Counter("candlesync.records.inserted",
		otelmetric.WithDescription("Candle records created in the store"))
	if err != nil {
		return nil, err
	}

	m.recordsFailed, err = meter.Int64Counter("candlesync.records.failed",
		otelmetric.WithDescription("Candle records the store refused or never received"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) CandlesFetched(ctx context.Context, symbol string, count int) {
	m.candlesFetched.Add(ctx, int64(count), symbolAttr(symbol))
}

func (m *Metrics) RecordInserted(ctx context.Context, symbol string) {
	m.recordsInserted.Add(ctx, 1, symbolAttr(symbol))
}

func (m *Metrics) RecordFailed(ctx context.Context, symbol string) {
	m.recordsFailed.Add(ctx, 1, symbolAttr(symbol))
}

// Push replaces the metrics of job on the Pushgateway at url.
func (m *Metrics) Push(ctx context.Context, url string, job string) error {
	err := push.New(url, job).Gatherer(m.registry).PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func symbolAttr(symbol string) otelmetric.AddOption {
	return otelmetric.WithAttributes(attribute.String("symbol", symbol))
}
