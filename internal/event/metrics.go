package event

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for bus metrics.
const meterName = "github.com/nerrad567/gray-logic-automation/internal/event"

// busMetrics counts published events and failed deliveries.
type busMetrics struct {
	published metric.Int64Counter
	failures  metric.Int64Counter
}

func newBusMetrics(meter metric.Meter) (*busMetrics, error) {
	published, err := meter.Int64Counter("graylogic.events.published",
		metric.WithDescription("Number of events published on the bus"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("graylogic.events.delivery_failures",
		metric.WithDescription("Number of subscriber deliveries that failed or panicked"),
	)
	if err != nil {
		return nil, err
	}

	return &busMetrics{published: published, failures: failures}, nil
}

// noopBusMetrics returns instruments that record nothing.
func noopBusMetrics() *busMetrics {
	m, _ := newBusMetrics(noop.NewMeterProvider().Meter(meterName)) //nolint:errcheck // noop meter never fails
	return m
}

func (m *busMetrics) recordPublished(kind Kind, mode string) {
	m.published.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("mode", mode),
	))
}

func (m *busMetrics) recordFailure(kind Kind) {
	m.failures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
	))
}
