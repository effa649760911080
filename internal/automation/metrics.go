package automation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for rule engine metrics.
const meterName = "github.com/nerrad567/gray-logic-automation/internal/automation"

// Execution outcomes recorded on graylogic.rules.executions.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeTimeout = "timeout"
)

type engineMetrics struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
}

func newEngineMetrics(meter metric.Meter) (*engineMetrics, error) {
	executions, err := meter.Int64Counter("graylogic.rules.executions",
		metric.WithDescription("Number of rule executions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("graylogic.rules.duration",
		metric.WithDescription("Rule execution time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &engineMetrics{executions: executions, duration: duration}, nil
}

func noopEngineMetrics() *engineMetrics {
	m, _ := newEngineMetrics(noop.NewMeterProvider().Meter(meterName)) //nolint:errcheck // noop meter never fails
	return m
}

func (m *engineMetrics) record(rule *Rule, trigger TriggerType, outcome string, elapsed time.Duration) {
	ctx := context.Background()
	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule.ID()),
		attribute.String("trigger", string(trigger)),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(
		attribute.String("trigger", string(trigger)),
	))
}
