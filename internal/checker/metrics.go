package checker

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "spelgud.checker"

// Instrument names.
const (
	MetricCheckDuration = "spelgud_check_duration_seconds"
	MetricCheckTotal    = "spelgud_check_total"
	MetricSpawnTotal    = "spelgud_checker_spawns_total"
)

// Values of the "outcome" attribute on MetricCheckTotal.
const (
	OutcomeCorrect     = "correct"
	OutcomeUnknown     = "unknown"
	OutcomeMalformed   = "malformed"
	OutcomeUnavailable = "unavailable"
	OutcomeCancelled   = "cancelled"
)

type pipeMetrics struct {
	checkLatency metric.Float64Histogram
	checkTotal   metric.Int64Counter
	spawnTotal   metric.Int64Counter
}

// newPipeMetrics creates the checker instruments on mp, falling back to the
// global provider. Instruments that fail to register are replaced by no-ops.
func newPipeMetrics(mp metric.MeterProvider) *pipeMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	var nop noop.Meter
	m := &pipeMetrics{}

	var err error
	m.checkLatency, err = meter.Float64Histogram(
		MetricCheckDuration,
		metric.WithDescription("Duration of single-word checker requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		m.checkLatency, _ = nop.Float64Histogram(MetricCheckDuration)
	}

	m.checkTotal, err = meter.Int64Counter(
		MetricCheckTotal,
		metric.WithDescription("Checker requests by outcome"),
	)
	if err != nil {
		otel.Handle(err)
		m.checkTotal, _ = nop.Int64Counter(MetricCheckTotal)
	}

	m.spawnTotal, err = meter.Int64Counter(
		MetricSpawnTotal,
		metric.WithDescription("Checker process starts"),
	)
	if err != nil {
		otel.Handle(err)
		m.spawnTotal, _ = nop.Int64Counter(MetricSpawnTotal)
	}
	return m
}

func outcomeFor(v Verdict, err error) string {
	switch {
	case err == nil && v.Correct:
		return OutcomeCorrect
	case err == nil:
		return OutcomeUnknown
	case errors.Is(err, ErrMalformedReply):
		return OutcomeMalformed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeUnavailable
	}
}

func (m *pipeMetrics) recordCheck(ctx context.Context, backend string, d time.Duration, outcome string) {
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	)
	m.checkLatency.Record(ctx, d.Seconds(), attrs)
	m.checkTotal.Add(ctx, 1, attrs)
}

func (m *pipeMetrics) recordSpawn(ctx context.Context, backend string, success bool) {
	m.spawnTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("success", success),
	))
}
