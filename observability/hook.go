// Package observability provides an OpenTelemetry metrics hook. Register
// it with the engine to track fire rates, retry counts, failures, and
// schedules reaching a terminal state.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Legatia/DeFlow-sub000/hook"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

const meterName = "github.com/Legatia/DeFlow-sub000/observability"

// Compile-time interface checks.
var (
	_ hook.Hook              = (*MetricsHook)(nil)
	_ hook.ScheduleFired     = (*MetricsHook)(nil)
	_ hook.ScheduleRetrying  = (*MetricsHook)(nil)
	_ hook.ScheduleFailed    = (*MetricsHook)(nil)
	_ hook.ScheduleTerminal  = (*MetricsHook)(nil)
	_ hook.ScheduleCompleted = (*MetricsHook)(nil)
)

// MetricsHook records schedule lifecycle metrics. Every instrument carries
// a "mode" attribute so dashboards can split one-time, recurring, and cron
// traffic.
type MetricsHook struct {
	fires        metric.Int64Counter
	retries      metric.Int64Counter
	failures     metric.Int64Counter
	completions  metric.Int64Counter
	terminal     metric.Int64Counter
	fireDuration metric.Float64Histogram
}

// NewMetricsHook creates a MetricsHook on the global meter provider.
func NewMetricsHook() (*MetricsHook, error) {
	return NewMetricsHookWithMeter(otel.GetMeterProvider().Meter(meterName))
}

// NewMetricsHookWithMeter creates a MetricsHook with the provided meter.
// Tests pass a meter backed by a manual reader.
func NewMetricsHookWithMeter(meter metric.Meter) (*MetricsHook, error) {
	m := &MetricsHook{}
	var err error

	if m.fires, err = meter.Int64Counter("deflow.schedule.fires",
		metric.WithDescription("Successful schedule trigger dispatches"),
	); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter("deflow.schedule.retries",
		metric.WithDescription("Trigger failures queued for retry"),
	); err != nil {
		return nil, err
	}
	if m.failures, err = meter.Int64Counter("deflow.schedule.failures",
		metric.WithDescription("Schedules failed terminally"),
	); err != nil {
		return nil, err
	}
	if m.completions, err = meter.Int64Counter("deflow.schedule.completions",
		metric.WithDescription("Schedules completed"),
	); err != nil {
		return nil, err
	}
	if m.terminal, err = meter.Int64Counter("deflow.schedule.terminal",
		metric.WithDescription("Schedules reaching any terminal status"),
	); err != nil {
		return nil, err
	}
	if m.fireDuration, err = meter.Float64Histogram("deflow.schedule.fire.duration",
		metric.WithDescription("Trigger dispatch duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Name implements hook.Hook.
func (m *MetricsHook) Name() string { return "observability-metrics" }

// OnScheduleFired implements hook.ScheduleFired.
func (m *MetricsHook) OnScheduleFired(ctx context.Context, s *schedule.Schedule, elapsed time.Duration) error {
	m.fires.Add(ctx, 1, modeAttr(s))
	m.fireDuration.Record(ctx, elapsed.Seconds(), modeAttr(s))
	return nil
}

// OnScheduleRetrying implements hook.ScheduleRetrying.
func (m *MetricsHook) OnScheduleRetrying(ctx context.Context, s *schedule.Schedule, _ int, _ time.Time) error {
	m.retries.Add(ctx, 1, modeAttr(s))
	return nil
}

// OnScheduleCompleted implements hook.ScheduleCompleted.
func (m *MetricsHook) OnScheduleCompleted(ctx context.Context, s *schedule.Schedule) error {
	m.completions.Add(ctx, 1, modeAttr(s))
	return nil
}

// OnScheduleFailed implements hook.ScheduleFailed.
func (m *MetricsHook) OnScheduleFailed(ctx context.Context, s *schedule.Schedule, _ error) error {
	m.failures.Add(ctx, 1, modeAttr(s))
	return nil
}

// OnScheduleTerminal implements hook.ScheduleTerminal.
func (m *MetricsHook) OnScheduleTerminal(ctx context.Context, s *schedule.Schedule) error {
	m.terminal.Add(ctx, 1, modeAttr(s))
	return nil
}

func modeAttr(s *schedule.Schedule) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("mode", s.Spec.Mode.String()))
}
