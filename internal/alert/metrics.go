package alert

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/alertrix/alertrix/internal/alert"

// Metrics holds the sweep instruments.
type Metrics struct {
	sweepDuration metric.Float64Histogram
	evaluated     metric.Int64Counter
	triggered     metric.Int64Counter
	failed        metric.Int64Counter
}

// NewMetrics creates the sweep instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	sweepDuration, err := meter.Float64Histogram(
		"alertrix.sweep.duration",
		metric.WithDescription("Duration of alert evaluation sweeps in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	evaluated, err := meter.Int64Counter(
		"alertrix.alerts.evaluated",
		metric.WithDescription("Alerts evaluated against current weather"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	triggered, err := meter.Int64Counter(
		"alertrix.alerts.triggered",
		metric.WithDescription("Alerts that newly triggered"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	failed, err := meter.Int64Counter(
		"alertrix.alerts.failed",
		metric.WithDescription("Alerts whose evaluation failed"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sweepDuration: sweepDuration,
		evaluated:     evaluated,
		triggered:     triggered,
		failed:        failed,
	}, nil
}

func (m *Metrics) recordSweep(ctx context.Context, res *SweepResult) {
	if m == nil {
		return
	}
	m.sweepDuration.Record(ctx, res.Duration.Seconds())
	m.evaluated.Add(ctx, int64(res.Evaluated))
	m.triggered.Add(ctx, int64(res.Triggered))
	m.failed.Add(ctx, int64(res.Failed))
}
