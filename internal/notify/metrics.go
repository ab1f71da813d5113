package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/alertrix/alertrix/internal/notify"

// Metrics counts handler outcomes per channel.
type Metrics struct {
	sent     metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the notification instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	sent, err := meter.Int64Counter(
		"alertrix.notifications.sent",
		metric.WithDescription("Notifications delivered by a channel"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	failed, err := meter.Int64Counter(
		"alertrix.notifications.failed",
		metric.WithDescription("Notifications a channel failed to deliver"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"alertrix.notifications.duration",
		metric.WithDescription("Time a channel spent handling one notification in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{sent: sent, failed: failed, duration: duration}, nil
}

func (m *Metrics) record(ctx context.Context, channel string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("channel", channel))
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.failed.Add(ctx, 1, attrs)
		return
	}
	m.sent.Add(ctx, 1, attrs)
}
