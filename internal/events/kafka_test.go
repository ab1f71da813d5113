package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/events"
	"github.com/alertrix/alertrix/internal/weather"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func triggered() alert.Notification {
	return alert.Notification{
		Alert: alert.Alert{
			ID:        "alt_42",
			Name:      "Gusts",
			Emails:    []string{"a@example.com", "b@example.com"},
			Location:  weather.Location{Lat: 51.5, Lon: -0.12},
			Units:     weather.UnitsMetric,
			Condition: alert.Condition{Parameter: weather.ParamWindSpeed, Operator: alert.OpGreaterOrEqual, Value: 20},
		},
		Weather:   weather.Snapshot{WindSpeed: 31},
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Severity:  alert.SeverityCritical,
	}
}

func TestKafkaHandler_Handle(t *testing.T) {
	w := &fakeWriter{}
	h := events.NewKafkaHandlerWithWriter(w, events.DefaultTopic, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), triggered()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("alt_42"), msg.Key)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), msg.Time)

	var ev events.AlertTriggered
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "alt_42", ev.AlertID)
	assert.Equal(t, "critical", ev.Severity)
	assert.Equal(t, "windSpeed", ev.Parameter)
	assert.Equal(t, ">=", ev.Operator)
	assert.InDelta(t, 20.0, ev.Threshold, 1e-9)
	require.NotNil(t, ev.CurrentValue)
	assert.InDelta(t, 31.0, *ev.CurrentValue, 1e-9)
	assert.Equal(t, 2, ev.Recipients)

	require.NoError(t, h.Close())
	assert.True(t, w.closed)
}

func TestKafkaHandler_HandleError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	h := events.NewKafkaHandlerWithWriter(w, "alerts", zerolog.Nop())

	err := h.Handle(context.Background(), triggered())

	assert.ErrorContains(t, err, "publishing to alerts: leader not available")
}

func TestNewAlertTriggered_MissingValue(t *testing.T) {
	n := triggered()
	n.Alert.Condition.Parameter = weather.ParamTemperatureMin

	ev := events.NewAlertTriggered(n)

	assert.Nil(t, ev.CurrentValue)
}

func TestNewKafkaHandler_RequiresBrokers(t *testing.T) {
	_, err := events.NewKafkaHandler(events.KafkaConfig{})
	assert.Error(t, err)

	h, err := events.NewKafkaHandler(events.KafkaConfig{Brokers: []string{"localhost:9092"}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.NoError(t, h.Close())
}
