// Package events publishes alert-triggered events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/notify"
)

// DefaultTopic is the topic alert events are written to.
const DefaultTopic = "alert-triggered"

// Writer is the subset of kafka.Writer used by KafkaHandler.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertTriggered is the event payload.
type AlertTriggered struct {
	AlertID      string    `json:"alert_id"`
	Name         string    `json:"name"`
	Severity     string    `json:"severity"`
	Parameter    string    `json:"parameter"`
	Operator     string    `json:"operator"`
	Threshold    float64   `json:"threshold"`
	CurrentValue *float64  `json:"current_value,omitempty"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Units        string    `json:"units"`
	Recipients   int       `json:"recipients"`
	TriggeredAt  time.Time `json:"triggered_at"`
}

// NewAlertTriggered builds the event for n.
func NewAlertTriggered(n alert.Notification) AlertTriggered {
	ev := AlertTriggered{
		AlertID:     n.Alert.ID,
		Name:        n.Alert.Name,
		Severity:    string(n.Severity),
		Parameter:   string(n.Alert.Condition.Parameter),
		Operator:    string(n.Alert.Condition.Operator),
		Threshold:   n.Alert.Condition.Value,
		Lat:         n.Alert.Location.Lat,
		Lon:         n.Alert.Location.Lon,
		Units:       string(n.Alert.Units),
		Recipients:  len(n.Alert.Emails),
		TriggeredAt: n.Timestamp,
	}
	if v, ok := n.CurrentValue(); ok {
		ev.CurrentValue = &v
	}
	return ev
}

// KafkaConfig configures a KafkaHandler.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

// KafkaHandler writes one event per trigger, keyed by alert id so events for
// the same alert stay ordered within a partition.
type KafkaHandler struct {
	writer Writer
	topic  string
	logger zerolog.Logger
}

var _ notify.Handler[alert.Notification] = (*KafkaHandler)(nil)

// NewKafkaHandler creates a handler backed by a kafka.Writer.
func NewKafkaHandler(cfg KafkaConfig) (*KafkaHandler, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := cfg.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: timeout,
		MaxAttempts:  3,
	}
	return NewKafkaHandlerWithWriter(w, topic, cfg.Logger), nil
}

// NewKafkaHandlerWithWriter creates a handler over an existing writer.
func NewKafkaHandlerWithWriter(w Writer, topic string, logger zerolog.Logger) *KafkaHandler {
	return &KafkaHandler{
		writer: w,
		topic:  topic,
		logger: logger.With().Str("component", "kafka_events").Str("topic", topic).Logger(),
	}
}

// Handle implements notify.Handler.
func (h *KafkaHandler) Handle(ctx context.Context, n alert.Notification) error {
	ev := NewAlertTriggered(n)
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.AlertID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("alert.triggered")},
			{Key: "severity", Value: []byte(ev.Severity)},
		},
		Time: ev.TriggeredAt,
	}

	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", h.topic, err)
	}

	h.logger.Debug().Str("alert_id", ev.AlertID).Msg("alert event published")
	return nil
}

// Close flushes and closes the writer.
func (h *KafkaHandler) Close() error {
	return h.writer.Close()
}
