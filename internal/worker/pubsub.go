package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// DefaultMaxJobAge is how old a job may be before it is dropped unrun.
const DefaultMaxJobAge = 15 * time.Minute

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor

	// MaxJobAge drops jobs published longer ago than this; a later sweep
	// has covered them already. Default: DefaultMaxJobAge.
	MaxJobAge time.Duration

	Logger zerolog.Logger
}

// PubSubHandler feeds subscription messages to a Processor.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	processor    *Processor
	maxAge       time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// settler is the ack surface of a received message.
type settler interface {
	Ack()
	Nack()
}

// NewPubSubHandler connects to Pub/Sub. Receiving starts with Start.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	sub := client.Subscriber(cfg.SubscriptionName)
	// Sweeps fan out internally, so jobs are taken one at a time.
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.MaxExtension = 10 * time.Minute

	h := newHandler(cfg.Processor, cfg.MaxJobAge, cfg.Logger)
	h.client = client
	h.subscriber = sub
	h.subscription = cfg.SubscriptionName
	return h, nil
}

func newHandler(p *Processor, maxAge time.Duration, logger zerolog.Logger) *PubSubHandler {
	if maxAge <= 0 {
		maxAge = DefaultMaxJobAge
	}
	return &PubSubHandler{
		processor: p,
		maxAge:    maxAge,
		now:       time.Now,
		logger:    logger.With().Str("component", "pubsub").Logger(),
	}
}

// Start receives until ctx is cancelled and returns after in-flight jobs
// are settled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscription).Msg("receiving jobs")
	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().Str("message_id", msg.ID).Logger()
		if msg.DeliveryAttempt != nil {
			logger = logger.With().Int("delivery_attempt", *msg.DeliveryAttempt).Logger()
		}
		h.settle(logger.WithContext(ctx), msg.PublishTime, msg.Data, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) settle(ctx context.Context, published time.Time, data []byte, m settler) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &h.logger
	}

	if age := h.now().Sub(published); !published.IsZero() && age > h.maxAge {
		logger.Warn().Dur("age", age).Msg("dropping stale job")
		m.Ack()
		return
	}

	start := h.now()
	outcome := h.processor.Process(ctx, data)
	if outcome == Nack {
		m.Nack()
	} else {
		m.Ack()
	}

	logger.Debug().
		Stringer("outcome", outcome).
		Dur("duration", h.now().Sub(start)).
		Msg("job settled")
}
