package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/message"
	"github.com/alertrix/alertrix/internal/notify"
)

// AlertHandler renders a notification once and emails every recipient.
type AlertHandler struct {
	sender  Sender
	creator message.Creator
	logger  zerolog.Logger
}

var _ notify.Handler[alert.Notification] = (*AlertHandler)(nil)

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(sender Sender, creator message.Creator, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		sender:  sender,
		creator: creator,
		logger:  logger.With().Str("component", "email_handler").Logger(),
	}
}

// Handle sends to all recipients concurrently. A failed recipient is logged
// and does not affect the others; only a failure to produce the message is
// returned.
func (h *AlertHandler) Handle(ctx context.Context, n alert.Notification) error {
	msg, err := h.creator.CreateMessage(ctx, n)
	if err != nil {
		h.logger.Error().Err(err).Str("alert_id", n.Alert.ID).Str("alert_name", n.Alert.Name).Msg("failed to prepare alert notification")
		return &SystemicError{AlertID: n.Alert.ID, Err: err}
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, to := range n.Alert.Emails {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.sender.Send(ctx, Email{To: to, Subject: msg.Subject, Body: msg.Body})
			if err != nil {
				h.logger.Error().Err(err).Str("alert_id", n.Alert.ID).Str("recipient", to).Msg("failed to send alert email")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	h.logger.Info().
		Str("alert_id", n.Alert.ID).
		Int("recipients", len(n.Alert.Emails)).
		Int("failed", failed).
		Msg("alert emails dispatched")
	return nil
}
