package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "email").Logger()}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, e Email) error {
	if e.To == "" {
		return ErrInvalidRecipient
	}
	s.logger.Info().
		Str("recipient", e.To).
		Str("subject", e.Subject).
		Int("body_length", len(e.Body)).
		Msg("email (log transport)")
	return nil
}
