// Package email delivers alert notifications by email.
package email

import (
	"context"
	"errors"
	"html"
	"strings"
)

// ErrInvalidRecipient is returned for an empty or malformed address.
var ErrInvalidRecipient = errors.New("invalid recipient")

// Email is one outbound message to a single recipient.
type Email struct {
	To      string
	Subject string
	Body    string
}

// HTML renders Body as minimal HTML with line breaks preserved.
func (e Email) HTML() string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(e.Body), "\n", "<br>") + "</p>"
}

// Sender transmits a single email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// SystemicError marks a failure that prevented every recipient from being
// reached, as opposed to one address failing.
type SystemicError struct {
	AlertID string
	Err     error
}

func (e *SystemicError) Error() string {
	return "alert " + e.AlertID + ": notification could not be prepared: " + e.Err.Error()
}

func (e *SystemicError) Unwrap() error {
	return e.Err
}
