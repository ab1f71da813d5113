package message

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/alert"
)

// Completer produces structured JSON from a prompt and an example schema.
type Completer interface {
	Complete(ctx context.Context, prompt string, schema any) (string, error)
}

// TextGenerator produces free-form text from a prompt plus formatting
// instructions.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt, instructions string) (string, error)
}

var errMissingFields = errors.New("response missing subject or body")

var schemaHint = Message{
	Subject: "Weather Alert: High Winds in Your Area",
	Body:    "This is an example email body that would be generated based on the weather alert.",
}

const jsonInstructions = `IMPORTANT: You must respond ONLY with a valid JSON object in the following format:
{
  "subject": "Brief and informative email subject",
  "body": "The email body content with proper formatting"
}
Do not include any explanation, introduction, or additional text outside of the JSON structure.`

// LLMCreator asks a language model for the message and falls back to the
// template on any failure, so CreateMessage always returns a usable message.
type LLMCreator struct {
	generate func(ctx context.Context, prompt string) (string, error)
	// lenient backends return free-form text that may wrap the JSON.
	lenient bool
	logger  zerolog.Logger
}

// NewCompleterCreator builds a creator over a JSON-mode backend.
func NewCompleterCreator(backend string, c Completer, logger zerolog.Logger) *LLMCreator {
	return &LLMCreator{
		generate: func(ctx context.Context, prompt string) (string, error) {
			return c.Complete(ctx, prompt, schemaHint)
		},
		logger: logger.With().Str("component", "message").Str("backend", backend).Logger(),
	}
}

// NewTextCreator builds a creator over a free-form text backend.
func NewTextCreator(backend string, g TextGenerator, logger zerolog.Logger) *LLMCreator {
	return &LLMCreator{
		generate: func(ctx context.Context, prompt string) (string, error) {
			return g.GenerateText(ctx, prompt, jsonInstructions)
		},
		lenient: true,
		logger:  logger.With().Str("component", "message").Str("backend", backend).Logger(),
	}
}

// CreateMessage implements Creator.
func (c *LLMCreator) CreateMessage(ctx context.Context, n alert.Notification) (Message, error) {
	raw, err := c.generate(ctx, BuildPrompt(n))
	if err != nil {
		c.logger.Warn().Err(err).Str("alert_id", n.Alert.ID).Msg("message generation failed, using template")
		return Fallback(n), nil
	}

	msg, err := c.parse(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("alert_id", n.Alert.ID).Msg("unusable model response, using template")
		return Fallback(n), nil
	}
	return msg, nil
}

// parse decodes raw as a Message. For lenient backends, text that is not pure
// JSON is cut from the first '{' to the last '}' (no brace matching), and
// escaped newlines in the body become line breaks on either path.
func (c *LLMCreator) parse(raw string) (Message, error) {
	msg, err := decode(raw)
	if !c.lenient {
		return msg, err
	}

	if err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return Message{}, err
		}
		if msg, err = decode(raw[start : end+1]); err != nil {
			return Message{}, err
		}
	}
	msg.Body = strings.ReplaceAll(msg.Body, `\n`, "\n")
	return msg, nil
}

func decode(raw string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, err
	}
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.Subject == "" || strings.TrimSpace(msg.Body) == "" {
		return Message{}, errMissingFields
	}
	return msg, nil
}
