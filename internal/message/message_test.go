package message_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/message"
	"github.com/alertrix/alertrix/internal/weather"
)

func heatNotification(units weather.Units) alert.Notification {
	return alert.Notification{
		Alert: alert.Alert{
			ID:          "alt_1",
			Name:        "Heatwave",
			Description: "Tell the garden crew",
			Emails:      []string{"ops@example.com"},
			Location:    weather.Location{Lat: 52.37, Lon: 4.89, Name: "Amsterdam"},
			Units:       units,
			Condition:   alert.Condition{Parameter: weather.ParamTemperature, Operator: alert.OpGreaterThan, Value: 30},
		},
		Weather: weather.Snapshot{
			Temperature:         35,
			TemperatureApparent: 37.5,
			Humidity:            40,
			WindSpeed:           3.2,
			Visibility:          16,
			WeatherCode:         1000,
			Units:               units,
		},
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Severity:  alert.SeverityWarning,
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := message.BuildPrompt(heatNotification(weather.UnitsMetric))

	assert.Contains(t, prompt, "Alert Name: Heatwave")
	assert.Contains(t, prompt, "Description: Tell the garden crew")
	assert.Contains(t, prompt, "Severity: warning")
	assert.Contains(t, prompt, "Time: 2024-06-01 12:00 UTC")
	assert.Contains(t, prompt, "- Condition: temperature > 30")
	assert.Contains(t, prompt, "- Current Value: 35")
	assert.Contains(t, prompt, "- Temperature: 35°C")
	assert.Contains(t, prompt, "- Wind Speed: 3.2 m/s")
	assert.Contains(t, prompt, "under 300 words")
	assert.Contains(t, prompt, "under 80 characters")
	assert.Contains(t, prompt, `Best regards,\nThe Alertrix Team`)
}

func TestFallback(t *testing.T) {
	msg := message.Fallback(heatNotification(weather.UnitsMetric))

	assert.Equal(t, "Alert: WARNING - Heatwave", msg.Subject)
	assert.Contains(t, msg.Body, "Alert Details:")
	assert.Contains(t, msg.Body, "Location: Amsterdam")
	assert.Contains(t, msg.Body, "Alert Condition:")
	assert.Contains(t, msg.Body, "Threshold: temperature > 30")
	assert.Contains(t, msg.Body, "Current Value: 35")
	assert.Contains(t, msg.Body, "Weather Conditions:")
	assert.Contains(t, msg.Body, "Conditions: Clear")
	assert.Contains(t, msg.Body, "Temperature: 35°C (feels like 37.5°C)")
	assert.Contains(t, msg.Body, "Visibility: 16 km")
	assert.Contains(t, msg.Body, "Best regards,\nThe Alertrix Team")
}

func TestFallback_ImperialAndMissingValue(t *testing.T) {
	n := heatNotification(weather.UnitsImperial)
	n.Alert.Location.Name = ""
	n.Alert.Condition = alert.Condition{Parameter: weather.ParamTemperatureMax, Operator: alert.OpGreaterThan, Value: 90}

	msg := message.Fallback(n)

	assert.Contains(t, msg.Body, "Location: 52.37, 4.89")
	assert.Contains(t, msg.Body, "Current Value: n/a")
	assert.Contains(t, msg.Body, "°F")
	assert.Contains(t, msg.Body, "mph")
	assert.Contains(t, msg.Body, "Visibility: 16 mi")
}

// --- Mock backends ---

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string, schema any) (string, error) {
	args := m.Called(ctx, prompt, schema)
	return args.String(0), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt, instructions string) (string, error) {
	args := m.Called(ctx, prompt, instructions)
	return args.String(0), args.Error(1)
}

func TestCompleterCreator(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     message.Message
		fallback bool
	}{
		{
			name:     "valid json",
			response: `{"subject":"Heat warning for Amsterdam","body":"It is 35°C.\n\nBest regards,\nThe Alertrix Team"}`,
			want:     message.Message{Subject: "Heat warning for Amsterdam", Body: "It is 35°C.\n\nBest regards,\nThe Alertrix Team"},
		},
		{name: "backend error", err: errors.New("openai: rate_limit"), fallback: true},
		{name: "not json", response: "Sure! Here is your email", fallback: true},
		{name: "missing body", response: `{"subject":"only a subject"}`, fallback: true},
		{name: "wrapped json is not unwrapped", response: `Here: {"subject":"s","body":"b"}`, fallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := heatNotification(weather.UnitsMetric)
			backend := &mockCompleter{}
			backend.On("Complete", mock.Anything, message.BuildPrompt(n), mock.Anything).Return(tt.response, tt.err)

			creator := message.NewCompleterCreator("openai", backend, zerolog.Nop())
			got, err := creator.CreateMessage(context.Background(), n)

			require.NoError(t, err)
			if tt.fallback {
				assert.Equal(t, message.Fallback(n), got)
			} else {
				assert.Equal(t, tt.want, got)
			}
			backend.AssertExpectations(t)
		})
	}
}

func TestTextCreator(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     message.Message
		fallback bool
	}{
		{
			name:     "direct json",
			response: `{"subject":"Heat","body":"Line one\nLine two"}`,
			want:     message.Message{Subject: "Heat", Body: "Line one\nLine two"},
		},
		{
			name:     "direct json with escaped newlines",
			response: `{"subject":"Heat","body":"Line one\\nLine two"}`,
			want:     message.Message{Subject: "Heat", Body: "Line one\nLine two"},
		},
		{
			name:     "json wrapped in prose with escaped newlines",
			response: `Here is the email: {"subject":"Heat","body":"Line one\\nLine two"} Hope this helps!`,
			want:     message.Message{Subject: "Heat", Body: "Line one\nLine two"},
		},
		{name: "no braces", response: "I cannot help with that", fallback: true},
		{name: "braces but broken json", response: "{subject: Heat}", fallback: true},
		{name: "extracted but empty body", response: `ok {"subject":"Heat","body":""}`, fallback: true},
		{name: "backend error", err: errors.New("timeout"), fallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := heatNotification(weather.UnitsMetric)
			backend := &mockGenerator{}
			backend.On("GenerateText", mock.Anything, mock.Anything, mock.MatchedBy(func(s string) bool {
				return len(s) > 0
			})).Return(tt.response, tt.err)

			creator := message.NewTextCreator("huggingface", backend, zerolog.Nop())
			got, err := creator.CreateMessage(context.Background(), n)

			require.NoError(t, err)
			if tt.fallback {
				assert.Equal(t, message.Fallback(n), got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	c, err := message.New(message.Options{Strategy: message.StrategyTemplate})
	require.NoError(t, err)
	assert.IsType(t, message.TemplateCreator{}, c)

	c, err = message.New(message.Options{Strategy: message.StrategyOpenAI, OpenAI: &mockCompleter{}})
	require.NoError(t, err)
	assert.IsType(t, &message.LLMCreator{}, c)

	_, err = message.New(message.Options{Strategy: message.StrategyHuggingFace})
	assert.Error(t, err)

	_, err = message.ParseStrategy("gemini")
	assert.Error(t, err)

	s, err := message.ParseStrategy("huggingface")
	require.NoError(t, err)
	assert.Equal(t, message.StrategyHuggingFace, s)
}
