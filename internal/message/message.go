// Package message turns a triggered alert into an email subject and body,
// either through a language model or a fixed template.
package message

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/weather"
)

// Message is a rendered notification.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Creator renders a notification into a message.
type Creator interface {
	CreateMessage(ctx context.Context, n alert.Notification) (Message, error)
}

const signOff = "Best regards,\nThe Alertrix Team"

const timeLayout = "2006-01-02 15:04 MST"

// BuildPrompt returns the instruction text sent to a language model.
func BuildPrompt(n alert.Notification) string {
	a := n.Alert
	c := a.Condition
	current := currentValue(n)
	labels := labelsFor(n.Weather.Units)
	threshold := formatNumber(c.Value)

	var b strings.Builder
	b.WriteString("Create a short and concise email notification for a weather alert with the following details:\n\n")
	fmt.Fprintf(&b, "Alert Name: %s\n", a.Name)
	fmt.Fprintf(&b, "Description: %s\n", a.Description)
	fmt.Fprintf(&b, "Severity: %s\n", n.Severity)
	fmt.Fprintf(&b, "Time: %s\n\n", formatTime(n.Timestamp))

	b.WriteString("Alert Condition:\n")
	fmt.Fprintf(&b, "- Parameter: %s\n", c.Parameter)
	fmt.Fprintf(&b, "- Condition: %s %s %s\n", c.Parameter, c.Operator, threshold)
	fmt.Fprintf(&b, "- Current Value: %s\n\n", current)

	b.WriteString("Weather State:\n")
	fmt.Fprintf(&b, "- Temperature: %s%s\n", formatNumber(n.Weather.Temperature), labels.temperature)
	fmt.Fprintf(&b, "- Humidity: %s%%\n", formatNumber(n.Weather.Humidity))
	fmt.Fprintf(&b, "- Wind Speed: %s %s\n", formatNumber(n.Weather.WindSpeed), labels.speed)
	fmt.Fprintf(&b, "- Conditions: %s\n\n", weather.Condition(int(n.Weather.WeatherCode)))

	b.WriteString("Instructions:\n")
	b.WriteString("1. The email should be brief, informative, and personalized.\n")
	b.WriteString("2. Connect the description to the alert if possible and make it relevant.\n")
	fmt.Fprintf(&b, "3. Mention both the threshold condition (%s %s %s) and current value (%s) in the email.\n", c.Parameter, c.Operator, threshold, current)
	b.WriteString("4. Keep the entire body under 300 words.\n")
	b.WriteString("5. End the email with \"Best regards,\\nThe Alertrix Team\"\n")
	b.WriteString("6. Return ONLY a JSON object with separate 'subject' and 'body' fields.\n")
	b.WriteString("7. The subject should be under 80 characters.\n\n")

	b.WriteString("Format your response as:\n")
	b.WriteString("{\n")
	b.WriteString("  \"subject\": \"Brief subject line here\",\n")
	b.WriteString("  \"body\": \"Your concise email body here\\n\\nBest regards,\\nThe Alertrix Team\"\n")
	b.WriteString("}\n")

	return b.String()
}

func currentValue(n alert.Notification) string {
	v, ok := n.CurrentValue()
	if !ok {
		return "n/a"
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type unitLabels struct {
	temperature string
	speed       string
	distance    string
}

func labelsFor(u weather.Units) unitLabels {
	if u == weather.UnitsImperial {
		return unitLabels{temperature: "°F", speed: "mph", distance: "mi"}
	}
	return unitLabels{temperature: "°C", speed: "m/s", distance: "km"}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.Format(timeLayout)
}
