package message

import (
	"context"
	"fmt"
	"strings"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/weather"
)

// TemplateCreator renders a fixed-layout plain-text message. It never fails
// and never calls out.
type TemplateCreator struct{}

// CreateMessage implements Creator.
func (TemplateCreator) CreateMessage(_ context.Context, n alert.Notification) (Message, error) {
	return Fallback(n), nil
}

// Fallback renders n with the fixed template.
func Fallback(n alert.Notification) Message {
	return Message{
		Subject: fmt.Sprintf("Alert: %s - %s", strings.ToUpper(string(n.Severity)), n.Alert.Name),
		Body:    fallbackBody(n),
	}
}

func fallbackBody(n alert.Notification) string {
	a := n.Alert
	c := a.Condition
	w := n.Weather
	labels := labelsFor(w.Units)

	var b strings.Builder
	b.WriteString("Alert Details:\n")
	b.WriteString("-------------\n")
	fmt.Fprintf(&b, "Name: %s\n", a.Name)
	if a.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", a.Description)
	}
	fmt.Fprintf(&b, "Severity: %s\n", n.Severity)
	fmt.Fprintf(&b, "Time: %s\n", formatTime(n.Timestamp))
	if a.Location.Name != "" {
		fmt.Fprintf(&b, "Location: %s\n", a.Location.Name)
	} else {
		fmt.Fprintf(&b, "Location: %s, %s\n", formatNumber(a.Location.Lat), formatNumber(a.Location.Lon))
	}

	b.WriteString("\nAlert Condition:\n")
	b.WriteString("-------------\n")
	fmt.Fprintf(&b, "Parameter: %s\n", c.Parameter)
	fmt.Fprintf(&b, "Threshold: %s %s %s\n", c.Parameter, c.Operator, formatNumber(c.Value))
	fmt.Fprintf(&b, "Current Value: %s\n", currentValue(n))

	b.WriteString("\nWeather Conditions:\n")
	b.WriteString("-----------------\n")
	fmt.Fprintf(&b, "Conditions: %s\n", weather.Condition(int(w.WeatherCode)))
	fmt.Fprintf(&b, "Temperature: %s%s (feels like %s%s)\n",
		formatNumber(w.Temperature), labels.temperature, formatNumber(w.TemperatureApparent), labels.temperature)
	fmt.Fprintf(&b, "Humidity: %s%%\n", formatNumber(w.Humidity))
	fmt.Fprintf(&b, "Wind Speed: %s %s\n", formatNumber(w.WindSpeed), labels.speed)
	fmt.Fprintf(&b, "Visibility: %s %s\n", formatNumber(w.Visibility), labels.distance)

	b.WriteString("\n")
	b.WriteString(signOff)
	b.WriteString("\n")
	return b.String()
}
