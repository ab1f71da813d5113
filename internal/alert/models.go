// Package alert manages weather threshold alerts and the sweep that
// evaluates them against current conditions.
package alert

import (
	"errors"
	"time"

	"github.com/alertrix/alertrix/internal/weather"
)

// Repository errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
)

// MaxRecipients is the most email addresses one alert may notify.
const MaxRecipients = 5

// Operator compares a live weather value against a threshold.
type Operator string

const (
	OpGreaterThan    Operator = ">"
	OpLessThan       Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
)

// Operators lists every supported comparison.
var Operators = []Operator{OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual, OpEqual, OpNotEqual}

// Valid reports whether o is a supported comparison.
func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}
	return false
}

// Condition is a threshold test on one weather parameter.
type Condition struct {
	Parameter weather.Parameter `json:"parameter"`
	Operator  Operator          `json:"operator"`
	Value     float64           `json:"value"`
}

// Alert is a user-defined rule pairing a location, a condition and the
// addresses to notify when it fires.
type Alert struct {
	ID          string
	Name        string
	Description string
	Emails      []string
	Location    weather.Location
	Units       weather.Units
	Condition   Condition
	IsTriggered bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasRecipients reports whether anyone should be notified when a fires.
func (a *Alert) HasRecipients() bool {
	return len(a.Emails) > 0
}

// clone returns a deep copy so stored alerts never share slices with callers.
func (a *Alert) clone() *Alert {
	cpy := *a
	cpy.Emails = append([]string(nil), a.Emails...)
	return &cpy
}

// Severity grades how far a triggered value is past its threshold.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Notification is handed to every notification channel once per trigger.
type Notification struct {
	Alert     Alert
	Weather   weather.Snapshot
	Timestamp time.Time
	Severity  Severity
}

// CurrentValue is the snapshot value of the alert's parameter.
func (n Notification) CurrentValue() (float64, bool) {
	return n.Weather.Value(n.Alert.Condition.Parameter)
}

// Status is the compact view returned by the status listing.
type Status struct {
	ID          string
	Name        string
	Emails      []string
	IsTriggered bool
	Location    weather.Location
	Condition   Condition
	UpdatedAt   time.Time
}

// SweepResult summarises one evaluation sweep.
type SweepResult struct {
	AlertsTriggered bool
	Evaluated       int
	Triggered       int
	Skipped         int
	Failed          int
	Duration        time.Duration
}
