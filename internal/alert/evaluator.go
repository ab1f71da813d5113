package alert

import (
	"math"

	"github.com/alertrix/alertrix/internal/weather"
)

// Evaluate applies the condition's operator to the snapshot's current value.
// A parameter the snapshot does not carry, or an unknown operator, yields false.
// Comparisons follow IEEE-754 semantics, so "=" on measured values is exact.
func Evaluate(c Condition, s *weather.Snapshot) bool {
	if s == nil {
		return false
	}
	current, ok := s.Value(c.Parameter)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpGreaterThan:
		return current > c.Value
	case OpLessThan:
		return current < c.Value
	case OpGreaterOrEqual:
		return current >= c.Value
	case OpLessOrEqual:
		return current <= c.Value
	case OpEqual:
		return current == c.Value
	case OpNotEqual:
		return current != c.Value
	default:
		return false
	}
}

// ClassifySeverity buckets the relative distance between the current value and
// the threshold: above 50% critical, above 25% error, above 10% warning.
// A zero threshold has no relative scale and is always critical.
func ClassifySeverity(c Condition, s *weather.Snapshot) Severity {
	if c.Value == 0 {
		return SeverityCritical
	}
	current, ok := s.Value(c.Parameter)
	if !ok {
		return SeverityInfo
	}

	pct := math.Abs(current-c.Value) / math.Abs(c.Value) * 100

	switch {
	case pct > 50:
		return SeverityCritical
	case pct > 25:
		return SeverityError
	case pct > 10:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
