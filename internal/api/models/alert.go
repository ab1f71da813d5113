package models

// Location is a point with an optional display name.
type Location struct {
	Lat  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon  *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Name string   `json:"name,omitempty" validate:"max=200"`
}

// ThresholdCondition is the rule an alert fires on.
type ThresholdCondition struct {
	Parameter string   `json:"parameter" validate:"required,weather_parameter"`
	Operator  string   `json:"operator" validate:"required,threshold_operator"`
	Value     *float64 `json:"value" validate:"required,finite"`
}

// AlertCreateRequest is the request body for creating an alert.
type AlertCreateRequest struct {
	Name        string             `json:"name" validate:"required,min=1,max=100"`
	Description string             `json:"description,omitempty" validate:"max=500"`
	Emails      []string           `json:"emails" validate:"max=5,dive,required,email"`
	Location    Location           `json:"location"`
	Units       string             `json:"units,omitempty" validate:"omitempty,oneof=metric imperial"`
	Condition   ThresholdCondition `json:"condition"`
}

// AlertUpdateRequest is the request body for updating an alert.
// Omitted fields keep their current value; emails replaces the whole list.
type AlertUpdateRequest struct {
	Name        *string             `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Description *string             `json:"description,omitempty" validate:"omitnil,max=500"`
	Emails      []string            `json:"emails,omitempty" validate:"omitnil,max=5,dive,required,email"`
	Location    *Location           `json:"location,omitempty"`
	Units       *string             `json:"units,omitempty" validate:"omitnil,oneof=metric imperial"`
	Condition   *ThresholdCondition `json:"condition,omitempty"`
}

// Alert is the API representation of an alert.
type Alert struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Emails      []string      `json:"emails"`
	Location    LocationView  `json:"location"`
	Units       string        `json:"units"`
	Condition   ConditionView `json:"condition"`
	IsTriggered bool          `json:"isTriggered"`
	CreatedAt   Timestamp     `json:"createdAt"`
	UpdatedAt   Timestamp     `json:"updatedAt"`
}

// LocationView is a resolved location in responses.
type LocationView struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}

// ConditionView is a condition in responses.
type ConditionView struct {
	Parameter string  `json:"parameter"`
	Operator  string  `json:"operator"`
	Value     float64 `json:"value"`
}

// AlertList wraps a list of alerts.
type AlertList struct {
	Items []Alert `json:"items"`
	Count int     `json:"count"`
}

// AlertStatus is one row of GET /v1/alerts/status.
type AlertStatus struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Emails      []string      `json:"emails"`
	IsTriggered bool          `json:"isTriggered"`
	Location    LocationView  `json:"location"`
	Condition   ConditionView `json:"condition"`
	UpdatedAt   Timestamp     `json:"updatedAt"`
}

// AlertStatusList wraps alert statuses.
type AlertStatusList struct {
	Items []AlertStatus `json:"items"`
}

// EvaluationResult is the response of a manual sweep.
type EvaluationResult struct {
	AlertsTriggered bool  `json:"alertsTriggered"`
	Evaluated       int   `json:"evaluated"`
	Triggered       int   `json:"triggered"`
	Skipped         int   `json:"skipped"`
	Failed          int   `json:"failed"`
	DurationMs      int64 `json:"durationMs"`
}
