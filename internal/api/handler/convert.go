package handler

import (
	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/weather"
)

func toLocationView(l weather.Location) models.LocationView {
	return models.LocationView{Lat: l.Lat, Lon: l.Lon, Name: l.Name}
}

func toConditionView(c alert.Condition) models.ConditionView {
	return models.ConditionView{
		Parameter: string(c.Parameter),
		Operator:  string(c.Operator),
		Value:     c.Value,
	}
}

func toAlert(a *alert.Alert) models.Alert {
	emails := a.Emails
	if emails == nil {
		emails = []string{}
	}
	return models.Alert{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Emails:      emails,
		Location:    toLocationView(a.Location),
		Units:       string(a.Units),
		Condition:   toConditionView(a.Condition),
		IsTriggered: a.IsTriggered,
		CreatedAt:   models.Timestamp(a.CreatedAt),
		UpdatedAt:   models.Timestamp(a.UpdatedAt),
	}
}

func toAlertStatus(s alert.Status) models.AlertStatus {
	emails := s.Emails
	if emails == nil {
		emails = []string{}
	}
	return models.AlertStatus{
		ID:          s.ID,
		Name:        s.Name,
		Emails:      emails,
		IsTriggered: s.IsTriggered,
		Location:    toLocationView(s.Location),
		Condition:   toConditionView(s.Condition),
		UpdatedAt:   models.Timestamp(s.UpdatedAt),
	}
}

func toEvaluationResult(r *alert.SweepResult) models.EvaluationResult {
	return models.EvaluationResult{
		AlertsTriggered: r.AlertsTriggered,
		Evaluated:       r.Evaluated,
		Triggered:       r.Triggered,
		Skipped:         r.Skipped,
		Failed:          r.Failed,
		DurationMs:      r.Duration.Milliseconds(),
	}
}

func toWeather(s *weather.Snapshot) models.Weather {
	return models.Weather{
		Temperature:              s.Temperature,
		TemperatureApparent:      s.TemperatureApparent,
		TemperatureMin:           s.TemperatureMin,
		TemperatureMax:           s.TemperatureMax,
		WindSpeed:                s.WindSpeed,
		WindDirection:            s.WindDirection,
		Humidity:                 s.Humidity,
		PrecipitationProbability: s.PrecipitationProbability,
		PrecipitationType:        s.PrecipitationType,
		RainIntensity:            s.RainIntensity,
		SnowIntensity:            s.SnowIntensity,
		CloudCover:               s.CloudCover,
		Visibility:               s.Visibility,
		PressureSurfaceLevel:     s.PressureSurfaceLevel,
		UVIndex:                  s.UVIndex,
		WeatherCode:              s.WeatherCode,
		Condition:                weather.Condition(int(s.WeatherCode)),
		Location:                 toLocationView(s.Location),
		Units:                    string(s.Units),
		ObservedAt:               models.Timestamp(s.ObservedAt),
	}
}
