package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/api/response"
	"github.com/alertrix/alertrix/internal/weather"
)

// WeatherLookup returns current weather by coordinates or by place name.
type WeatherLookup interface {
	GetCurrentWeather(ctx context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error)
	GetCurrentWeatherByCity(ctx context.Context, city string, units weather.Units) (*weather.Snapshot, error)
}

// WeatherHandler handles GET /v1/weather.
type WeatherHandler struct {
	weather WeatherLookup
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(w WeatherLookup) *WeatherHandler {
	return &WeatherHandler{weather: w}
}

// GetCurrentWeather handles GET /v1/weather?city=|lat=&lon=&units=.
func (h *WeatherHandler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	units, err := weather.ParseUnits(q.Get("units"))
	if err != nil {
		response.BadRequest(w, r, "invalid query", []models.FieldError{
			{Field: "units", Message: "must be one of: metric imperial", Code: "INVALID"},
		})
		return
	}

	if city := strings.TrimSpace(q.Get("city")); city != "" {
		snap, err := h.weather.GetCurrentWeatherByCity(r.Context(), city, units)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, r, http.StatusOK, toWeather(snap))
		return
	}

	loc, fieldErrs := parseLocation(q.Get("lat"), q.Get("lon"))
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "either city or both lat and lon are required", fieldErrs)
		return
	}

	snap, err := h.weather.GetCurrentWeather(r.Context(), loc, units)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toWeather(snap))
}

func parseLocation(latStr, lonStr string) (weather.Location, []models.FieldError) {
	var errs []models.FieldError

	parse := func(field, raw string, limit float64) float64 {
		if raw == "" {
			errs = append(errs, models.FieldError{Field: field, Message: "is required", Code: "REQUIRED"})
			return 0
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < -limit || v > limit {
			errs = append(errs, models.FieldError{
				Field:   field,
				Message: "must be between -" + strconv.Itoa(int(limit)) + " and " + strconv.Itoa(int(limit)),
				Code:    "OUT_OF_RANGE",
			})
		}
		return v
	}

	loc := weather.Location{
		Lat: parse("lat", latStr, 90),
		Lon: parse("lon", lonStr, 180),
	}
	return loc, errs
}
