// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/api/middleware"
	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/provider/resilience"
	"github.com/alertrix/alertrix/internal/weather"
)

// MaxBodyBytes caps request bodies accepted by Decode.
const MaxBodyBytes = 1 << 20

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads a single JSON document into dst. Unknown fields, trailing
// data and bodies over MaxBodyBytes are rejected.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// FromError maps a domain error to its problem response:
// validation 400, not found 404, upstream unavailable 503, other upstream
// failures 502 and anything else 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := middleware.GetRequestID(r.Context())

	var verr *alert.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(w, r, models.NewBadRequest(traceID, "request validation failed", verr.Errors))
	case errors.Is(err, alert.ErrAlertNotFound):
		Error(w, r, models.NewNotFound(traceID, "alert not found"))
	case errors.Is(err, weather.ErrInvalidCoordinates):
		Error(w, r, models.NewBadRequest(traceID, "invalid coordinates", nil))
	case errors.Is(err, weather.ErrLocationNotFound):
		Error(w, r, models.NewNotFound(traceID, "location not found"))
	case errors.Is(err, resilience.ErrCircuitOpen):
		Error(w, r, models.NewServiceUnavailable(traceID, "weather provider temporarily unavailable"))
	case errors.Is(err, weather.ErrUnauthorized), errors.Is(err, weather.ErrRateLimited):
		Error(w, r, models.NewBadGateway(traceID, err.Error()))
	case errors.Is(err, weather.ErrProviderUnavailable):
		Error(w, r, models.NewServiceUnavailable(traceID, "weather provider unavailable"))
	default:
		Error(w, r, models.NewInternalError(traceID, "an unexpected error occurred"))
	}
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}
