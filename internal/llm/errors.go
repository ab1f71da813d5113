// Package llm holds what the text-generation clients share.
package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when a model answers with no usable text.
var ErrEmptyResponse = errors.New("empty response from model")

// Kind classifies a generation failure.
type Kind string

const (
	KindAuth           Kind = "auth"
	KindRateLimit      Kind = "rate_limit"
	KindTimeout        Kind = "timeout"
	KindEmpty          Kind = "empty"
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindUpstream       Kind = "upstream"
	KindConfig         Kind = "config"
)

// ServiceError is a failure talking to a generation backend.
type ServiceError struct {
	Provider string
	Kind     Kind
	Status   int
	Err      error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status code to a failure kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 400 && status < 500:
		return KindInvalidRequest
	default:
		return KindUpstream
	}
}

// StatusError builds the ServiceError for a non-2xx response.
func StatusError(provider string, status int) *ServiceError {
	return &ServiceError{
		Provider: provider,
		Kind:     KindForStatus(status),
		Status:   status,
		Err:      errors.New(http.StatusText(status)),
	}
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}
