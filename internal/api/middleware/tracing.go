package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/alertrix/alertrix/internal/api/middleware"

// Tracing opens a server span per request under the caller's trace, if any.
// Query strings are left out of the span since they can carry coordinates.
// Once chi has routed the request the span takes the route pattern as its
// name, and requests addressing one alert get an alert.id attribute.
func Tracing(service string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			carrier := propagation.HeaderCarrier(r.Header)
			ctx, span := tracer.Start(
				otel.GetTextMapPropagator().Extract(r.Context(), carrier),
				r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(service, r)...),
			)
			defer span.End()

			if id := GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			rec := newStatusRecorder(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.statusCode),
				attribute.Int64("http.response.body.size", rec.written),
			)
			if alertID := chi.URLParam(r, "id"); alertID != "" {
				span.SetAttributes(attribute.String("alert.id", alertID))
			}
			if rec.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

func requestAttributes(service string, r *http.Request) []attribute.KeyValue {
	proto := "http"
	switch {
	case r.TLS != nil:
		proto = "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		proto = r.Header.Get("X-Forwarded-Proto")
	}

	return []attribute.KeyValue{
		attribute.String("service.name", service),
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", r.URL.Path),
		attribute.String("url.scheme", proto),
		attribute.String("server.address", r.Host),
		attribute.String("client.address", r.RemoteAddr),
		attribute.String("user_agent.original", r.UserAgent()),
	}
}
