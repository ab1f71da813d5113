// Package api provides the HTTP API for Alertrix.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/api/handler"
	"github.com/alertrix/alertrix/internal/api/middleware"
	"github.com/alertrix/alertrix/internal/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Alerts  handler.AlertService
	Sweeps  handler.SweepRunner
	Weather handler.WeatherLookup
	Ops     handler.OpsConfig

	// Tokens guards the manual sweep. When nil the endpoint is open and
	// only rate limited.
	Tokens middleware.TokenVerifier
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "alertrix-api"
	}

	// Global middleware, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	alertHandler := handler.NewAlertHandler(cfg.Alerts, cfg.Sweeps, cfg.Logger)
	weatherHandler := handler.NewWeatherHandler(cfg.Weather)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	writeRateLimit := middleware.RateLimitByIP(middleware.WriteRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		r.With(standardRateLimit).Get("/weather", weatherHandler.GetCurrentWeather)

		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.RequireJSON)

			r.With(standardRateLimit).Get("/", alertHandler.ListAlerts)
			r.With(writeRateLimit).Post("/", alertHandler.CreateAlert)
			r.With(standardRateLimit).Get("/status", alertHandler.ListStatuses)

			r.Group(func(r chi.Router) {
				if cfg.Tokens != nil {
					r.Use(middleware.Auth(cfg.Tokens))
					r.Use(middleware.RequireScope(auth.ScopeAlertsEvaluate))
				}
				r.Use(middleware.RateLimitByOperator(middleware.EvaluateRateLimit))
				r.Post("/evaluate", alertHandler.Evaluate)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", alertHandler.GetAlert)
				r.With(writeRateLimit).Put("/", alertHandler.UpdateAlert)
				r.With(writeRateLimit).Delete("/", alertHandler.DeleteAlert)
				r.With(writeRateLimit).Post("/restart", alertHandler.RestartAlert)
			})
		})
	})

	return r
}
