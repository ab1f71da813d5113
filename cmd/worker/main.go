// Package main provides the entrypoint for the Alertrix sweep worker. It runs
// the scheduler without the public API and optionally takes sweep jobs from
// Pub/Sub.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/app"
	"github.com/alertrix/alertrix/internal/config"
	"github.com/alertrix/alertrix/internal/telemetry"
	"github.com/alertrix/alertrix/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "alertrix-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := app.NewLogger(cfg, serviceName, Version)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting Alertrix worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close connections")
		}
	}()

	// Health endpoint for the container platform.
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HealthPort),
		Handler:           healthRouter(svc),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Scheduler.Enabled {
		svc.Scheduler.Start(context.WithoutCancel(ctx))
	}

	var jobs *worker.PubSubHandler
	receiveDone := make(chan struct{})
	if cfg.PubSub.ProjectID != "" {
		jobs, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Processor: worker.NewProcessor(worker.ProcessorConfig{
				Sweeps:  svc.Scheduler,
				Weather: svc.Weather,
				Logger:  log,
			}),
			Logger: log,
		})
		if err != nil {
			return err
		}
		go func() {
			defer close(receiveDone)
			if err := jobs.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	}

	if !cfg.Scheduler.Enabled && jobs == nil {
		log.Warn().Msg("scheduler disabled and no pubsub subscription, worker is idle")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = svc.Shutdown(shutdownCtx, func(ctx context.Context) error {
		if jobs != nil {
			select {
			case <-receiveDone:
			case <-ctx.Done():
			}
			if err := jobs.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close pubsub client")
			}
		}
		return server.Shutdown(ctx)
	})
	if err != nil {
		log.Error().Err(err).Msg("unclean shutdown")
	}

	log.Info().Msg("worker stopped")
	return nil
}

type healthResponse struct {
	Status    string     `json:"status"`
	Version   string     `json:"version"`
	Scheduler string     `json:"scheduler"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

func healthRouter(svc *app.App) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Scheduler.Status()
		resp := healthResponse{Status: "healthy", Version: Version, Scheduler: "stopped"}
		if st.Running {
			resp.Scheduler = "running"
		}
		if !st.LastRunAt.IsZero() {
			resp.LastRunAt = &st.LastRunAt
		}
		if st.LastError != nil {
			resp.Status = "degraded"
			resp.LastError = st.LastError.Error()
		}

		status := http.StatusOK
		if svc.Pool != nil {
			if err := svc.Pool.Ping(r.Context()); err != nil {
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}
