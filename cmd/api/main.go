// Package main provides the entrypoint for the Alertrix API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/api"
	"github.com/alertrix/alertrix/internal/api/handler"
	"github.com/alertrix/alertrix/internal/api/middleware"
	"github.com/alertrix/alertrix/internal/app"
	"github.com/alertrix/alertrix/internal/auth"
	"github.com/alertrix/alertrix/internal/config"
	"github.com/alertrix/alertrix/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "alertrix-api"

func main() {
	mintToken := flag.String("mint-token", "", "print an operator token for the given subject and exit")
	scopes := flag.String("scopes", auth.ScopeAlertsEvaluate, "comma separated scopes for -mint-token")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "lifetime of a minted token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})

	if *mintToken != "" {
		token, expiresAt, err := jwtService.IssueToken(*mintToken, strings.Split(*scopes, ","), *ttl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "minting token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
		return
	}

	log := app.NewLogger(cfg, serviceName, Version)
	if err := run(cfg, jwtService, log); err != nil {
		log.Fatal().Err(err).Msg("api stopped with error")
	}
}

func run(cfg *config.Config, jwtService *auth.JWTService, log zerolog.Logger) error {
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting Alertrix API")

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

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing http metrics: %w", err)
	}

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close connections")
		}
	}()

	ops := handler.OpsConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Providers:         svc.Registry,
		Scheduler:         svc.Scheduler,
		SchedulerExpected: cfg.Scheduler.Enabled,
	}
	if svc.Pool != nil {
		ops.Database = svc.Pool
	}

	routerCfg := api.RouterConfig{
		ServiceName: serviceName,
		Logger:      log,
		Metrics:     metrics,
		RequireTLS:  cfg.IsProduction(),
		Alerts:      svc.Alerts,
		Sweeps:      svc.Scheduler,
		Weather:     svc.Weather,
		Ops:         ops,
	}
	if cfg.Auth.Secret != "" {
		routerCfg.Tokens = jwtService
	} else {
		log.Warn().Msg("JWT_SECRET not set, manual sweep endpoint is unauthenticated")
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           api.NewRouter(routerCfg),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.Scheduler.Enabled {
		svc.Scheduler.Start(context.WithoutCancel(ctx))
	} else {
		log.Info().Msg("scheduler disabled, sweeps run only on demand")
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The server goes first so a manual sweep in flight finishes before the
	// notifier is drained.
	if err := svc.Shutdown(shutdownCtx, server.Shutdown); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
