// Package app builds the service graph shared by the api and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/config"
	"github.com/alertrix/alertrix/internal/database"
	"github.com/alertrix/alertrix/internal/email"
	"github.com/alertrix/alertrix/internal/events"
	"github.com/alertrix/alertrix/internal/llm/huggingface"
	"github.com/alertrix/alertrix/internal/llm/openai"
	"github.com/alertrix/alertrix/internal/message"
	"github.com/alertrix/alertrix/internal/notify"
	"github.com/alertrix/alertrix/internal/provider/resilience"
	"github.com/alertrix/alertrix/internal/scheduler"
	"github.com/alertrix/alertrix/internal/weather"
	"github.com/alertrix/alertrix/internal/weather/synthetic"
	"github.com/alertrix/alertrix/internal/weather/tomorrow"
)

// NewLogger builds the root logger for a binary.
func NewLogger(cfg *config.Config, service, version string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// App holds the wired services. Fields not configured are nil.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Pool      *pgxpool.Pool
	Registry  *resilience.Registry
	Weather   *weather.Service
	Notifier  *notify.Notifier[alert.Notification]
	Alerts    *alert.Service
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// New connects storage and builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: resilience.NewRegistry(),
	}

	repo, err := a.repository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Weather = weather.NewService(weather.ServiceConfig{
		Provider: a.weatherProvider(),
		Logger:   logger,
		CacheTTL: cfg.Weather.CacheTTL,
	})

	notifier, err := a.notifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Notifier = notifier

	alertMetrics, err := alert.NewMetrics()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("alert metrics: %w", err)
	}

	a.Alerts = alert.NewService(alert.ServiceConfig{
		Repository:  repo,
		Weather:     a.Weather,
		Dispatcher:  notifier,
		Logger:      logger,
		Metrics:     alertMetrics,
		Concurrency: cfg.Scheduler.Concurrency,
	})

	locker, err := a.locker()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Scheduler = scheduler.New(scheduler.Config{
		Sweeper:  a.Alerts,
		Interval: cfg.Scheduler.Interval,
		Locker:   locker,
		LockTTL:  cfg.Scheduler.LockTTL,
		Logger:   logger,
	})

	return a, nil
}

// Shutdown stops intake first, then the scheduler, then waits for pending
// notifications. stopIntake shuts down whatever can start a sweep from outside
// (the HTTP server, the job subscription) and must wait for work it already
// accepted. Close is still needed afterwards.
func (a *App) Shutdown(ctx context.Context, stopIntake func(context.Context) error) error {
	var errs []error
	if stopIntake != nil {
		if err := stopIntake(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping intake: %w", err))
		}
	}

	if a.Scheduler.Running() {
		a.Scheduler.Stop()
	}
	if err := a.Scheduler.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for sweeps: %w", err))
	}
	if err := a.Notifier.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("draining notifications: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases connections opened by New in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) repository(ctx context.Context) (alert.Repository, error) {
	db := a.Config.Database
	if db.URL == "" {
		a.Logger.Warn().Msg("DATABASE_URL not set, alerts are kept in memory")
		return alert.NewInMemoryRepository(), nil
	}

	pool, err := database.Connect(ctx, database.Config{
		URL:             db.URL,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.onClose(func() error { pool.Close(); return nil })

	if err := database.Migrate(ctx, pool); err != nil {
		return nil, err
	}

	a.Logger.Info().Msg("database connected")
	return alert.NewPostgresRepository(pool), nil
}

func (a *App) weatherProvider() weather.Provider {
	cfg := a.Config.Weather
	if cfg.UseMock {
		a.Logger.Info().Msg("using synthetic weather provider")
		return synthetic.New(synthetic.Config{Logger: a.Logger})
	}

	httpCfg := resilience.DefaultClientConfig(tomorrow.ProviderName)
	httpCfg.Registry = a.Registry
	httpCfg.Logger = a.Logger

	return tomorrow.NewClient(tomorrow.ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: resilience.NewClient(httpCfg),
		Logger:     a.Logger,
	})
}

func (a *App) llmHTTPClient(name string) *resilience.Client {
	httpCfg := resilience.DefaultClientConfig(name)
	httpCfg.Timeout = 30 * time.Second
	httpCfg.MaxRetries = 1
	httpCfg.Registry = a.Registry
	httpCfg.Logger = a.Logger
	return resilience.NewClient(httpCfg)
}

func (a *App) messageCreator() (message.Creator, error) {
	cfg := a.Config.Message
	strategy, err := message.ParseStrategy(cfg.ResolvedStrategy())
	if err != nil {
		return nil, err
	}

	opts := message.Options{Strategy: strategy, Logger: a.Logger}
	switch strategy {
	case message.StrategyOpenAI:
		opts.OpenAI = openai.NewClient(openai.ClientConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: a.llmHTTPClient("openai"),
			Logger:     a.Logger,
		})
	case message.StrategyHuggingFace:
		opts.HuggingFace = huggingface.NewClient(huggingface.ClientConfig{
			SpaceURL:   cfg.HuggingFaceSpaceURL,
			Token:      cfg.HuggingFaceToken,
			HTTPClient: a.llmHTTPClient("huggingface"),
			Logger:     a.Logger,
		})
	}

	a.Logger.Info().Str("strategy", string(strategy)).Msg("message strategy selected")
	return message.New(opts)
}

func (a *App) emailSender(ctx context.Context) (email.Sender, error) {
	cfg := a.Config.Email
	switch cfg.Transport {
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.From,
			Logger:   a.Logger,
		}), nil
	case "ses":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		return email.NewSESSender(awsCfg, email.SESConfig{From: cfg.From, Logger: a.Logger}), nil
	default:
		return email.NewLogSender(a.Logger), nil
	}
}

func (a *App) notifier(ctx context.Context) (*notify.Notifier[alert.Notification], error) {
	notifyMetrics, err := notify.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("notify metrics: %w", err)
	}

	creator, err := a.messageCreator()
	if err != nil {
		return nil, err
	}
	sender, err := a.emailSender(ctx)
	if err != nil {
		return nil, err
	}

	n := notify.New[alert.Notification](notify.Config{Logger: a.Logger, Metrics: notifyMetrics}).
		RegisterHandler("email", email.NewAlertHandler(sender, creator, a.Logger))

	if brokers := a.Config.Kafka.Brokers; len(brokers) > 0 {
		kh, err := events.NewKafkaHandler(events.KafkaConfig{
			Brokers: brokers,
			Topic:   a.Config.Kafka.Topic,
			Logger:  a.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("kafka handler: %w", err)
		}
		a.onClose(kh.Close)
		n.RegisterHandler("kafka", kh)
	}

	a.Logger.Info().
		Str("email_transport", a.Config.Email.Transport).
		Strs("channels", n.Handlers()).
		Msg("notification channels registered")
	return n, nil
}

func (a *App) locker() (scheduler.Locker, error) {
	url := a.Config.Scheduler.RedisURL
	if url == "" {
		return nil, nil
	}

	client, err := scheduler.NewRedisClient(url)
	if err != nil {
		return nil, err
	}
	a.onClose(client.Close)
	return scheduler.NewRedisLocker(client, a.Logger), nil
}
