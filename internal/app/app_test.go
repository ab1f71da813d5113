package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/app"
	"github.com/alertrix/alertrix/internal/config"
	"github.com/alertrix/alertrix/internal/notify"
)

func localConfig() *config.Config {
	return &config.Config{
		LogLevel:  "debug",
		LogFormat: "json",
		Weather:   config.WeatherConfig{UseMock: true, CacheTTL: time.Minute},
		Message:   config.MessageConfig{Strategy: "template"},
		Email:     config.EmailConfig{Transport: "log", From: "alerts@example.com"},
		Scheduler: config.SchedulerConfig{
			Enabled:     true,
			Interval:    time.Minute,
			Concurrency: 4,
			LockTTL:     time.Minute,
		},
	}
}

func TestNew_LocalStack(t *testing.T) {
	a, err := app.New(context.Background(), localConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.Pool)
	assert.NotNil(t, a.Alerts)
	assert.NotNil(t, a.Weather)
	assert.Equal(t, "synthetic", a.Weather.Name())
	assert.Equal(t, []string{"email"}, a.Notifier.Handlers())
	assert.False(t, a.Scheduler.Running())

	alerts, err := a.Alerts.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestNew_RealWeatherRegistersProvider(t *testing.T) {
	cfg := localConfig()
	cfg.Weather.UseMock = false
	cfg.Weather.APIKey = "test-key"

	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, "tomorrow", a.Weather.Name())
	assert.NotNil(t, a.Registry.GetHealth("tomorrow"))
}

func TestNew_KafkaChannel(t *testing.T) {
	cfg := localConfig()
	cfg.Kafka = config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "alerts"}

	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, []string{"email", "kafka"}, a.Notifier.Handlers())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad redis url", func(c *config.Config) { c.Scheduler.RedisURL = "://nope" }},
		{"bad message strategy", func(c *config.Config) { c.Message.Strategy = "telepathy" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := localConfig()
			tt.mutate(cfg)
			_, err := app.New(context.Background(), cfg, zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := localConfig()
	assert.Equal(t, zerolog.DebugLevel, app.NewLogger(cfg, "alertrix-api", "dev").GetLevel())

	cfg.LogLevel = "bogus"
	assert.Equal(t, zerolog.InfoLevel, app.NewLogger(cfg, "alertrix-api", "dev").GetLevel())
}

func TestShutdown_DrainsNotificationsFromLastRequests(t *testing.T) {
	a, err := app.New(context.Background(), localConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var delivered atomic.Bool
	a.Notifier.RegisterHandler("recorder", notify.HandlerFunc[alert.Notification](
		func(context.Context, alert.Notification) error {
			time.Sleep(50 * time.Millisecond)
			delivered.Store(true)
			return nil
		}))

	a.Scheduler.Start(context.Background())

	stopIntake := func(ctx context.Context) error {
		// A manual sweep finishing while the server shuts down dispatches
		// after the shutdown signal.
		assert.True(t, a.Scheduler.Running(), "scheduler stopped before intake")
		a.Notifier.NotifyAsync(ctx, alert.Notification{Alert: alert.Alert{ID: "alt_late"}})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx, stopIntake))

	assert.True(t, delivered.Load(), "notification dispatched during intake shutdown was not drained")
	assert.False(t, a.Scheduler.Running())
}

func TestShutdown_ReportsIntakeError(t *testing.T) {
	a, err := app.New(context.Background(), localConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	boom := errors.New("listener stuck")
	err = a.Shutdown(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
