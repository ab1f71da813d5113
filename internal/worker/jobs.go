// Package worker runs background jobs delivered over Pub/Sub.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/scheduler"
	"github.com/alertrix/alertrix/internal/weather"
)

// Job types understood by the worker.
const (
	JobEvaluateAlerts = "evaluate_alerts"
	JobProviderCheck  = "provider_check"
)

// Outcome tells the transport what to do with a message.
type Outcome int

const (
	// Ack removes the message from the subscription.
	Ack Outcome = iota
	// Nack asks for redelivery.
	Nack
)

func (o Outcome) String() string {
	if o == Nack {
		return "nack"
	}
	return "ack"
}

// JobMessage is the payload of a worker job.
type JobMessage struct {
	JobType string `json:"job_type"`
	Reason  string `json:"reason,omitempty"`
}

// SweepRunner runs one alert sweep.
type SweepRunner interface {
	RunOnce(ctx context.Context) (*alert.SweepResult, error)
}

// WeatherChecker fetches current weather; used by provider checks.
type WeatherChecker interface {
	GetCurrentWeather(ctx context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error)
}

// ProcessorConfig holds the dependencies of a Processor.
type ProcessorConfig struct {
	Sweeps SweepRunner

	// Weather is optional. Without it provider_check jobs are acked and ignored.
	Weather WeatherChecker

	// CheckLocation is the point used by provider checks.
	CheckLocation weather.Location

	// Timeout bounds a single job (default: 5 minutes).
	Timeout time.Duration

	Logger zerolog.Logger
}

// Processor decodes job payloads and runs them.
type Processor struct {
	sweeps  SweepRunner
	weather WeatherChecker
	checkAt weather.Location
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	checkAt := cfg.CheckLocation
	if checkAt == (weather.Location{}) {
		checkAt = weather.Location{Lat: 52.3676, Lon: 4.9041, Name: "Amsterdam"}
	}

	return &Processor{
		sweeps:  cfg.Sweeps,
		weather: cfg.Weather,
		checkAt: checkAt,
		timeout: timeout,
		logger:  cfg.Logger.With().Str("component", "worker").Logger(),
	}
}

// Process runs the job in data and reports whether it should be acked.
// Malformed and unknown messages are acked so they are not redelivered
// forever; a failed job is nacked. A sweep that lost the lock to another
// replica counts as done.
func (p *Processor) Process(ctx context.Context, data []byte) Outcome {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.logger.Error().Err(err).Msg("failed to parse job message")
		return Ack
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	logger := p.logger.With().Str("job_type", msg.JobType).Logger()

	var err error
	switch msg.JobType {
	case JobEvaluateAlerts:
		err = p.evaluateAlerts(ctx, logger, msg)
	case JobProviderCheck:
		err = p.providerCheck(ctx, logger)
	default:
		logger.Warn().Msg("unknown job type")
		return Ack
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		return Nack
	}
	return Ack
}

func (p *Processor) evaluateAlerts(ctx context.Context, logger zerolog.Logger, msg JobMessage) error {
	logger.Info().Str("reason", msg.Reason).Msg("starting alert sweep")

	res, err := p.sweeps.RunOnce(ctx)
	if errors.Is(err, scheduler.ErrSweepLocked) {
		logger.Info().Msg("sweep already running elsewhere, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info().
		Int("evaluated", res.Evaluated).
		Int("triggered", res.Triggered).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("alert sweep job completed")
	return nil
}

func (p *Processor) providerCheck(ctx context.Context, logger zerolog.Logger) error {
	if p.weather == nil {
		logger.Debug().Msg("no weather provider configured, skipping check")
		return nil
	}

	start := time.Now()
	if _, err := p.weather.GetCurrentWeather(ctx, p.checkAt, weather.UnitsMetric); err != nil {
		return fmt.Errorf("provider check: %w", err)
	}

	logger.Debug().Dur("duration", time.Since(start)).Msg("provider check passed")
	return nil
}
