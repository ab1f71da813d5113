package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/weather"
)

// WeatherLookup returns current weather for a location.
type WeatherLookup interface {
	GetCurrentWeather(ctx context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error)
}

// Dispatcher hands a notification to every channel without blocking the caller.
type Dispatcher interface {
	NotifyAsync(ctx context.Context, n Notification)
}

// ServiceConfig holds the dependencies of the alert service.
type ServiceConfig struct {
	Repository Repository
	Weather    WeatherLookup
	Dispatcher Dispatcher
	Logger     zerolog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// Concurrency bounds how many alerts a sweep evaluates at once (default: 8).
	Concurrency int
}

// Service provides alert management and evaluation.
type Service struct {
	repo        Repository
	weather     WeatherLookup
	dispatcher  Dispatcher
	logger      zerolog.Logger
	metrics     *Metrics
	concurrency int
	now         func() time.Time
}

// NewService creates a new alert service.
func NewService(cfg ServiceConfig) *Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	return &Service{
		repo:        cfg.Repository,
		weather:     cfg.Weather,
		dispatcher:  cfg.Dispatcher,
		logger:      cfg.Logger.With().Str("component", "alerts").Logger(),
		metrics:     cfg.Metrics,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new alert.
func (s *Service) Create(ctx context.Context, input *models.AlertCreateRequest) (*Alert, error) {
	input.Emails = normalizeEmails(input.Emails)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	units := weather.UnitsMetric
	if input.Units != "" {
		units = weather.Units(input.Units)
	}

	now := s.now()
	a := &Alert{
		ID:          "alt_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		Name:        input.Name,
		Description: input.Description,
		Emails:      input.Emails,
		Location: weather.Location{
			Lat:  *input.Location.Lat,
			Lon:  *input.Location.Lon,
			Name: input.Location.Name,
		},
		Units: units,
		Condition: Condition{
			Parameter: weather.Parameter(input.Condition.Parameter),
			Operator:  Operator(input.Condition.Operator),
			Value:     *input.Condition.Value,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.Emails == nil {
		a.Emails = []string{}
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().Str("alert_id", a.ID).Str("name", a.Name).Msg("alert created")
	return a, nil
}

// Get retrieves an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every alert.
func (s *Service) List(ctx context.Context) ([]*Alert, error) {
	return s.repo.FindAll(ctx)
}

// Update applies a partial update. The patch is validated before the store
// is touched, so an invalid request never reaches the repository.
func (s *Service) Update(ctx context.Context, id string, input *models.AlertUpdateRequest) (*Alert, error) {
	input.Emails = normalizeEmails(input.Emails)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		a.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		a.Description = *input.Description
	}
	if input.Emails != nil {
		a.Emails = input.Emails
	}
	if input.Location != nil {
		a.Location = weather.Location{
			Lat:  *input.Location.Lat,
			Lon:  *input.Location.Lon,
			Name: input.Location.Name,
		}
	}
	if input.Units != nil {
		a.Units = weather.Units(*input.Units)
	}
	if input.Condition != nil {
		a.Condition = Condition{
			Parameter: weather.Parameter(input.Condition.Parameter),
			Operator:  Operator(input.Condition.Operator),
			Value:     *input.Condition.Value,
		}
	}
	a.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an alert.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("alert_id", id).Msg("alert deleted")
	return nil
}

// Statuses returns the triggered state of every alert.
func (s *Service) Statuses(ctx context.Context) ([]Status, error) {
	alerts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, Status{
			ID:          a.ID,
			Name:        a.Name,
			Emails:      a.Emails,
			IsTriggered: a.IsTriggered,
			Location:    a.Location,
			Condition:   a.Condition,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return out, nil
}

// Restart ends a trigger episode so the next sweep evaluates the alert again.
func (s *Service) Restart(ctx context.Context, id string) (*Alert, error) {
	a, err := s.repo.UpdateStatus(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("alert_id", id).Msg("alert restarted")
	return a, nil
}

// EvaluateAll runs one sweep. Alerts already triggered are skipped without a
// weather lookup. Each remaining alert is evaluated concurrently; a failure
// is logged against that alert and never stops the others. An error is
// returned only when the alert list itself cannot be read.
func (s *Service) EvaluateAll(ctx context.Context) (*SweepResult, error) {
	start := time.Now()

	alerts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	var evaluated, triggered, failed atomic.Int64
	skipped := 0

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, a := range alerts {
		if a.IsTriggered {
			skipped++
			continue
		}

		g.Go(func() error {
			fired, err := s.evaluateOne(ctx, a)
			evaluated.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
			case fired:
				triggered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &SweepResult{
		AlertsTriggered: triggered.Load() > 0,
		Evaluated:       int(evaluated.Load()),
		Triggered:       int(triggered.Load()),
		Skipped:         skipped,
		Failed:          int(failed.Load()),
		Duration:        time.Since(start),
	}
	s.metrics.recordSweep(ctx, res)

	s.logger.Info().
		Int("alerts", len(alerts)).
		Int("evaluated", res.Evaluated).
		Int("triggered", res.Triggered).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("alert sweep completed")

	return res, nil
}

// evaluateOne reports whether a newly triggered. Panics are converted to errors
// so one malformed alert cannot take down the sweep.
func (s *Service) evaluateOne(ctx context.Context, a *Alert) (fired bool, err error) {
	logger := s.logger.With().
		Str("alert_id", a.ID).
		Str("alert_name", a.Name).
		Float64("lat", a.Location.Lat).
		Float64("lon", a.Location.Lon).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating alert: %v", r)
			logger.Error().Err(err).Msg("alert evaluation panicked")
		}
	}()

	units := a.Units
	if !units.Valid() {
		units = weather.UnitsMetric
	}

	snap, err := s.weather.GetCurrentWeather(ctx, a.Location, units)
	if err != nil {
		logger.Error().Err(err).Msg("failed to evaluate alert")
		return false, err
	}

	if !Evaluate(a.Condition, snap) {
		return false, nil
	}

	won, err := s.repo.CompareAndSetTriggered(ctx, a.ID, false, true)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			logger.Debug().Msg("alert deleted during sweep")
			return false, nil
		}
		logger.Error().Err(err).Msg("failed to persist alert trigger")
		return false, err
	}
	if !won {
		logger.Debug().Msg("alert already triggered by a concurrent sweep")
		return false, nil
	}

	if !a.HasRecipients() || s.dispatcher == nil {
		logger.Info().Msg("alert triggered but no email recipients configured")
		return true, nil
	}

	severity := ClassifySeverity(a.Condition, snap)
	a.IsTriggered = true

	logger.Info().
		Str("parameter", string(a.Condition.Parameter)).
		Str("severity", string(severity)).
		Msg("alert triggered")

	s.dispatcher.NotifyAsync(context.WithoutCancel(ctx), Notification{
		Alert:     *a,
		Weather:   *snap,
		Timestamp: s.now(),
		Severity:  severity,
	})

	return true, nil
}
