// Package scheduler runs the alert sweep on a fixed wall-clock interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/alert"
)

// ErrSweepLocked is returned by RunOnce when another process holds the
// sweep lock.
var ErrSweepLocked = errors.New("sweep already running elsewhere")

// DefaultInterval matches a */10 cron schedule.
const DefaultInterval = 10 * time.Minute

// Sweeper evaluates every alert once.
type Sweeper interface {
	EvaluateAll(ctx context.Context) (*alert.SweepResult, error)
}

// Config configures a Scheduler.
type Config struct {
	Sweeper  Sweeper
	Interval time.Duration

	// Locker is optional. When set, only the replica holding the lock sweeps.
	Locker  Locker
	LockKey string
	LockTTL time.Duration

	Logger zerolog.Logger
}

// Scheduler triggers sweeps on ticks aligned to multiples of the interval.
// Overlapping sweeps are allowed; stopping prevents new ticks but leaves
// sweeps already in flight to finish.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	locker   Locker
	lockKey  string
	lockTTL  time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	loopDone chan struct{}

	inflight sync.WaitGroup
	lastRun  lastRun
}

type lastRun struct {
	mu     sync.RWMutex
	at     time.Time
	result *alert.SweepResult
	err    error
}

// Status describes the scheduler for health endpoints.
type Status struct {
	Running    bool
	Interval   time.Duration
	LastRunAt  time.Time
	LastResult *alert.SweepResult
	LastError  error
}

// New creates a stopped Scheduler.
func New(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	lockKey := cfg.LockKey
	if lockKey == "" {
		lockKey = "alertrix:sweep"
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}

	return &Scheduler{
		sweeper:  cfg.Sweeper,
		interval: interval,
		locker:   cfg.Locker,
		lockKey:  lockKey,
		lockTTL:  lockTTL,
		logger:   cfg.Logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Start begins ticking. Calling Start on a running scheduler logs a warning
// and does nothing. ctx supplies values for sweeps; cancelling it stops the
// scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("scheduler already running")
		return
	}

	s.running = true
	s.stop = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.loop(ctx, s.stop, s.loopDone)

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
}

// Stop halts future ticks. Calling Stop on a stopped scheduler logs a
// warning and does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("scheduler not running")
		return
	}
	s.running = false
	close(s.stop)
	done := s.loopDone
	s.mu.Unlock()

	<-done
	s.logger.Info().Msg("scheduler stopped")
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until sweeps started by ticks have finished or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state and the outcome of the last sweep.
func (s *Scheduler) Status() Status {
	s.lastRun.mu.RLock()
	defer s.lastRun.mu.RUnlock()
	return Status{
		Running:    s.Running(),
		Interval:   s.interval,
		LastRunAt:  s.lastRun.at,
		LastResult: s.lastRun.result,
		LastError:  s.lastRun.err,
	}
}

// RunOnce performs a single sweep now, honouring the lock when configured.
func (s *Scheduler) RunOnce(ctx context.Context) (*alert.SweepResult, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, s.lockKey, s.lockTTL)
		switch {
		case err != nil:
			// Lock backend down: sweep unlocked.
			s.logger.Warn().Err(err).Msg("sweep lock unavailable, sweeping unlocked")
		case !ok:
			return nil, ErrSweepLocked
		default:
			defer release()
		}
	}

	res, err := s.sweeper.EvaluateAll(ctx)
	s.record(res, err)
	return res, err
}

func (s *Scheduler) record(res *alert.SweepResult, err error) {
	s.lastRun.mu.Lock()
	defer s.lastRun.mu.Unlock()
	s.lastRun.at = s.now()
	s.lastRun.result = res
	s.lastRun.err = err
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		wait := s.untilNextTick()
		timer := time.NewTimer(wait)

		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.logger.Info().Msg("scheduler context cancelled")
			return
		case <-timer.C:
			s.inflight.Add(1)
			go s.tick(context.WithoutCancel(ctx))
		}
	}
}

// untilNextTick returns the time until the next multiple of the interval.
func (s *Scheduler) untilNextTick() time.Duration {
	now := s.now()
	next := now.Truncate(s.interval).Add(s.interval)
	return next.Sub(now)
}

func (s *Scheduler) tick(ctx context.Context) {
	defer s.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sweep panicked: %v", r)
			s.record(nil, err)
			s.logger.Error().Err(err).Msg("scheduled sweep failed")
		}
	}()

	res, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSweepLocked):
		s.logger.Info().Msg("sweep skipped, lock held by another replica")
	case err != nil:
		s.logger.Error().Err(err).Msg("scheduled sweep failed")
	default:
		s.logger.Debug().Bool("alerts_triggered", res.AlertsTriggered).Msg("scheduled sweep finished")
	}
}
