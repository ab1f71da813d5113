// Package notify fans one payload out to every registered channel handler.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Handler delivers a payload over one channel.
type Handler[T any] interface {
	Handle(ctx context.Context, payload T) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc[T any] func(ctx context.Context, payload T) error

// Handle calls f.
func (f HandlerFunc[T]) Handle(ctx context.Context, payload T) error {
	return f(ctx, payload)
}

type registration[T any] struct {
	name    string
	handler Handler[T]
}

// Config configures a Notifier.
type Config struct {
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// Notifier broadcasts payloads to an ordered list of handlers. Handlers run
// concurrently and never cancel each other.
type Notifier[T any] struct {
	mu       sync.RWMutex
	handlers []registration[T]

	logger   zerolog.Logger
	metrics  *Metrics
	inflight sync.WaitGroup
}

// New creates a Notifier with no handlers.
func New[T any](cfg Config) *Notifier[T] {
	return &Notifier[T]{
		logger:  cfg.Logger.With().Str("component", "notifier").Logger(),
		metrics: cfg.Metrics,
	}
}

// RegisterHandler appends h under name and returns n for chaining.
func (n *Notifier[T]) RegisterHandler(name string, h Handler[T]) *Notifier[T] {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, registration[T]{name: name, handler: h})
	return n
}

// Handlers returns the registered handler names in order.
func (n *Notifier[T]) Handlers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.handlers))
	for _, r := range n.handlers {
		names = append(names, r.name)
	}
	return names
}

func (n *Notifier[T]) snapshot() []registration[T] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]registration[T](nil), n.handlers...)
}

// Notify runs every handler concurrently and waits for all of them. Every
// handler runs to completion; the first error is returned.
func (n *Notifier[T]) Notify(ctx context.Context, payload T) error {
	var g errgroup.Group
	for _, r := range n.snapshot() {
		g.Go(func() error {
			return n.run(ctx, r, payload)
		})
	}
	return g.Wait()
}

// NotifyAsync runs every handler in its own goroutine and returns at once.
// Handler errors and panics are logged and never reach the caller.
func (n *Notifier[T]) NotifyAsync(ctx context.Context, payload T) {
	for _, r := range n.snapshot() {
		n.inflight.Add(1)
		go func() {
			defer n.inflight.Done()
			if err := n.run(ctx, r, payload); err != nil {
				n.logger.Error().Err(err).Str("channel", r.name).Msg("notification handler failed")
			}
		}()
	}
}

// Drain blocks until every handler started by NotifyAsync has returned or
// ctx is done.
func (n *Notifier[T]) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier[T]) run(ctx context.Context, r registration[T], payload T) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s handler panicked: %v", r.name, rec)
		}
		n.metrics.record(ctx, r.name, time.Since(start), err)
	}()

	if err := r.handler.Handle(ctx, payload); err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	return nil
}
