// Package core runs the long-lived components of the serve command.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// App starts components in order and stops them in reverse.
type App struct {
	components      []entry
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

type entry struct {
	c       Component
	started bool
}

// NewApp creates an empty App.
func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger:          logger.With("component", "core"),
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Add appends components. Order matters: earlier components start first.
func (a *App) Add(cs ...Component) {
	for _, c := range cs {
		a.components = append(a.components, entry{c: c})
	}
}

// Validate runs every Validator and joins their errors.
func (a *App) Validate() error {
	var errs []error
	for _, e := range a.components {
		if v, ok := e.c.(Validator); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.c.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Start starts every Starter in order. If one fails, those already
// started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.components {
		e := &a.components[i]
		s, ok := e.c.(Starter)
		if !ok {
			e.started = true
			continue
		}
		a.logger.Info("starting component", "name", e.c.Name())
		if err := s.Start(); err != nil {
			a.logger.Error("component start failed", "name", e.c.Name(), "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("starting %s: %w", e.c.Name(), err)
		}
		e.started = true
	}
	a.logger.Info("all components started", "count", len(a.components))
	return nil
}

// Stop stops all started components in reverse order.
func (a *App) Stop() {
	a.stopFrom(len(a.components) - 1)
}

func (a *App) stopFrom(last int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	for i := last; i >= 0; i-- {
		e := &a.components[i]
		if !e.started {
			continue
		}
		if s, ok := e.c.(Stopper); ok {
			a.logger.Info("stopping component", "name", e.c.Name())
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("component stop error", "name", e.c.Name(), "error", err)
			}
		}
		e.started = false
	}
}

// Run validates and starts the components, then blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives, and stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(ctx))

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
