// Package lifecycle coordinates orderly process shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Shutdown runs registered hooks in reverse registration order, so components are torn down
// before the dependencies they were built on.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	done  bool
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Execute runs every hook once, even after earlier ones fail or ctx expires, and joins
// their errors. Subsequent calls are no-ops.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		s.log.Info("running shutdown hook", slog.String("hook", h.Name))

		if err := h.Fn(ctx); err != nil {
			s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
			continue
		}

		s.log.Info("shutdown hook completed", slog.String("hook", h.Name))
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}
