// Package poller tracks an on-ramp payment until the provider reports a terminal status.
package poller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Proton-105/onramp/internal/capability"
	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxFailures = 5
	DefaultMaxPolls    = 360
)

var pollRecorder = func(result string) {}

// RegisterPollRecorder allows external packages to observe individual poll results.
// Results are lower-cased statuses plus "error", "abandoned" and "cancelled".
func RegisterPollRecorder(recorder func(result string)) {
	if recorder == nil {
		pollRecorder = func(string) {}
		return
	}

	pollRecorder = recorder
}

// Config bounds a polling run.
type Config struct {
	CapabilityID string
	Interval     time.Duration
	// MaxFailures is the number of consecutive failed queries tolerated.
	MaxFailures int
	// MaxPolls caps the number of ticks spent waiting for a terminal status.
	MaxPolls int
	Clock    Clock
}

// Update is one value of the status stream. Err is set only when polling was abandoned.
type Update struct {
	Status domain.PaymentStatus
	Err    error
}

// Terminal reports whether the update ends the stream.
func (u Update) Terminal() bool {
	return u.Err != nil || u.Status.Status.Terminal()
}

// Poller issues one status query per tick.
type Poller struct {
	provider capability.Provider
	cfg      Config
	log      *slog.Logger
}

// New constructs a Poller. Zero config values fall back to the package defaults.
func New(provider capability.Provider, cfg Config, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	return &Poller{
		provider: provider,
		cfg:      cfg,
		log:      log,
	}
}

// Handle controls a running poll loop.
type Handle struct {
	paymentID string
	cancel    context.CancelFunc
	updates   chan Update
	done      chan struct{}
	stopOnce  sync.Once
}

// Updates delivers statuses in order. The channel is closed after the terminal update or on Stop.
func (h *Handle) Updates() <-chan Update {
	return h.updates
}

// Done is closed once the loop has exited and its ticker has been stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// PaymentID returns the session being polled.
func (h *Handle) PaymentID() string {
	return h.paymentID
}

// Stop cancels polling and waits for the loop to release its ticker. Safe to call repeatedly
// and on a nil handle.
func (h *Handle) Stop() {
	if h == nil {
		return
	}

	h.stopOnce.Do(h.cancel)
	<-h.done
}

// Start begins polling paymentID. The first query happens one interval after Start.
func (p *Poller) Start(ctx context.Context, paymentID string) *Handle {
	ctx, cancel := context.WithCancel(ctx)

	h := &Handle{
		paymentID: paymentID,
		cancel:    cancel,
		updates:   make(chan Update, 1),
		done:      make(chan struct{}),
	}

	ticker := p.cfg.Clock.NewTicker(p.cfg.Interval)
	go p.run(ctx, h, ticker)

	return h
}

func (p *Poller) run(ctx context.Context, h *Handle, ticker Ticker) {
	defer close(h.done)
	defer close(h.updates)
	defer ticker.Stop()
	defer h.cancel()

	log := p.log.With(slog.String("payment_id", h.paymentID))

	var (
		polls    int
		failures int
		lastErr  error
	)

	for {
		select {
		case <-ctx.Done():
			pollRecorder("cancelled")
			log.Debug("status polling stopped", slog.Int("polls", polls))
			return
		case <-ticker.C():
		}

		polls++

		status, err := p.query(ctx, h.paymentID)
		if err != nil {
			if ctx.Err() != nil {
				pollRecorder("cancelled")
				return
			}

			failures++
			lastErr = err
			pollRecorder("error")
			log.Warn("payment status query failed",
				slog.Int("consecutive_failures", failures),
				slog.Any("error", err),
			)

			if failures >= p.cfg.MaxFailures {
				p.abandon(ctx, h, polls, lastErr, log)
				return
			}
		} else {
			failures = 0
			pollRecorder(strings.ToLower(string(status.Status)))

			if !send(ctx, h.updates, Update{Status: status}) {
				return
			}
			if status.Status.Terminal() {
				log.Info("payment reached terminal status", slog.String("status", string(status.Status)), slog.Int("polls", polls))
				return
			}
		}

		if polls >= p.cfg.MaxPolls {
			p.abandon(ctx, h, polls, lastErr, log)
			return
		}
	}
}

func (p *Poller) query(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	raw, err := p.provider.Invoke(ctx, p.cfg.CapabilityID, capability.QueryStatus(paymentID))
	if err != nil {
		return domain.PaymentStatus{}, err
	}

	return capability.DecodeStatus(raw, paymentID)
}

func (p *Poller) abandon(ctx context.Context, h *Handle, polls int, cause error, log *slog.Logger) {
	pollRecorder("abandoned")
	log.Error("payment status polling abandoned", slog.Int("polls", polls), slog.Any("error", cause))
	send(ctx, h.updates, Update{Err: apperrors.NewPollingAbandonedError(h.paymentID, polls, cause)})
}

func send(ctx context.Context, updates chan<- Update, u Update) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
