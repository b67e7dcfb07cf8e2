// Package flow drives a single on-ramp supply attempt from amount entry to payment release.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/onramp/internal/amount"
	"github.com/Proton-105/onramp/internal/caps"
	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
	"github.com/Proton-105/onramp/internal/poller"
	"github.com/Proton-105/onramp/internal/session"
	"github.com/Proton-105/onramp/internal/sessionstore"
	"github.com/Proton-105/onramp/pkg/logger"
)

const ledgerTimeout = 5 * time.Second

var (
	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("flow controller closed")
	// ErrSubmitNotAllowed indicates submit was called while it is disabled.
	ErrSubmitNotAllowed = errors.New("submit not allowed")
	// ErrAttemptAbandoned indicates the attempt was superseded while its session was being opened.
	ErrAttemptAbandoned = errors.New("attempt abandoned")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

var attemptRecorder = func(outcome string, duration time.Duration) {}

// RegisterAttemptRecorder allows external packages to observe how attempts end and how long
// they took from submit.
func RegisterAttemptRecorder(recorder func(outcome string, duration time.Duration)) {
	if recorder == nil {
		attemptRecorder = func(string, time.Duration) {}
		return
	}

	attemptRecorder = recorder
}

// Initiator opens payment sessions.
type Initiator interface {
	Initiate(ctx context.Context, req session.Request) (domain.OnRampSession, error)
}

// StatusPoller starts status polling for a session.
type StatusPoller interface {
	Start(ctx context.Context, paymentID string) *poller.Handle
}

// Opener surfaces a redirect to the user.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// Params is the data consumed from the surrounding application for one flow.
type Params struct {
	Reserve  domain.ReserveSnapshot
	Market   domain.Market
	Balances domain.Balances
	Account  string
}

// Dependencies are the collaborators a Controller calls.
type Dependencies struct {
	Resolver  *amount.Resolver
	Caps      caps.Validator
	Initiator Initiator
	Poller    StatusPoller
	Opener    Opener
	// Store is optional; ledger failures are logged and never affect the flow.
	Store  sessionstore.Store
	Errors *apperrors.Handler
	Log    *slog.Logger
}

// Controller owns the flow state. It is the only component that calls the resolver,
// validator, initiator and poller, and it holds at most one poller at a time.
type Controller struct {
	params Params
	deps   Dependencies
	log    *slog.Logger

	mu         sync.Mutex
	state      State
	input      string
	resolution amount.Resolution
	valid      bool
	blocking   *Blocking
	warning    string
	session    *domain.OnRampSession
	lastStatus domain.Status

	attempt      uint64
	attemptID    string
	attemptStart time.Time
	cancelInit   context.CancelFunc
	handle       *poller.Handle
	closed       bool

	listeners    map[int]func(View)
	nextListener int
}

// New creates a Controller in the Idle state.
func New(params Params, deps Dependencies) *Controller {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Resolver == nil {
		deps.Resolver = amount.NewResolver(amount.DefaultGasReserve)
	}
	if deps.Errors == nil {
		deps.Errors = apperrors.NewHandler(deps.Log, false)
	}

	c := &Controller{
		params:    params,
		deps:      deps,
		log:       deps.Log.With(slog.String("asset", params.Reserve.Symbol)),
		state:     StateIdle,
		listeners: make(map[int]func(View)),
	}
	c.resolution.Max = deps.Resolver.Max(params.Balances.WalletBalance(params.Reserve), params.Reserve)

	return c
}

// Subscribe registers fn to receive a View after every change. The returned function
// removes the subscription.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Snapshot returns the current View.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.viewLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// SetAmount abandons any in-flight attempt, then resolves and cap-checks raw. It returns
// the InvalidAmount or CapExceeded error shown to the user, if any.
func (c *Controller) SetAmount(ctx context.Context, raw string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	ledger := c.abandonLocked()

	c.transitionLocked(StateValidating)
	c.input = raw
	c.valid = false
	c.blocking = nil
	c.warning = ""
	c.session = nil
	c.lastStatus = ""

	balance := c.params.Balances.WalletBalance(c.params.Reserve)
	resolution, err := c.deps.Resolver.Resolve(raw, balance, c.params.Reserve, c.params.Market)
	c.resolution = resolution

	var blockingErr error
	switch {
	case err != nil:
		blockingErr = err
		c.blocking = blockingFor(err)
		c.transitionLocked(StateIdle)
	default:
		check := c.deps.Caps.Check(resolution.Amount, c.params.Reserve)
		if check.Exceeded {
			blockingErr = apperrors.NewCapExceededError(resolution.Amount.Raw.String(), check.Headroom.String())
			c.blocking = blockingFor(blockingErr)
			c.transitionLocked(StateCapExceeded)
		} else {
			c.valid = resolution.Amount.IsPositive()
			c.transitionLocked(StateIdle)
		}
	}

	view, listeners := c.publishLocked()
	c.mu.Unlock()

	ledger()
	notify(view, listeners)

	if blockingErr != nil {
		c.log.DebugContext(ctx, "amount blocked", slog.String("input", raw), slog.String("kind", apperrors.KindOf(blockingErr).String()))
	}

	return blockingErr
}

// Submit opens a payment session for the current amount and, on success, surfaces the
// redirect and starts polling. It blocks until the session is created or initiation fails.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.submitEnabledLocked() {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w in state %s", ErrSubmitNotAllowed, state)
	}

	ledger := c.abandonLocked()

	gen := c.attempt
	c.attemptID = uuid.NewString()
	c.attemptStart = time.Now()
	ctx = logger.WithCorrelationID(ctx, c.attemptID)

	initCtx, cancel := context.WithCancel(ctx)
	c.cancelInit = cancel

	c.blocking = nil
	c.warning = ""
	c.session = nil
	c.lastStatus = ""
	c.transitionLocked(StateInitiating)

	req := session.Request{
		Asset:    c.params.Reserve.Symbol,
		Amount:   c.resolution.Amount,
		Decimals: c.params.Reserve.Decimals,
		Account:  c.params.Account,
	}
	attemptID := c.attemptID

	view, listeners := c.publishLocked()
	c.mu.Unlock()

	ledger()
	notify(view, listeners)

	log := c.log.With(slog.String("correlation_id", attemptID))
	log.InfoContext(ctx, "submitting on-ramp", slog.String("amount", req.Amount.Raw.String()), slog.Bool("max", req.Amount.IsMax))

	sess, err := c.deps.Initiator.Initiate(initCtx, req)
	cancel()
	if err == nil {
		c.saveSession(attemptID, req, sess)
	}

	c.mu.Lock()
	if gen != c.attempt || c.closed {
		c.mu.Unlock()
		if err == nil {
			c.updateLedger(sess.ID, domain.StatusPending, sessionstore.OutcomeCancelled)
		}
		log.InfoContext(ctx, "on-ramp attempt superseded during initiation")
		return ErrAttemptAbandoned
	}
	c.cancelInit = nil

	if err != nil {
		if ctx.Err() != nil && apperrors.KindOf(err) == apperrors.KindUnknown {
			c.transitionLocked(StateIdle)
			view, listeners = c.publishLocked()
			c.mu.Unlock()
			notify(view, listeners)
			return err
		}

		message, retryable := c.deps.Errors.Handle(ctx, err)
		c.blocking = &Blocking{Kind: apperrors.KindOf(err), Message: message, Retryable: retryable}
		c.transitionLocked(StateFailed)
		attemptRecorder(apperrors.KindOf(err).String(), time.Since(c.attemptStart))

		view, listeners = c.publishLocked()
		c.mu.Unlock()
		notify(view, listeners)
		return err
	}

	c.session = &sess
	c.lastStatus = domain.StatusPending
	c.transitionLocked(StateAwaitingPayment)
	c.handle = c.deps.Poller.Start(context.WithoutCancel(ctx), sess.ID)
	go c.consume(gen, c.handle)

	view, listeners = c.publishLocked()
	c.mu.Unlock()

	notify(view, listeners)

	c.openRedirect(ctx, gen, sess.RedirectURL)

	return nil
}

// Reset abandons the current attempt and clears the amount.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	ledger := c.abandonLocked()

	c.input = ""
	c.valid = false
	c.blocking = nil
	c.warning = ""
	c.session = nil
	c.lastStatus = ""
	c.resolution = amount.Resolution{Max: c.resolution.Max}
	c.transitionLocked(StateIdle)

	view, listeners := c.publishLocked()
	c.mu.Unlock()

	ledger()
	notify(view, listeners)
}

// Close abandons the current attempt, stopping its poller and cancelling any in-flight
// initiation. Further commands return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	ledger := c.abandonLocked()
	c.closed = true
	c.listeners = make(map[int]func(View))
	c.mu.Unlock()

	ledger()
}

func (c *Controller) openRedirect(ctx context.Context, gen uint64, url string) {
	if c.deps.Opener == nil {
		return
	}

	err := c.deps.Opener.Open(url)
	if err == nil {
		return
	}

	c.log.WarnContext(ctx, "failed to open payment redirect", slog.String("url", url), slog.Any("error", err))

	c.mu.Lock()
	if gen != c.attempt || c.closed {
		c.mu.Unlock()
		return
	}
	c.warning = fmt.Sprintf("Could not open the payment page. Continue at %s", url)
	view, listeners := c.publishLocked()
	c.mu.Unlock()

	notify(view, listeners)
}

func (c *Controller) consume(gen uint64, handle *poller.Handle) {
	for update := range handle.Updates() {
		c.apply(gen, handle, update)
	}
}

func (c *Controller) apply(gen uint64, handle *poller.Handle, update poller.Update) {
	c.mu.Lock()
	if gen != c.attempt || c.closed || c.session == nil {
		c.mu.Unlock()
		return
	}

	sessionID := c.session.ID
	ctx := logger.WithCorrelationID(context.Background(), c.attemptID)

	var outcome sessionstore.Outcome
	switch {
	case update.Err != nil:
		message, retryable := c.deps.Errors.Handle(ctx, update.Err)
		c.blocking = &Blocking{Kind: apperrors.KindOf(update.Err), Message: message, Retryable: retryable}
		c.transitionLocked(StateFailed)
		outcome = sessionstore.OutcomeAbandoned
	case update.Status.Status == domain.StatusReleased:
		c.lastStatus = update.Status.Status
		c.transitionLocked(StateReleased)
		outcome = sessionstore.OutcomeReleased
	case update.Status.Status == domain.StatusFailed:
		c.lastStatus = update.Status.Status
		err := apperrors.NewPaymentFailedError(sessionID)
		message, retryable := c.deps.Errors.Handle(ctx, err)
		c.blocking = &Blocking{Kind: apperrors.KindPaymentFailed, Message: message, Retryable: retryable}
		c.transitionLocked(StateFailed)
		outcome = sessionstore.OutcomeFailed
	default:
		c.lastStatus = update.Status.Status
	}

	status := c.lastStatus
	if outcome != "" {
		if c.handle == handle {
			c.handle = nil
		}
		attemptRecorder(string(outcome), time.Since(c.attemptStart))
	}

	view, listeners := c.publishLocked()
	c.mu.Unlock()

	if outcome != "" {
		handle.Stop()
		c.updateLedger(sessionID, status, outcome)
		c.log.Info("on-ramp attempt finished", slog.String("session_id", sessionID), slog.String("outcome", string(outcome)))
	}
	notify(view, listeners)
}

// abandonLocked tears down the in-flight attempt and returns the ledger write to perform
// once the lock is released.
func (c *Controller) abandonLocked() func() {
	c.attempt++

	if c.cancelInit != nil {
		c.cancelInit()
		c.cancelInit = nil
	}

	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}

	if c.session == nil || c.state.Terminal() {
		return func() {}
	}

	sessionID, status := c.session.ID, c.lastStatus
	attemptRecorder(string(sessionstore.OutcomeCancelled), time.Since(c.attemptStart))
	c.log.Info("on-ramp attempt abandoned", slog.String("session_id", sessionID))

	return func() {
		c.updateLedger(sessionID, status, sessionstore.OutcomeCancelled)
	}
}

func (c *Controller) transitionLocked(to State) bool {
	from := c.state
	if from == to {
		return true
	}

	if !IsTransitionAllowed(from, to) {
		c.log.Warn("invalid flow transition", slog.String("from", string(from)), slog.String("to", string(to)))
		return false
	}

	transitionRecorder(string(from), string(to))
	c.state = to

	return true
}

func (c *Controller) submitEnabledLocked() bool {
	return c.valid && (c.state == StateIdle || c.state == StateFailed)
}

func (c *Controller) viewLocked() View {
	view := View{
		State:         c.state,
		Input:         c.input,
		Amount:        c.resolution.Amount,
		FiatValue:     c.resolution.FiatValue,
		Max:           c.resolution.Max,
		Symbol:        c.params.Market.DisplaySymbol(c.params.Reserve),
		Warning:       c.warning,
		LastStatus:    c.lastStatus,
		Token:         c.params.Reserve.AToken(),
		SubmitEnabled: c.submitEnabledLocked(),
	}

	if c.blocking != nil {
		blocking := *c.blocking
		view.Blocking = &blocking
	}
	if c.session != nil {
		sess := *c.session
		view.Session = &sess
	}

	return view
}

func (c *Controller) publishLocked() (View, []func(View)) {
	listeners := make([]func(View), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}

	return c.viewLocked(), listeners
}

func notify(view View, listeners []func(View)) {
	for _, fn := range listeners {
		fn(view)
	}
}

func blockingFor(err error) *Blocking {
	kind := apperrors.KindOf(err)

	return &Blocking{
		Kind:      kind,
		Message:   apperrors.UserMessage(kind),
		Retryable: apperrors.IsRetryable(err),
	}
}

func (c *Controller) saveSession(attemptID string, req session.Request, sess domain.OnRampSession) {
	if c.deps.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	rec := sessionstore.Record{
		SessionID:   sess.ID,
		AttemptID:   attemptID,
		RedirectURL: sess.RedirectURL,
		Account:     req.Account,
		Asset:       req.Asset,
		Amount:      req.Amount.BaseUnits(req.Decimals),
		Status:      domain.StatusPending,
		Outcome:     sessionstore.OutcomeOpen,
	}
	if err := c.deps.Store.Save(ctx, rec); err != nil {
		c.log.Error("failed to record on-ramp session", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
}

func (c *Controller) updateLedger(sessionID string, status domain.Status, outcome sessionstore.Outcome) {
	if c.deps.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	if err := c.deps.Store.UpdateStatus(ctx, sessionID, status, outcome); err != nil {
		c.log.Error("failed to update on-ramp session record",
			slog.String("session_id", sessionID),
			slog.String("outcome", string(outcome)),
			slog.Any("error", err),
		)
	}
}
