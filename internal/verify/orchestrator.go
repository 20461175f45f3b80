// Package verify coordinates push-style match events through identity
// resolution and exposes a single verification outcome to the caller.
//
// The scanner subsystem performs matching on its own and reports matches
// out-of-band on the match feed; the orchestrator reacts to those events
// rather than driving the device. One orchestrator serves one verification
// attempt at a POS terminal.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"botica/internal/events/matchfeed"
	"botica/internal/identity/models"
	"botica/internal/verify/metrics"
	dErrors "botica/pkg/domain-errors"
)

// Phase is the orchestrator lifecycle phase.
type Phase string

const (
	PhaseInitial   Phase = "initial"
	PhaseListening Phase = "listening"
	PhaseVerifying Phase = "verifying"
	PhaseSuccess   Phase = "success"
	PhaseFailed    Phase = "failed"
)

// State is one observable phase change, streamed to the caller.
type State struct {
	Phase  Phase
	Senior *models.Senior
	Reason string
}

// Resolver resolves a match token to an enrolled senior.
type Resolver interface {
	Resolve(ctx context.Context, identityToken string) (*models.Senior, error)
}

const (
	defaultListenTimeout  = 120 * time.Second
	defaultResolveTimeout = 15 * time.Second
	defaultSuccessDelay   = 2 * time.Second
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithListenTimeout bounds how long the orchestrator waits for a match
// event before failing the attempt.
func WithListenTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.listenTimeout = d }
}

// WithResolveTimeout bounds a single identity lookup.
func WithResolveTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.resolveTimeout = d }
}

// WithSuccessDelay sets the display delay before a success is reported.
func WithSuccessDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.successDelay = d }
}

// Orchestrator is a single-use verification state machine.
//
// Guarantees: at most one resolver call in flight; match events arriving
// while verifying are dropped; resolver results arriving after Cancel or
// Retry are discarded (stale-response guard).
type Orchestrator struct {
	feed           matchfeed.Feed
	resolver       Resolver
	logger         *slog.Logger
	metrics        *metrics.Metrics
	listenTimeout  time.Duration
	resolveTimeout time.Duration
	successDelay   time.Duration

	mu          sync.Mutex
	phase       Phase
	generation  int
	sub         matchfeed.Subscription
	listenTimer *time.Timer
	states      chan State
	closed      bool
	runCtx      context.Context
	runCancel   context.CancelFunc
}

// New constructs an orchestrator over the match feed and resolver.
func New(feed matchfeed.Feed, resolver Resolver, opts ...Option) (*Orchestrator, error) {
	if feed == nil {
		return nil, fmt.Errorf("match feed is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	o := &Orchestrator{
		feed:           feed,
		resolver:       resolver,
		logger:         slog.Default(),
		listenTimeout:  defaultListenTimeout,
		resolveTimeout: defaultResolveTimeout,
		successDelay:   defaultSuccessDelay,
		phase:          PhaseInitial,
		states:         make(chan State, 16),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Start subscribes to the match feed and begins listening. The returned
// channel delivers every phase change and closes when the orchestrator is
// cancelled.
func (o *Orchestrator) Start(ctx context.Context) (<-chan State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhaseInitial {
		return nil, dErrors.New(dErrors.CodeConflict, "verification already started")
	}

	o.runCtx, o.runCancel = context.WithCancel(ctx)

	sub, err := o.feed.Subscribe(o.runCtx, o.onMatch)
	if err != nil {
		o.runCancel()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cannot listen for match events")
	}
	o.sub = sub

	o.enterListeningLocked()
	return o.states, nil
}

// Retry discards a failure and listens again.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return dErrors.New(dErrors.CodeConflict, "verification cancelled")
	}
	if o.phase != PhaseFailed {
		return dErrors.New(dErrors.CodeConflict, "can only retry a failed verification")
	}

	o.generation++
	o.enterListeningLocked()
	return nil
}

// Cancel stops the verification from any phase. The match feed subscription
// is released so a stale listener can never fire after cancellation, and any
// in-flight resolver result is discarded when it lands. Idempotent.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

func (o *Orchestrator) teardownLocked() {
	if o.closed {
		return
	}
	o.closed = true
	o.generation++
	o.stopListenTimerLocked()
	if o.sub != nil {
		o.sub.Unsubscribe()
	}
	if o.runCancel != nil {
		o.runCancel()
	}
	close(o.states)
}

func (o *Orchestrator) enterListeningLocked() {
	o.phase = PhaseListening
	o.emitLocked(State{Phase: PhaseListening})

	if o.listenTimeout <= 0 {
		return
	}
	gen := o.generation
	o.stopListenTimerLocked()
	o.listenTimer = time.AfterFunc(o.listenTimeout, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed || o.generation != gen || o.phase != PhaseListening {
			return
		}
		o.logger.Info("verification timed out waiting for a match")
		o.recordOutcome("listen_timeout")
		o.phase = PhaseFailed
		o.emitLocked(State{Phase: PhaseFailed, Reason: "no fingerprint match received"})
	})
}

func (o *Orchestrator) stopListenTimerLocked() {
	if o.listenTimer != nil {
		o.listenTimer.Stop()
		o.listenTimer = nil
	}
}

// onMatch handles one match event from the feed.
func (o *Orchestrator) onMatch(_ context.Context, ev matchfeed.Event) {
	o.mu.Lock()
	if o.closed || o.phase != PhaseListening {
		// A second event while verifying is ignored until the orchestrator
		// returns to listening.
		o.mu.Unlock()
		return
	}

	o.stopListenTimerLocked()
	o.phase = PhaseVerifying
	gen := o.generation
	o.emitLocked(State{Phase: PhaseVerifying})
	ctx := o.runCtx
	o.mu.Unlock()

	o.logger.Info("match event received", "source", ev.SourceAddr)
	go o.resolve(ctx, gen, ev.IdentityToken)
}

func (o *Orchestrator) resolve(ctx context.Context, gen int, token string) {
	resolveCtx, cancel := context.WithTimeout(ctx, o.resolveTimeout)
	defer cancel()

	start := time.Now()
	senior, err := o.resolver.Resolve(resolveCtx, token)
	if o.metrics != nil {
		o.metrics.ObserveResolve(time.Since(start))
	}

	if err == nil {
		// Short display delay so the cashier sees who matched before the
		// outcome is reported. A cancellation during the delay discards the
		// result.
		select {
		case <-time.After(o.successDelay):
		case <-ctx.Done():
			return
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.generation != gen {
		// Stale response after cancel or retry.
		o.logger.Debug("discarding stale resolver result")
		return
	}

	if err != nil {
		o.logger.Info("identity resolution failed", "error", err)
		o.recordOutcome(outcomeForError(err))
		o.phase = PhaseFailed
		o.emitLocked(State{Phase: PhaseFailed, Reason: failureReason(err)})
		return
	}

	o.recordOutcome("success")
	o.phase = PhaseSuccess
	o.emitLocked(State{Phase: PhaseSuccess, Senior: senior})

	// Inert after success: no further events are wanted.
	if o.sub != nil {
		o.sub.Unsubscribe()
	}
}

func (o *Orchestrator) emitLocked(s State) {
	if o.closed {
		return
	}
	select {
	case o.states <- s:
	default:
		// Caller fell behind; phase changes are few, so dropping means the
		// stream consumer is gone. The terminal phase is still recorded.
		o.logger.Warn("dropping verification state, slow consumer", "phase", s.Phase)
	}
}

func (o *Orchestrator) recordOutcome(outcome string) {
	if o.metrics != nil {
		o.metrics.RecordOutcome(outcome)
	}
}

func outcomeForError(err error) string {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return "not_enrolled"
	}
	return "resolver_error"
}

func failureReason(err error) string {
	if msg := dErrors.MessageOf(err); msg != "" {
		return msg
	}
	return "identity could not be verified"
}
