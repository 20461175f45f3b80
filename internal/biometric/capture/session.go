// Package capture drives a single fingerprint scanner through its
// acquisition lifecycle and reports normalized, quality-gated samples to the
// caller.
//
// One session owns one device exclusively. Device callbacks are forwarded
// into a single run loop so state transitions stay sequential; callers
// observe the session through a stream of Updates and receive at most one
// Result.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"botica/internal/biometric/quality"
	"botica/internal/biometric/scanner"
	"botica/internal/biometric/template"
	"botica/pkg/domain"
)

// State is the capture session lifecycle state.
type State string

const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateScanning     State = "scanning"
	StateProcessing   State = "processing"
	StateLowQuality   State = "low_quality"
	StateSuccess      State = "success"
	StateError        State = "error"
)

// IsTerminal reports whether the session has finished. Error is not
// terminal: the caller keeps a retry affordance until it closes the session.
func (s State) IsTerminal() bool {
	return s == StateSuccess
}

// Capture errors surfaced on Updates.
var (
	ErrNoDevicesFound         = errors.New("no scanner devices found")
	ErrAcquisitionStartFailed = errors.New("failed to start acquisition")
	ErrDeviceDisconnected     = errors.New("scanner device disconnected")
	ErrSampleParseFailed      = errors.New("could not parse captured sample")
	ErrAttemptLimitReached    = errors.New("capture attempt limit reached")
)

const (
	defaultMaxAutoRetries = 3
	defaultMaxAttempts    = 10
)

// Result is the successful outcome of a session, delivered exactly once.
type Result struct {
	Template template.Template
	Score    int
	Device   domain.DeviceID
}

// Update is one observable state change of the session.
type Update struct {
	State    State
	Attempt  int
	Score    int
	Guidance string
	Err      error
	Result   *Result
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithQualityThreshold overrides the minimum acceptable quality score.
func WithQualityThreshold(threshold int) Option {
	return func(s *Session) { s.threshold = threshold }
}

// WithMaxAutoRetries overrides the bounded automatic re-acquisition on
// parse or hardware failure.
func WithMaxAutoRetries(n int) Option {
	return func(s *Session) { s.maxAutoRetries = n }
}

// WithMaxAttempts overrides the hard cap on caller-driven retries.
func WithMaxAttempts(n int) Option {
	return func(s *Session) { s.maxAttempts = n }
}

// Session is a single-device capture state machine.
type Session struct {
	capability     scanner.Capability
	logger         *slog.Logger
	threshold      int
	maxAutoRetries int
	maxAttempts    int

	// hardware callbacks and caller commands funnel into the run loop
	events   chan hwEvent
	commands chan command
	updates  chan Update

	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type hwEventKind int

const (
	evSamples hwEventKind = iota
	evQuality
	evDisconnected
	evError
)

type hwEvent struct {
	kind    hwEventKind
	payload []byte
	score   int
	err     error
}

type command int

const cmdScan command = 0

// New constructs a session over the injected scanner capability.
func New(capability scanner.Capability, opts ...Option) (*Session, error) {
	if capability == nil {
		return nil, fmt.Errorf("scanner capability is required")
	}

	s := &Session{
		capability:     capability,
		logger:         slog.Default(),
		threshold:      quality.DefaultThreshold,
		maxAutoRetries: defaultMaxAutoRetries,
		maxAttempts:    defaultMaxAttempts,
		events:         make(chan hwEvent, 16),
		commands:       make(chan command, 1),
		updates:        make(chan Update, 16),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start initializes the device and begins the run loop. The returned channel
// delivers every state change and closes when the session ends.
func (s *Session) Start(ctx context.Context) <-chan Update {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.capability.SetHandler(s)
	go s.run(runCtx)
	return s.updates
}

// Scan requests an acquisition attempt. Valid from ready, low_quality, and
// error states; the attempt cap is enforced inside the run loop.
func (s *Session) Scan() {
	select {
	case s.commands <- cmdScan:
	case <-s.done:
	}
}

// Close tears the session down regardless of state: acquisition is stopped
// and the device disposed so the physical scanner is never left locked.
// Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.capability.SetHandler(nil)

		ctx := context.Background()
		if err := s.capability.StopAcquisition(ctx); err != nil {
			s.logger.Debug("stop acquisition on close", "error", err)
		}
		if err := s.capability.Dispose(); err != nil {
			s.logger.Warn("dispose scanner capability", "error", err)
		}
	})
}

// Handler implementation: forward device callbacks into the run loop without
// blocking the SDK's callback thread.

func (s *Session) OnDeviceConnected(domain.DeviceID) {}

func (s *Session) OnDeviceDisconnected(domain.DeviceID) {
	s.push(hwEvent{kind: evDisconnected})
}

func (s *Session) OnQualityReported(report scanner.QualityReport) {
	s.push(hwEvent{kind: evQuality, score: report.Score})
}

func (s *Session) OnSamplesAcquired(samples scanner.SamplesEvent) {
	s.push(hwEvent{kind: evSamples, payload: samples.Payload})
}

func (s *Session) OnErrorOccurred(err error) {
	s.push(hwEvent{kind: evError, err: err})
}

func (s *Session) push(ev hwEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	default:
		// Callback burst beyond the buffer: drop rather than block the SDK.
	}
}

type loopState struct {
	state       State
	device      domain.DeviceID
	attempt     int
	autoRetries int
	lastScore   int
	resultSent  bool
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)

	ls := &loopState{state: StateInitializing, lastScore: -1}
	s.emit(ctx, Update{State: StateInitializing})

	if err := s.initialize(ctx, ls); err != nil {
		ls.state = StateError
		s.emit(ctx, Update{State: StateError, Err: err})
		// Stay alive: the caller may still issue Scan to retry after
		// reconnecting the device, or Close.
	}

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			if cmd == cmdScan {
				s.handleScan(ctx, ls)
			}
		case ev := <-s.events:
			s.handleEvent(ctx, ls, ev)
		}
		if ls.state.IsTerminal() {
			return
		}
	}
}

func (s *Session) initialize(ctx context.Context, ls *loopState) error {
	if err := s.capability.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize scanner: %w", err)
	}

	devices, err := s.capability.EnumerateDevices(ctx)
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoDevicesFound
	}

	ls.device = devices[0]
	ls.state = StateReady
	s.logger.Info("scanner ready", "device", ls.device, "devices_found", len(devices))
	s.emit(ctx, Update{State: StateReady})
	return nil
}

func (s *Session) handleScan(ctx context.Context, ls *loopState) {
	switch ls.state {
	case StateReady, StateLowQuality, StateError:
	default:
		return
	}

	if ls.device == "" {
		// Initialization failed earlier; try the whole sequence again.
		if err := s.initialize(ctx, ls); err != nil {
			ls.state = StateError
			s.emit(ctx, Update{State: StateError, Err: err})
			return
		}
	}

	if ls.attempt >= s.maxAttempts {
		ls.state = StateError
		s.emit(ctx, Update{State: StateError, Attempt: ls.attempt, Err: ErrAttemptLimitReached})
		return
	}

	s.startAcquisition(ctx, ls)
}

func (s *Session) startAcquisition(ctx context.Context, ls *loopState) {
	ls.attempt++
	ls.lastScore = -1

	if err := s.capability.StartAcquisition(ctx, scanner.FormatIntermediate, ls.device); err != nil {
		s.logger.Warn("start acquisition failed", "device", ls.device, "attempt", ls.attempt, "error", err)
		ls.state = StateError
		s.emit(ctx, Update{
			State:   StateError,
			Attempt: ls.attempt,
			Err:     fmt.Errorf("%w: %w", ErrAcquisitionStartFailed, err),
		})
		return
	}

	ls.state = StateScanning
	s.emit(ctx, Update{State: StateScanning, Attempt: ls.attempt})
}

func (s *Session) handleEvent(ctx context.Context, ls *loopState, ev hwEvent) {
	switch ev.kind {
	case evQuality:
		ls.lastScore = ev.score

	case evDisconnected:
		s.logger.Warn("scanner disconnected", "device", ls.device, "state", ls.state)
		ls.state = StateError
		ls.device = ""
		s.emit(ctx, Update{State: StateError, Attempt: ls.attempt, Err: ErrDeviceDisconnected})

	case evError:
		if ls.state != StateScanning {
			return
		}
		s.recoverOrFail(ctx, ls, fmt.Errorf("hardware error during acquisition: %w", ev.err))

	case evSamples:
		if ls.state != StateScanning {
			return
		}
		// Acquisition is single-shot per attempt.
		if err := s.capability.StopAcquisition(ctx); err != nil {
			s.logger.Debug("stop acquisition after samples", "error", err)
		}
		ls.state = StateProcessing
		s.emit(ctx, Update{State: StateProcessing, Attempt: ls.attempt})
		s.process(ctx, ls, ev.payload)
	}
}

func (s *Session) process(ctx context.Context, ls *loopState, payload []byte) {
	tpl, err := template.Normalize(payload)
	if err != nil {
		s.recoverOrFail(ctx, ls, fmt.Errorf("%w: %w", ErrSampleParseFailed, err))
		return
	}
	if tpl.Lossy {
		s.logger.Warn("template produced via lossy fallback", "device", ls.device, "attempt", ls.attempt)
	}

	score := quality.Clamp(ls.lastScore)
	if !quality.Accept(score, s.threshold) {
		s.logger.Info("sample rejected by quality gate",
			"device", ls.device,
			"attempt", ls.attempt,
			"score", score,
			"threshold", s.threshold,
		)
		ls.state = StateLowQuality
		s.emit(ctx, Update{
			State:    StateLowQuality,
			Attempt:  ls.attempt,
			Score:    score,
			Guidance: quality.Guidance(ls.attempt),
		})
		return
	}

	ls.state = StateSuccess
	if !ls.resultSent {
		ls.resultSent = true
		s.emit(ctx, Update{
			State:   StateSuccess,
			Attempt: ls.attempt,
			Score:   score,
			Result:  &Result{Template: tpl, Score: score, Device: ls.device},
		})
	}
}

// recoverOrFail re-enters scanning automatically for transient failures,
// bounded by maxAutoRetries, before surfacing the error to the caller.
func (s *Session) recoverOrFail(ctx context.Context, ls *loopState, err error) {
	if err := s.capability.StopAcquisition(ctx); err != nil {
		s.logger.Debug("stop acquisition during recovery", "error", err)
	}

	if ls.autoRetries < s.maxAutoRetries {
		ls.autoRetries++
		s.logger.Info("retrying acquisition automatically",
			"device", ls.device,
			"auto_retry", ls.autoRetries,
			"cause", err,
		)
		s.startAcquisition(ctx, ls)
		return
	}

	ls.state = StateError
	s.emit(ctx, Update{State: StateError, Attempt: ls.attempt, Err: err})
}

func (s *Session) emit(ctx context.Context, u Update) {
	select {
	case s.updates <- u:
	case <-ctx.Done():
	}
}
