package verify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botica/internal/events/matchfeed"
	"botica/internal/identity/models"
	"botica/pkg/domain"
	dErrors "botica/pkg/domain-errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	mu     sync.Mutex
	calls  int
	senior *models.Senior
	err    error
	block  chan struct{}
}

func (f *fakeResolver) Resolve(ctx context.Context, _ string) (*models.Senior, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	senior, err := f.senior, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return senior, err
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func enrolledSenior() *models.Senior {
	return &models.Senior{
		ID:        domain.SeniorID(uuid.New()),
		FirstName: "Lourdes",
		LastName:  "Santos",
	}
}

func newOrchestrator(t *testing.T, feed matchfeed.Feed, r Resolver, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{
		WithLogger(testLogger()),
		WithSuccessDelay(5 * time.Millisecond),
		WithListenTimeout(2 * time.Second),
	}, opts...)
	o, err := New(feed, r, opts...)
	require.NoError(t, err)
	return o
}

func waitForPhase(t *testing.T, states <-chan State, want Phase) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-states:
			if !ok {
				t.Fatalf("states closed while waiting for phase %q", want)
			}
			if s.Phase == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %q", want)
		}
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, &fakeResolver{})
	require.Error(t, err)

	_, err = New(matchfeed.NewBus(), nil)
	require.Error(t, err)
}

func TestOrchestrator_SuccessfulVerification(t *testing.T) {
	bus := matchfeed.NewBus()
	resolver := &fakeResolver{senior: enrolledSenior()}
	o := newOrchestrator(t, bus, resolver)
	defer o.Cancel()

	states, err := o.Start(context.Background())
	require.NoError(t, err)
	waitForPhase(t, states, PhaseListening)

	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "tok", SourceAddr: "10.1.1.2"})
	waitForPhase(t, states, PhaseVerifying)

	s := waitForPhase(t, states, PhaseSuccess)
	require.NotNil(t, s.Senior)
	assert.Equal(t, "Lourdes Santos", s.Senior.FullName())
	assert.Equal(t, 1, resolver.callCount())
}

func TestOrchestrator_StartTwiceConflicts(t *testing.T) {
	o := newOrchestrator(t, matchfeed.NewBus(), &fakeResolver{senior: enrolledSenior()})
	defer o.Cancel()

	_, err := o.Start(context.Background())
	require.NoError(t, err)

	_, err = o.Start(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

// Sending two match events while verifying results in exactly one resolver
// invocation.
func TestOrchestrator_AtMostOneResolverCall(t *testing.T) {
	bus := matchfeed.NewBus()
	block := make(chan struct{})
	resolver := &fakeResolver{senior: enrolledSenior(), block: block}
	o := newOrchestrator(t, bus, resolver)
	defer o.Cancel()

	states, err := o.Start(context.Background())
	require.NoError(t, err)
	waitForPhase(t, states, PhaseListening)

	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "first"})
	waitForPhase(t, states, PhaseVerifying)

	// These arrive while verifying and must be ignored.
	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "second"})
	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "third"})

	close(block)
	waitForPhase(t, states, PhaseSuccess)
	assert.Equal(t, 1, resolver.callCount())
}

// A resolver result landing after cancellation must not surface success.
func TestOrchestrator_StaleResponseAfterCancel(t *testing.T) {
	bus := matchfeed.NewBus()
	block := make(chan struct{})
	resolver := &fakeResolver{senior: enrolledSenior(), block: block}
	o := newOrchestrator(t, bus, resolver)

	states, err := o.Start(context.Background())
	require.NoError(t, err)
	waitForPhase(t, states, PhaseListening)

	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "tok"})
	waitForPhase(t, states, PhaseVerifying)

	o.Cancel()
	close(block) // resolver now completes, too late

	// The states channel closes without ever reporting success.
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case s, ok := <-states:
			if !ok {
				return
			}
			assert.NotEqual(t, PhaseSuccess, s.Phase, "stale result surfaced after cancel")
		case <-deadline:
			t.Fatal("states channel never closed after cancel")
		}
	}
}

func TestOrchestrator_FailureAndRetry(t *testing.T) {
	bus := matchfeed.NewBus()
	resolver := &fakeResolver{err: dErrors.New(dErrors.CodeNotFound, "no enrolled senior matches this fingerprint")}
	o := newOrchestrator(t, bus, resolver)
	defer o.Cancel()

	states, err := o.Start(context.Background())
	require.NoError(t, err)
	waitForPhase(t, states, PhaseListening)

	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "tok"})
	s := waitForPhase(t, states, PhaseFailed)
	assert.Equal(t, "no enrolled senior matches this fingerprint", s.Reason)

	// Operator retries; the record is enrolled by now.
	resolver.mu.Lock()
	resolver.err = nil
	resolver.senior = enrolledSenior()
	resolver.mu.Unlock()

	require.NoError(t, o.Retry())
	waitForPhase(t, states, PhaseListening)

	bus.Publish(context.Background(), matchfeed.Event{IdentityToken: "tok"})
	waitForPhase(t, states, PhaseSuccess)
	assert.Equal(t, 2, resolver.callCount())
}

func TestOrchestrator_RetryOnlyFromFailed(t *testing.T) {
	o := newOrchestrator(t, matchfeed.NewBus(), &fakeResolver{senior: enrolledSenior()})
	defer o.Cancel()

	_, err := o.Start(context.Background())
	require.NoError(t, err)

	err = o.Retry()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestOrchestrator_ListenTimeout(t *testing.T) {
	o := newOrchestrator(t, matchfeed.NewBus(), &fakeResolver{},
		WithListenTimeout(20*time.Millisecond))
	defer o.Cancel()

	states, err := o.Start(context.Background())
	require.NoError(t, err)

	s := waitForPhase(t, states, PhaseFailed)
	assert.Contains(t, s.Reason, "no fingerprint match")
}

func TestOrchestrator_CancelIdempotent(t *testing.T) {
	o := newOrchestrator(t, matchfeed.NewBus(), &fakeResolver{})

	_, err := o.Start(context.Background())
	require.NoError(t, err)

	o.Cancel()
	o.Cancel()
}
