package matchfeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var got1, got2 []Event
	_, err := bus.Subscribe(ctx, func(_ context.Context, ev Event) { got1 = append(got1, ev) })
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, func(_ context.Context, ev Event) { got2 = append(got2, ev) })
	require.NoError(t, err)

	bus.Publish(ctx, Event{IdentityToken: "token-1", SourceAddr: "10.0.0.5"})

	assert.Len(t, got1, 1)
	assert.Len(t, got2, 1)
	assert.Equal(t, "token-1", got1[0].IdentityToken)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var got []Event
	sub, err := bus.Subscribe(ctx, func(_ context.Context, ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	bus.Publish(ctx, Event{IdentityToken: "before"})
	sub.Unsubscribe()
	bus.Publish(ctx, Event{IdentityToken: "after"})

	require.Len(t, got, 1)
	assert.Equal(t, "before", got[0].IdentityToken)
}

func TestBus_UnsubscribeIdempotent(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(context.Background(), func(context.Context, Event) {})
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()
}
