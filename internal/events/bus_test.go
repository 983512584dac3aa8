package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	subA := bus.Subscribe()
	subB := bus.Subscribe()
	defer subA.Close()
	defer subB.Close()

	bus.Publish(New(TaskFetcherWorker(), EventSuccess, "got task T1"))

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case e := <-sub.Events():
			require.Equal(t, "got task T1", e.Message)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()
	sub.Close()
	require.NotPanics(t, sub.Close)
}

func TestEventShouldDisplay(t *testing.T) {
	success := New(ProofSubmitterWorker(), EventSuccess, "Submitted!")
	require.True(t, success.ShouldDisplay(LogError))

	debugMsg := NewWithLevel(TaskFetcherWorker(), EventRefresh, LogDebug, "polling")
	require.False(t, debugMsg.ShouldDisplay(LogError))
	require.True(t, debugMsg.ShouldDisplay(LogDebug))

	state := StateChange(StateProving, "now proving", time.Now())
	require.True(t, state.ShouldDisplay(LogError))
}
