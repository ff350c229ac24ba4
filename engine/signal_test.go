package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignalBusSendRecv(t *testing.T) {
	bus := NewSignalBus(2, 4)

	bus.SendSignal(1, Signal{Src: 0, Kind: SignalDoReduce, Key: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg, ok := bus.RecvSignal(1, ctx.Done())
	require.True(t, ok)
	require.Equal(t, SignalDoReduce, msg.Kind)
	require.Equal(t, "a", msg.Key)
}

func TestSignalBusBroadcastSkipsSource(t *testing.T) {
	bus := NewSignalBus(3, 4)

	bus.BroadcastSignal(Signal{Src: 0, Kind: SignalDoGroup})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for rank := 1; rank < 3; rank++ {
		msg, ok := bus.RecvSignal(rank, ctx.Done())
		require.True(t, ok)
		require.Equal(t, SignalDoGroup, msg.Kind)
	}

	select {
	case msg := <-bus.inboxes[0]:
		t.Fatalf("source rank should not receive its own broadcast, got %v", msg)
	default:
	}
}

func TestSignalBusRecvUnblocksOnDone(t *testing.T) {
	bus := NewSignalBus(1, 1)

	done := make(chan struct{})
	close(done)

	_, ok := bus.RecvSignal(0, done)
	require.False(t, ok)
}

func TestSignalBusPreservesPerSenderOrder(t *testing.T) {
	bus := NewSignalBus(2, 8)

	bus.SendSignal(1, Signal{Src: 0, Kind: SignalDoReduce, Key: "a"})
	bus.SendSignal(1, Signal{Src: 0, Kind: SignalDoBroadcast, Key: "a"})
	bus.SendSignal(1, Signal{Src: 0, Kind: SignalDoGroup})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var kinds []SignalKind
	for i := 0; i < 3; i++ {
		msg, ok := bus.RecvSignal(1, ctx.Done())
		require.True(t, ok)
		kinds = append(kinds, msg.Kind)
	}
	require.Equal(t, []SignalKind{SignalDoReduce, SignalDoBroadcast, SignalDoGroup}, kinds)
}

func TestGroupTrackerFIFO(t *testing.T) {
	tracker := NewGroupTracker(4)

	tracker.Enqueue(&GroupEntry{ID: "g1"})
	tracker.Enqueue(&GroupEntry{ID: "g2"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g1, ok := tracker.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "g1", g1.ID)

	g2, ok := tracker.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "g2", g2.ID)
}

func TestGroupTrackerDequeueUnblocksOnCancel(t *testing.T) {
	tracker := NewGroupTracker(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := tracker.Dequeue(ctx)
	require.False(t, ok)
}

func TestGroupTrackerConcurrentProducerConsumer(t *testing.T) {
	tracker := NewGroupTracker(1)
	const n = 50

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			tracker.Enqueue(&GroupEntry{ID: string(rune('a' + i%26))})
		}
	}()

	var seen int
	for seen < n {
		select {
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for enqueued groups")
		default:
		}
		if _, ok := tracker.Dequeue(ctx); ok {
			seen++
		}
	}
	wg.Wait()
	require.Equal(t, n, seen)
}
