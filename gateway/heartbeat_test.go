package gateway

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatBeatsOnCadenceWhenAcked(t *testing.T) {
	var beats atomic.Int64
	acks := make(chan struct{}, 1)

	hb := newHeartbeat(10*time.Millisecond, func() error {
		beats.Add(1)
		select {
		case acks <- struct{}{}:
		default:
		}
		return nil
	}, func() {
		t.Error("acked connection must not be declared a zombie")
	})
	hb.jitter = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hb.run(ctx, acks)

	require.Eventually(t, func() bool {
		return beats.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatZombieOnMissingAck(t *testing.T) {
	var zombie atomic.Bool
	acks := make(chan struct{}, 1)

	hb := newHeartbeat(10*time.Millisecond, func() error {
		return nil // beat sent, never acked
	}, func() {
		zombie.Store(true)
	})
	hb.jitter = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hb.run(ctx, acks)

	// zombie must fire on the cadence tick after the unacked beat
	require.Eventually(t, func() bool {
		return zombie.Load()
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatRequestBeatFiresImmediately(t *testing.T) {
	var beats atomic.Int64
	acks := make(chan struct{}, 1)

	hb := newHeartbeat(time.Hour, func() error {
		beats.Add(1)
		return nil
	}, func() {})
	hb.jitter = func() float64 { return 0.5 } // first cadence beat in 30m

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hb.run(ctx, acks)

	hb.requestBeat()
	require.Eventually(t, func() bool {
		return beats.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatStopsOnCancel(t *testing.T) {
	var beats atomic.Int64
	acks := make(chan struct{}, 1)

	hb := newHeartbeat(5*time.Millisecond, func() error {
		beats.Add(1)
		select {
		case acks <- struct{}{}:
		default:
		}
		return nil
	}, func() {})
	hb.jitter = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hb.run(ctx, acks)
		close(done)
	}()

	require.Eventually(t, func() bool { return beats.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat goroutine leaked after cancel")
	}
}

func TestHeartbeatSendFailureTriggersRecovery(t *testing.T) {
	var zombie atomic.Bool
	acks := make(chan struct{}, 1)

	hb := newHeartbeat(5*time.Millisecond, func() error {
		return context.DeadlineExceeded
	}, func() {
		zombie.Store(true)
	})
	hb.jitter = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hb.run(ctx, acks)

	require.Eventually(t, func() bool { return zombie.Load() }, time.Second, time.Millisecond)
}
