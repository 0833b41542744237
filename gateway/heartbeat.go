package gateway

import (
	"context"
	"math/rand"
	"time"

	"PClient/logger"
)

// heartbeat drives the keepalive cadence of one connection. It lives exactly
// as long as the connection: a reconnect tears it down with its context and
// starts a fresh one from the next Hello.
type heartbeat struct {
	interval time.Duration
	send     func() error // encodes the current sequence at call time
	onZombie func()

	// beatNow requests an out-of-cadence beat (server opcode Heartbeat).
	// Capacity 1: coalescing concurrent requests is fine, they all mean
	// "beat as soon as possible".
	beatNow chan struct{}

	// jitter returns a factor in [0,1) applied to the first wait, so a fleet
	// of clients identifying together does not beat in lockstep. Injectable
	// for tests.
	jitter func() float64

	ackPending bool
}

func newHeartbeat(interval time.Duration, send func() error, onZombie func()) *heartbeat {
	return &heartbeat{
		interval: interval,
		send:     send,
		onZombie: onZombie,
		beatNow:  make(chan struct{}, 1),
		jitter:   rand.Float64,
	}
}

// requestBeat asks for an immediate heartbeat without blocking.
func (hb *heartbeat) requestBeat() {
	select {
	case hb.beatNow <- struct{}{}:
	default:
	}
}

// run loops until ctx is cancelled. Each cadence tick first checks that the
// previous beat was acknowledged; a missing ack means the connection is a
// zombie and onZombie fires instead of another send. ackPending is only
// touched on this goroutine; acks arrive through the ack channel drained here.
func (hb *heartbeat) run(ctx context.Context, acks <-chan struct{}) {
	timer := time.NewTimer(time.Duration(hb.jitter() * float64(hb.interval)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-acks:
			hb.ackPending = false

		case <-hb.beatNow:
			if !hb.beat() {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(hb.interval)

		case <-timer.C:
			if hb.ackPending {
				logger.Warn("[heartbeat] no ack since last beat, connection is a zombie")
				hb.onZombie()
				return
			}
			if !hb.beat() {
				return
			}
			timer.Reset(hb.interval)
		}
	}
}

func (hb *heartbeat) beat() bool {
	if err := hb.send(); err != nil {
		logger.Warnf("[heartbeat] send failed: %v", err)
		hb.onZombie()
		return false
	}
	hb.ackPending = true
	return true
}
