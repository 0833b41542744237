package gateway

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pingEvent struct{ N int }

func (pingEvent) EventType() string { return "PING" }

type pongEvent struct{ N int }

func (pongEvent) EventType() string { return "PONG" }

func TestBusDeliveryOrder(t *testing.T) {
	b := NewBus(16)
	defer b.Close()

	var mu sync.Mutex
	var got []int
	OnBus(b, func(ev pingEvent) {
		mu.Lock()
		got = append(got, ev.N)
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		publish(b, pingEvent{N: i})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 20
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		require.Equal(t, i, n, "publish order must be delivery order")
	}
}

func TestBusSubscriptionOrder(t *testing.T) {
	b := NewBus(16)
	defer b.Close()

	var mu sync.Mutex
	var got []string
	OnBus(b, func(pingEvent) {
		mu.Lock()
		got = append(got, "first")
		mu.Unlock()
	})
	OnBus(b, func(pingEvent) {
		mu.Lock()
		got = append(got, "second")
		mu.Unlock()
	})

	publish(b, pingEvent{})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, got)
}

func TestBusUnsubscribeInsideCallback(t *testing.T) {
	b := NewBus(16)
	defer b.Close()

	var mu sync.Mutex
	count := 0
	var tok Token
	tok = OnBus(b, func(pingEvent) {
		mu.Lock()
		count++
		mu.Unlock()
		b.Unsubscribe(tok)
	})

	after := 0
	OnBus(b, func(pingEvent) {
		mu.Lock()
		after++
		mu.Unlock()
	})

	publish(b, pingEvent{})
	publish(b, pingEvent{})
	publish(b, pingEvent{})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return after == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, count, "self-unsubscribed callback must not fire again")
}

func TestBusSlowTopicDoesNotStallOthers(t *testing.T) {
	b := NewBus(4)
	defer b.Close()

	block := make(chan struct{})
	OnBus(b, func(pingEvent) { <-block })

	done := make(chan struct{})
	OnBus(b, func(pongEvent) { close(done) })

	publish(b, pingEvent{}) // parks the PING worker
	publish(b, pongEvent{})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PONG delivery stalled behind a blocked PING subscriber")
	}
	close(block)
}

func TestBusSubscriberPanicDoesNotKillTopic(t *testing.T) {
	b := NewBus(16)
	defer b.Close()

	OnBus(b, func(pingEvent) { panic("misbehaving subscriber") })
	var delivered atomic.Int32
	OnBus(b, func(pingEvent) { delivered.Add(1) })

	for i := 0; i < 3; i++ {
		publish(b, pingEvent{N: i})
	}

	require.Eventually(t, func() bool {
		return delivered.Load() == 3
	}, time.Second, 5*time.Millisecond, "topic worker must survive a panicking subscriber")
}

func TestBusPublishUnknownTopicIsDropped(t *testing.T) {
	b := NewBus(4)
	defer b.Close()
	// no subscriber ever existed for this topic; must not block or panic
	b.Publish("nobody-home", 1)
}

func TestOnIgnoresForeignPayloadType(t *testing.T) {
	b := NewBus(4)
	defer b.Close()

	var called atomic.Bool
	OnBus(b, func(pingEvent) { called.Store(true) })
	b.Publish("PING", "not a pingEvent")

	time.Sleep(20 * time.Millisecond)
	require.False(t, called.Load())
}
