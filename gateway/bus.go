package gateway

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"PClient/logger"
	safe "PClient/tools/safe"
)

// Event is any payload the bus can carry. The type name doubles as the topic,
// so one logical channel exists per event type.
type Event interface {
	EventType() string
}

// Token identifies a subscription for later removal.
type Token struct {
	topic string
	id    uint64
}

type busSub struct {
	id uint64
	fn func(any)
}

// topic owns its subscriber list and a single delivery worker, so fan-out of
// one event type never stalls another. Within a type, delivery keeps both
// publish order and subscription order.
type topic struct {
	name  string
	mu    sync.Mutex // guards subs
	subs  []busSub
	queue chan any
}

// Bus is the typed publish/subscribe fabric of the gateway. The listen loop
// is the only publisher of dispatch traffic, so per-topic queue order is
// arrival order.
type Bus struct {
	mu        sync.RWMutex
	topics    map[string]*topic
	closed    bool
	queueSize int
	nextID    atomic.Uint64
	wg        sync.WaitGroup
}

func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Bus{
		topics:    make(map[string]*topic),
		queueSize: queueSize,
	}
}

func (b *Bus) getOrCreate(name string) *topic {
	if t, ok := b.topics[name]; ok {
		return t
	}
	t := &topic{name: name, queue: make(chan any, b.queueSize)}
	b.topics[name] = t
	b.wg.Add(1)
	safe.Go("bus:"+name, func() {
		defer b.wg.Done()
		t.deliver()
	})
	return t
}

// Subscribe registers fn for a topic. Delivery order among subscribers of the
// same topic is subscription order.
func (b *Bus) Subscribe(name string, fn func(any)) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Token{}
	}
	t := b.getOrCreate(name)
	id := b.nextID.Add(1)
	t.mu.Lock()
	t.subs = append(t.subs, busSub{id: id, fn: fn})
	t.mu.Unlock()
	return Token{topic: name, id: id}
}

// Unsubscribe removes a subscriber. It takes effect for any delivery that has
// not yet snapshotted the subscriber list; a delivery already in flight may
// still reach the subscriber once. Safe to call from inside a callback.
func (b *Bus) Unsubscribe(tok Token) {
	if tok.id == 0 {
		return
	}
	b.mu.RLock()
	t, ok := b.topics[tok.topic]
	b.mu.RUnlock()
	if !ok {
		return
	}
	t.mu.Lock()
	for i, s := range t.subs {
		if s.id == tok.id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
}

// Publish enqueues payload for the topic's worker. Topics nobody ever
// subscribed to are dropped outright. A full queue blocks the publisher of
// this topic only.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	t, ok := b.topics[name]
	if !ok {
		return
	}
	t.queue <- payload
}

// Close stops all delivery workers after draining their queues. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, t := range b.topics {
		close(t.queue)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (t *topic) deliver() {
	for payload := range t.queue {
		t.mu.Lock()
		snap := make([]busSub, len(t.subs))
		copy(snap, t.subs)
		t.mu.Unlock()
		for _, s := range snap {
			t.invoke(s, payload)
		}
	}
	t.mu.Lock()
	n := len(t.subs)
	t.mu.Unlock()
	if n > 0 {
		logger.Debugf("[bus] topic %s worker exit, %d subscribers left", t.name, n)
	}
}

// invoke runs one subscriber. A panicking subscriber loses this delivery but
// never takes the topic worker (and with it every later delivery) down; fatal
// panics pass through so an inconsistent cache still aborts.
func (t *topic) invoke(s busSub, payload any) {
	defer func() {
		if r := recover(); r != nil {
			if safe.IsFatal(r) {
				panic(r)
			}
			logger.Errorf("[bus] topic %s subscriber panic recovered: %v\n%s", t.name, r, debug.Stack())
		}
	}()
	s.fn(payload)
}

// On subscribes a typed callback; the topic is T's event-type name.
func On[T Event](h *Handle, fn func(T)) Token {
	return OnBus(h.g.bus, fn)
}

// OnBus is On for a bare bus, used internally and by tests.
func OnBus[T Event](b *Bus, fn func(T)) Token {
	var zero T
	return b.Subscribe(zero.EventType(), func(p any) {
		if ev, ok := p.(T); ok {
			fn(ev)
		}
	})
}

func publish[T Event](b *Bus, ev T) {
	b.Publish(ev.EventType(), ev)
}
