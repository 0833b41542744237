package gateway

import (
	"fmt"

	errs "PClient/tools/errs"
	ids "PClient/tools/ids"
)

type dispatchFn func(h *Handle, raw []byte) error

// Registry is the explicit event-name -> decoder table driving the listen
// loop. It is assembled once at startup (see types.NewRegistry) and read-only
// afterwards, so lookups are lock-free.
type Registry struct {
	entries map[string]dispatchFn
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]dispatchFn)}
}

func (r *Registry) add(name string, fn dispatchFn) {
	if _, dup := r.entries[name]; dup {
		panic(fmt.Sprintf("registry: duplicate event %q", name))
	}
	r.entries[name] = fn
}

func (r *Registry) lookup(name string) (dispatchFn, bool) {
	fn, ok := r.entries[name]
	return fn, ok
}

// RegisterEvent wires a plain dispatch: decode T by its event-type tag and
// publish it.
func RegisterEvent[T Event](r *Registry) {
	var zero T
	name := zero.EventType()
	r.add(name, func(h *Handle, raw []byte) error {
		var ev T
		if err := jsonAPI.Unmarshal(raw, &ev); err != nil {
			return errs.ErrDecode.WrapMsg("event", "t", name, "err", err)
		}
		publish(h.g.bus, ev)
		return nil
	})
}

// RegisterUpdate wires an update-shaped dispatch: decode E and, when its
// target ID is cached, canonicalize the carried entity's observable fields
// and apply it to the entry. An unobserved target leaves the cache untouched.
// Either way E is published like any other event.
func RegisterUpdate[E Event, T Observable[T]](r *Registry, extract func(E) T) {
	var zero E
	name := zero.EventType()
	r.add(name, func(h *Handle, raw []byte) error {
		var ev E
		if err := jsonAPI.Unmarshal(raw, &ev); err != nil {
			return errs.ErrDecode.WrapMsg("event", "t", name, "err", err)
		}
		v := extract(ev)
		if h.g.store.Contains(v.EntityID()) {
			v = v.WatchFields(h)
			h.g.bus.Publish(entityTopic(v.EntityID()), entityUpdated{
				id:    v.EntityID(),
				kind:  v.Kind(),
				value: v,
			})
		}
		publish(h.g.bus, ev)
		return nil
	})
}

// RegisterDelete wires a delete-shaped dispatch: the cache entry is removed
// and its update subscription cancelled before the event goes public.
func RegisterDelete[E Event](r *Registry, target func(E) ids.EntityID) {
	var zero E
	name := zero.EventType()
	r.add(name, func(h *Handle, raw []byte) error {
		var ev E
		if err := jsonAPI.Unmarshal(raw, &ev); err != nil {
			return errs.ErrDecode.WrapMsg("event", "t", name, "err", err)
		}
		h.g.store.Remove(target(ev))
		publish(h.g.bus, ev)
		return nil
	})
}
