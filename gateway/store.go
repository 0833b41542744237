package gateway

import (
	"fmt"

	"sync"

	errs "PClient/tools/errs"
	ids "PClient/tools/ids"
)

// entityTopic is the internal bus topic carrying update traffic for one ID.
func entityTopic(id ids.EntityID) string {
	return "__entity:" + id.String()
}

// entityUpdated is published on the target's entityTopic when an
// update-shaped dispatch hits a cached entity. value holds the freshly
// decoded entity.
type entityUpdated struct {
	id    ids.EntityID
	kind  string
	value any
}

type storeEntry struct {
	kind   string
	handle any // *Shared[T]
	unsub  func()
}

// Store is the composite cache: the canonical, deduplicated map of every
// observed entity. One mutex guards the structural map; each entry's
// contents are guarded by the Shared value's own RWMutex, so readers of one
// entity never block lookups of another.
type Store struct {
	mu      sync.Mutex
	entries map[ids.EntityID]storeEntry
}

func NewStore() *Store {
	return &Store{entries: make(map[ids.EntityID]storeEntry)}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Contains reports whether id is cached.
func (s *Store) Contains(id ids.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Remove drops the entry and cancels its update subscription, so a
// delete-shaped event never leaves a defunct handle receiving updates.
// Existing external holders keep the (now frozen) handle.
func (s *Store) Remove(id ids.EntityID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if ok && e.unsub != nil {
		e.unsub()
	}
}

// Observe returns the canonical self-updating handle for obj, creating it if
// the ID is unknown. Observable fields of obj are canonicalized first, so
// nested entities get their own cache entries and subscriptions.
//
// On an already-cached ID the fresh contents are swapped in (enrichment for
// fields update events don't carry) while the handle identity is preserved;
// updates applied by the listen loop remain authoritative. A kind mismatch
// on a cached ID is an upstream invariant violation and panics.
func Observe[T Observable[T]](h *Handle, obj T) *Shared[T] {
	obj = obj.WatchFields(h) // recurse before taking the structural lock
	return installShared(h.g.store, h.g.bus, obj)
}

// ObserveOne canonicalizes a single nested handle; nil stays nil.
func ObserveOne[T Observable[T]](h *Handle, sh *Shared[T]) *Shared[T] {
	if sh == nil {
		return nil
	}
	return Observe(h, sh.Load())
}

// ObserveList canonicalizes a collection element-wise.
func ObserveList[T Observable[T]](h *Handle, list []*Shared[T]) []*Shared[T] {
	if list == nil {
		return nil
	}
	out := make([]*Shared[T], len(list))
	for i, sh := range list {
		out[i] = ObserveOne(h, sh)
	}
	return out
}

func installShared[T Observable[T]](st *Store, bus *Bus, obj T) *Shared[T] {
	id := obj.EntityID()
	kind := obj.Kind()

	st.mu.Lock()
	if e, ok := st.entries[id]; ok {
		st.mu.Unlock()
		sh, ok := e.handle.(*Shared[T])
		if !ok {
			panic(errs.ErrCacheTypeMismatch.WrapMsg(
				fmt.Sprintf("entity %s already cached as %s, observed as %s", id, e.kind, kind)))
		}
		sh.store(obj)
		return sh
	}

	sh := NewShared(obj)
	tok := bus.Subscribe(entityTopic(id), applyUpdates(sh, id, kind))
	st.entries[id] = storeEntry{
		kind:   kind,
		handle: sh,
		unsub:  func() { bus.Unsubscribe(tok) },
	}
	st.mu.Unlock()
	return sh
}

// applyUpdates is the per-entry subscription: each arriving update replaces
// the entity's contents in arrival order. The single listen loop is the only
// publisher, so its chronological order is authoritative.
func applyUpdates[T any](sh *Shared[T], id ids.EntityID, kind string) func(any) {
	return func(p any) {
		up, ok := p.(entityUpdated)
		if !ok {
			return
		}
		nv, ok := up.value.(T)
		if !ok {
			panic(errs.ErrCacheTypeMismatch.WrapMsg(
				fmt.Sprintf("update for entity %s carries %s, cached as %s", id, up.kind, kind)))
		}
		sh.store(nv)
	}
}
