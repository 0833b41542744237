package gateway

import (
	"sync"

	ids "PClient/tools/ids"
)

// Entity is anything the composite cache can hold: it knows its snowflake
// identity and its kind tag. Kind strings are unique per Go type.
type Entity interface {
	EntityID() ids.EntityID
	Kind() string
}

// Observable is an Entity whose observable fields can be canonicalized
// against a gateway. Leaf entities return themselves; composites return a
// copy whose entity-valued fields were re-pointed at canonical handles.
// The hook is written by hand per type; there is no reflection behind it.
type Observable[T any] interface {
	Entity
	WatchFields(h *Handle) T
}

// Shared is a reference-counted-by-GC, lock-guarded instance of T. The cache
// holds the canonical one per (T, EntityID); external holders share it and
// see updates applied by the gateway without further action.
type Shared[T any] struct {
	mu sync.RWMutex
	v  T
}

func NewShared[T any](v T) *Shared[T] {
	return &Shared[T]{v: v}
}

// Load returns a copy of the current value.
func (s *Shared[T]) Load() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Read runs f with read access; f must not retain the pointer.
func (s *Shared[T]) Read(f func(v *T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f(&s.v)
}

// store replaces the contents. The write lock is held only for the swap.
func (s *Shared[T]) store(v T) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

// MarshalJSON flattens to the inner value, so entities with Shared fields
// serialize like their wire shape.
func (s *Shared[T]) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return jsonAPI.Marshal(s.v)
}

// UnmarshalJSON decodes into a fresh inner value. Handles created this way
// are not canonical until observed.
func (s *Shared[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := jsonAPI.Unmarshal(data, &v); err != nil {
		return err
	}
	s.store(v)
	return nil
}
