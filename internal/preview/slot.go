package preview

import "sync"

// Slot is a capacity-one, latest-wins mailbox. Publish never blocks and
// replaces an unconsumed value; TryTake never blocks and empties the slot.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	closed  bool
	dropped uint64
}

// Publish stores v and reports whether an unconsumed value was discarded.
// Publishing to a closed slot is a no-op.
func (s *Slot[T]) Publish(v T) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.full {
		s.dropped++
		dropped = true
	}
	s.value = v
	s.full = true
	return dropped
}

// TryTake returns the pending value, if any.
func (s *Slot[T]) TryTake() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if !s.full {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.full = false
	return v, true
}

// Dropped is the number of values overwritten before being taken.
func (s *Slot[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close empties the slot and rejects further publishes.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.full = false
	s.closed = true
}
