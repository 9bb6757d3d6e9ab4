package session

import (
	"fmt"
	"sync"
)

// Store owns the current state of a session and serializes changes to it
type Store struct {
	mu      sync.Mutex
	state   State
	persist func(State) error
}

// NewStore creates a Store starting at initial. persist, when not nil, is
// called with every new state before it becomes current; an error from it
// rejects the change.
func NewStore(initial State, persist func(State) error) *Store {
	return &Store{state: initial, persist: persist}
}

// Dispatch applies a and returns the resulting state
func (s *Store) Dispatch(a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, a)
	if err != nil {
		return s.state.clone(), err
	}
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return s.state.clone(), fmt.Errorf("persisting session: %w", err)
		}
	}
	s.state = next
	return next.clone(), nil
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}
