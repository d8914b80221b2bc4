// internal/form/store.go
//
// Intake – Forms subsystem: observable state container.
//
// Context
//   Store owns one session's State.  Mutation happens only through Dispatch
//   or Transact, both of which run Reduce under the store mutex, so handlers
//   for the same session are serialised the way UI callbacks are on a single
//   event loop.  Observers registered with Subscribe see every committed
//   batch, in order, after the lock is released.
//
//------------------------------------------------------------------------------

package form

import "sync"

// Observer receives the state committed by one dispatch batch.  Observers
// must not dispatch back into the same store.
type Observer func(State)

// Store is safe for concurrent use.  The zero value is not usable; call
// NewStore.
type Store struct {
	mu        sync.Mutex
	state     State
	observers []Observer

	// notifyMu keeps observer delivery in commit order without holding mu.
	notifyMu sync.Mutex
}

// NewStore returns a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{state: initial.clone()}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every future commit.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Dispatch applies events in order as one batch and returns the new state.
func (s *Store) Dispatch(events ...Event) State {
	st, _ := s.Transact(func(State) ([]Event, error) { return events, nil })
	return st
}

// Transact calls fn with the current state while holding the lock.  When fn
// returns an error nothing is applied and the current state is returned with
// that error.  Otherwise the returned events are reduced as one batch.
func (s *Store) Transact(fn func(State) ([]Event, error)) (State, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	events, err := fn(s.state.clone())
	if err != nil || len(events) == 0 {
		st := s.state.clone()
		s.mu.Unlock()
		return st, err
	}
	for _, ev := range events {
		s.state = Reduce(s.state, ev)
	}
	st := s.state.clone()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(st.clone())
	}
	return st, nil
}
