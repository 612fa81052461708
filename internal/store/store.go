// Package store provides the single shared, observable application
// state container: state is only changed through dispatched actions
// run by a pure reducer, and every change is broadcast to subscribers.
package store

import "sync"

// Action is a request to change state. Reducers switch on the concrete
// type.
type Action any

// Reducer computes the next state from the old state and an action. It
// must not mutate old.
type Reducer[S any] func(old S, a Action) S

// Store owns a value of S. All reads get a snapshot copy; all writes go
// through Dispatch.
type Store[S any] struct {
	mu      sync.Mutex
	state   S
	reduce  Reducer[S]
	nextSub int
	subs    map[int]func(S)
}

func New[S any](initial S, r Reducer[S]) *Store[S] {
	return &Store[S]{state: initial, reduce: r, subs: make(map[int]func(S))}
}

// State returns the current state snapshot.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs the reducer and notifies subscribers with the new
// state. Notification happens outside the lock so a subscriber may call
// back into the store.
func (s *Store[S]) Dispatch(a Action) S {
	s.mu.Lock()
	s.state = s.reduce(s.state, a)
	next := s.state
	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn to be called after every dispatch. The
// returned function removes the subscription.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
