// Package store is a minimal host pipeline for patcher stages: it holds a
// state value, composes stages in front of a reducer and notifies listeners
// after every successful reduction. It exists for tests, examples and the
// patchctl tool; applications normally plug patcher stages into their own
// store.
package store

import (
	"sync"

	patcher "github.com/goliatone/go-patcher"
)

// Reducer folds an action into the state. Returning an error leaves the state
// unchanged and aborts the dispatch.
type Reducer[S any] func(state S, action patcher.Action) (S, error)

// Listener observes the state after an action was reduced.
type Listener[S any] func(state S, action patcher.Action)

// Store holds the current state and the composed dispatch function.
type Store[S any] struct {
	mu        sync.RWMutex
	state     S
	reducer   Reducer[S]
	dispatch  patcher.Dispatch
	listeners map[int]Listener[S]
	nextID    int
}

// New builds a store. Stages run in the order given: the first stage sees
// the action first and the reducer sees it last.
func New[S any](initial S, reducer Reducer[S], stages ...patcher.Stage[S]) *Store[S] {
	s := &Store[S]{
		state:     initial,
		reducer:   reducer,
		listeners: map[int]Listener[S]{},
	}
	var dispatch patcher.Dispatch = s.reduce
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] == nil {
			continue
		}
		dispatch = stages[i](s)(dispatch)
	}
	s.dispatch = dispatch
	return s
}

// GetState returns the current state.
func (s *Store[S]) GetState() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch runs action through the stages and the reducer. The result is the
// action as the reducer received it.
func (s *Store[S]) Dispatch(action patcher.Action) (any, error) {
	return s.dispatch(action)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[S]) Subscribe(fn Listener[S]) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store[S]) reduce(action patcher.Action) (any, error) {
	s.mu.Lock()
	if s.reducer != nil {
		next, err := s.reducer(s.state, action)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.state = next
	}
	state := s.state
	listeners := make([]Listener[S], 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state, action)
	}
	return action, nil
}
