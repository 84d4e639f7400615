// Package store composes the session state and owns its only mutation path.
package store

import (
	"sync"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
	"github.com/joeblew999/plat-viewer/internal/zoneidentify"
)

// State is the whole state of a session.
type State struct {
	Host         host.State         `json:"host"`
	Shoreline    shoreline.State    `json:"shoreline"`
	ZoneIdentify zoneidentify.State `json:"zoneIdentify"`
}

// New builds the initial state of a session.
func New(opts host.Options) State {
	return State{Host: host.NewState(opts)}
}

// Reduce folds a into every slice.
func Reduce(s State, a action.Action) State {
	s.Host = host.Reduce(s.Host, a)
	s.Shoreline = shoreline.Reduce(s.Shoreline, a)
	s.ZoneIdentify = zoneidentify.Reduce(s.ZoneIdentify, a)
	return s
}

// Store holds the current state of one session.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Snapshot returns the current state. Reducers never mutate a previous
// state in place, so the value is safe to read without holding the lock.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply reduces a into the current state and returns the new state.
func (s *Store) Apply(a action.Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

// Reset replaces the current state, e.g. before replaying a journal.
func (s *Store) Reset(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
