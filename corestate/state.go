package corestate

import (
	"sync"

	"github.com/sharedcode/multipathd"
	"golang.org/x/sync/singleflight"
)

// State is the daemon's single global reader/writer-locked view of the
// world (spec.md section 5): the flat path and map vectors plus the
// kernel collaborator used to keep them in sync. Readers (the control
// socket's status commands) take RLock; writers (adoption, sync,
// recovery transitions) take Lock.
type State struct {
	mu    sync.RWMutex
	Paths *multipath.Vector[*multipath.Path]
	Maps  *multipath.Vector[*multipath.Map]

	Kernel Kerneler

	// sf collapses concurrent Sync calls for the same WWID into a single
	// kernel round trip — multiple checker-tick goroutines can observe a
	// path state change on the same map in the same tick.
	sf singleflight.Group
}

// New returns an empty State backed by kernel.
func New(kernel Kerneler) *State {
	return &State{
		Paths:  multipath.NewVector[*multipath.Path](16),
		Maps:   multipath.NewVector[*multipath.Map](4),
		Kernel: kernel,
	}
}

// Lock/Unlock/RLock/RUnlock expose the global lock directly rather than
// wrapping every operation in a closure-taking method: callers in
// control and the checker tick loop already structure their own
// critical sections (spec.md section 5's "single global lock, held for
// the shortest span that keeps an operation atomic").
func (s *State) Lock()    { s.mu.Lock() }
func (s *State) Unlock()  { s.mu.Unlock() }
func (s *State) RLock()   { s.mu.RLock() }
func (s *State) RUnlock() { s.mu.RUnlock() }

// FindMapByWWID returns the map with the given WWID, or nil if none is
// registered. Callers must hold at least RLock.
func (s *State) FindMapByWWID(wwid string) *multipath.Map {
	var found *multipath.Map
	s.Maps.ForEach(func(_ int, m *multipath.Map) bool {
		if m.WWID == wwid {
			found = m
			return false
		}
		return true
	})
	return found
}

// FindMapByAlias returns the map with the given alias, or nil.
func (s *State) FindMapByAlias(alias string) *multipath.Map {
	var found *multipath.Map
	s.Maps.ForEach(func(_ int, m *multipath.Map) bool {
		if m.Alias == alias {
			found = m
			return false
		}
		return true
	})
	return found
}
