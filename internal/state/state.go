package state

import "sync"

// Snapshot is a point-in-time copy of the flags.
type Snapshot struct {
	CameraEnabled   bool `json:"camera_enabled"`
	GesturesEnabled bool `json:"gestures_enabled"`
}

// State holds the two feature flags toggled by the extension.
// Both start false and are never persisted.
type State struct {
	notifyMu  sync.Mutex // orders set+notify so listeners see writes in order
	mu        sync.RWMutex
	camera    bool
	gestures  bool
	listeners []func(Snapshot)
}

// New returns a State with both flags off.
func New() *State {
	return &State{}
}

// OnChange registers fn to be called after every write, with the resulting
// snapshot. Listeners run on the writer's goroutine, outside the state lock,
// and are never called concurrently. A listener may read the state but must
// not write it.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetCamera overwrites the camera flag and returns the new snapshot.
func (s *State) SetCamera(enabled bool) Snapshot {
	return s.write(func() { s.camera = enabled })
}

// SetGestures overwrites the gestures flag and returns the new snapshot.
func (s *State) SetGestures(enabled bool) Snapshot {
	return s.write(func() { s.gestures = enabled })
}

// Snapshot returns the current flags.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{CameraEnabled: s.camera, GesturesEnabled: s.gestures}
}

func (s *State) write(set func()) Snapshot {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	set()
	snap := Snapshot{CameraEnabled: s.camera, GesturesEnabled: s.gestures}
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}
