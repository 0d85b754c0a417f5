package bridge

import (
	"sync"

	"parambridge/internal/param"
)

// grabRegistry maps active grab handles to the parameter they control.
// Membership is decided by map lookup, so a zero handle is an ordinary
// handle. Grab and ungrab update it directly so the handle is visible by the
// time the call returns; moves consult it on the loop.
type grabRegistry struct {
	mu       sync.RWMutex
	sessions map[param.GrabHandle]param.ID
}

func newGrabRegistry() *grabRegistry {
	return &grabRegistry{sessions: make(map[param.GrabHandle]param.ID)}
}

// add registers h and reports whether it was not registered before.
func (r *grabRegistry) add(h param.GrabHandle, id param.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.sessions[h]
	r.sessions[h] = id
	return !existed
}

func (r *grabRegistry) lookup(h param.GrabHandle) (param.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sessions[h]
	return id, ok
}

// remove deletes h and reports whether it was registered.
func (r *grabRegistry) remove(h param.GrabHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[h]
	delete(r.sessions, h)
	return ok
}

func (r *grabRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *grabRegistry) snapshot() map[param.GrabHandle]param.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[param.GrabHandle]param.ID, len(r.sessions))
	for h, id := range r.sessions {
		out[h] = id
	}
	return out
}
