package normalize

import "sync"

// Registry remembers the display form chosen for each canonical id. It is
// append-only and safe for concurrent use. A variant replaces the stored
// display only when its script ranks strictly higher.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entity)}
}

// Resolve records e and returns the entity now stored under e.ID.
func (r *Registry) Resolve(e Entity) Entity {
	r.mu.RLock()
	cur, ok := r.entries[e.ID]
	r.mu.RUnlock()
	if ok && e.Script <= cur.Script {
		return cur
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok = r.entries[e.ID]
	if !ok || e.Script > cur.Script {
		r.entries[e.ID] = e
		return e
	}
	return cur
}

// Lookup returns the entity stored under id.
func (r *Registry) Lookup(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Display returns the chosen display form for id, or "".
func (r *Registry) Display(id string) string {
	e, _ := r.Lookup(id)
	return e.Display
}

// Len returns the number of ids recorded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
