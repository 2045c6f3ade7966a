package workspace

import (
	"sync"
	"time"
)

// Registry keeps one workspace per client id and drops idle ones
type Registry struct {
	mu         sync.Mutex
	deps       Deps
	workspaces map[string]*entry
	listener   func(id string) Listener
	idle       time.Duration
	now        func() time.Time
}

type entry struct {
	ws       *Workspace
	lastSeen time.Time
}

// NewRegistry creates a registry. listener builds the callbacks of a new workspace.
func NewRegistry(deps Deps, idle time.Duration, listener func(id string) Listener) *Registry {
	return &Registry{
		deps:       deps,
		workspaces: make(map[string]*entry),
		listener:   listener,
		idle:       idle,
		now:        time.Now,
	}
}

// Get returns the workspace of id, creating it on first use
func (r *Registry) Get(id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.workspaces[id]; ok {
		e.lastSeen = r.now()
		return e.ws
	}

	var l Listener
	if r.listener != nil {
		l = r.listener(id)
	}
	ws := New(id, r.deps, l)
	r.workspaces[id] = &entry{ws: ws, lastSeen: r.now()}
	return ws
}

// Len returns the number of live workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep closes workspaces idle for longer than the idle limit and returns how many it closed
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	r.mu.Lock()
	var stale []*Workspace
	cutoff := r.now().Add(-r.idle)
	for id, e := range r.workspaces {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.ws)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range stale {
		ws.Close()
	}
	return len(stale)
}

// CloseAll closes every workspace
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		e.ws.Close()
	}
}
