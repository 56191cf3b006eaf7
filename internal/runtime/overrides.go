package runtime

import (
	"sync"

	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Overrides holds operator-pinned endpoint sets, keyed by environment.
// A pinned environment bypasses discovery entirely, which lets a demo
// or an air-gapped classroom point at a mock provider without DNS
// games. Thread-safe for concurrent access.
type Overrides struct {
	mu        sync.RWMutex
	endpoints map[string]*driven.Endpoints
}

// NewOverrides creates an empty override registry.
func NewOverrides() *Overrides {
	return &Overrides{
		endpoints: make(map[string]*driven.Endpoints),
	}
}

// Get returns the pinned endpoint set for an environment, if any.
func (o *Overrides) Get(environmentID string) (*driven.Endpoints, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.endpoints[environmentID]
	if !ok {
		return nil, false
	}
	clone := *e
	return &clone, true
}

// Set pins an endpoint set for an environment, replacing any previous
// pin.
func (o *Overrides) Set(environmentID string, endpoints *driven.Endpoints) {
	clone := *endpoints
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endpoints[environmentID] = &clone
}

// Remove drops an environment's pin; later resolutions go through
// discovery again.
func (o *Overrides) Remove(environmentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.endpoints, environmentID)
}

// List returns every pinned environment.
func (o *Overrides) List() map[string]*driven.Endpoints {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]*driven.Endpoints, len(o.endpoints))
	for id, e := range o.endpoints {
		clone := *e
		out[id] = &clone
	}
	return out
}
