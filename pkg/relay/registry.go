package relay

import (
	"sync"
	"time"
)

// ConnInfo is a read-only view of a live relay connection.
type ConnInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// connRegistry tracks live relay pairs
type connRegistry struct {
	mu     sync.RWMutex
	closed bool
	pairs  map[string]*pair
}

func newConnRegistry() *connRegistry {
	return &connRegistry{
		pairs: make(map[string]*pair),
	}
}

// Add registers p. It returns false once the registry is closed.
func (r *connRegistry) Add(p *pair) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.pairs[p.id] = p
	return true
}

// Remove removes a pair from the registry
func (r *connRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pairs, id)
}

// CloseAll marks the registry closed and returns the pairs that were live.
func (r *connRegistry) CloseAll() []*pair {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	pairs := make([]*pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		pairs = append(pairs, p)
	}
	return pairs
}

// Count returns the number of live pairs
func (r *connRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.pairs)
}

// Infos returns connection information for all live pairs
func (r *connRegistry) Infos() []ConnInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ConnInfo, 0, len(r.pairs))
	for _, p := range r.pairs {
		infos = append(infos, ConnInfo{
			ID:          p.id,
			RemoteAddr:  p.remoteAddr,
			ConnectedAt: p.connectedAt,
		})
	}
	return infos
}
