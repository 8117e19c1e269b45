package watch

import (
	"strconv"
	"sync"

	"github.com/augiro/a2s-query/a2s"
)

// Snapshot is a mutex-guarded table of each endpoint's most recently
// completed result, grounded on the teacher's RWMutex-guarded
// get/set cache (internal/cache/cache.go) — adapted from caching raw
// response bytes to caching parsed *a2s.Endpoint values, since callers
// of this package want structured results, not wire bytes.
type Snapshot struct {
	mu      sync.RWMutex
	results map[string]*a2s.Endpoint
}

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{results: make(map[string]*a2s.Endpoint)}
}

// Put records ep as the latest result for its host:port key.
func (s *Snapshot) Put(ep *a2s.Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[snapshotKey(ep)] = ep
}

// Get returns the latest result for host:port, or nil if it has never
// completed a run.
func (s *Snapshot) Get(host string, port int) *a2s.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.results[snapshotKeyFor(host, port)]
}

// All returns a copy of every endpoint currently held.
func (s *Snapshot) All() []*a2s.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*a2s.Endpoint, 0, len(s.results))
	for _, ep := range s.results {
		out = append(out, ep)
	}
	return out
}

func snapshotKey(ep *a2s.Endpoint) string {
	return snapshotKeyFor(ep.Host, ep.Port)
}

func snapshotKeyFor(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
