package datagram

import (
	"net/netip"
	"sync"
	"time"
)

// subscriber is one registered endpoint.
type subscriber struct {
	lastSeenAt time.Time
}

// RegistryStats provides statistics about the subscriber registry.
type RegistryStats struct {
	Subscribers     int
	TotalSubscribes int64
	TotalEvictions  int64
}

// Registry tracks datagram subscriber endpoints. Endpoint keys are typed
// netip.AddrPort values, unique within the registry.
type Registry struct {
	mu   sync.RWMutex
	subs map[netip.AddrPort]*subscriber

	totalSubscribes int64
	totalEvictions  int64
}

// NewRegistry creates an empty subscriber registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[netip.AddrPort]*subscriber),
	}
}

// Subscribe registers an endpoint, overwriting any existing entry.
// Idempotent.
func (r *Registry) Subscribe(ep netip.AddrPort, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[ep]; !ok {
		r.totalSubscribes++
	}
	r.subs[ep] = &subscriber{lastSeenAt: now}
}

// Unsubscribe removes an endpoint if present; a no-op otherwise.
func (r *Registry) Unsubscribe(ep netip.AddrPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, ep)
}

// Heartbeat refreshes lastSeenAt only for an already-registered endpoint.
// It never creates a subscription. Returns whether the endpoint was known.
func (r *Registry) Heartbeat(ep netip.AddrPort, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[ep]
	if !ok {
		return false
	}
	sub.lastSeenAt = now
	return true
}

// Endpoints returns a snapshot of the registered endpoints for iteration.
func (r *Registry) Endpoints() []netip.AddrPort {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]netip.AddrPort, 0, len(r.subs))
	for ep := range r.subs {
		out = append(out, ep)
	}
	return out
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Sweep removes endpoints whose last heartbeat is older than ttl and
// returns the evicted endpoints.
func (r *Registry) Sweep(ttl time.Duration, now time.Time) []netip.AddrPort {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []netip.AddrPort
	for ep, sub := range r.subs {
		if now.Sub(sub.lastSeenAt) > ttl {
			delete(r.subs, ep)
			evicted = append(evicted, ep)
		}
	}
	r.totalEvictions += int64(len(evicted))
	return evicted
}

// Stats returns current registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{
		Subscribers:     len(r.subs),
		TotalSubscribes: r.totalSubscribes,
		TotalEvictions:  r.totalEvictions,
	}
}
