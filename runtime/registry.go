package runtime

import (
	"sync"

	"helpdesk/contract"
	"helpdesk/notify"
)

type Set map[string]struct{}

// Registry tracks live connections and the destinations each one listens
// on. A connection (identified by an opaque conn id) owns exactly one
// sink; the same sink may listen on several destinations, e.g. an agent
// subscribing to its private queues plus the queue-updates broadcast.
type Registry struct {
	mu            sync.RWMutex
	sinks         map[string]contract.EventSink
	subscribers   map[notify.Destination]Set
	subscriptions map[string]map[notify.Destination]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:         make(map[string]contract.EventSink),
		subscribers:   make(map[notify.Destination]Set),
		subscriptions: make(map[string]map[notify.Destination]struct{}),
	}
}

// Subscribe registers a connection's sink under the given destinations.
func (r *Registry) Subscribe(connID string, sink contract.EventSink, destinations ...notify.Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[connID] = sink
	if _, ok := r.subscriptions[connID]; !ok {
		r.subscriptions[connID] = make(map[notify.Destination]struct{})
	}
	for _, destination := range destinations {
		r.addLocked(connID, destination)
	}
}

// AddSubscription attaches one more destination to an existing
// connection. Used when a guest learns its session id after joining.
func (r *Registry) AddSubscription(connID string, destination notify.Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sinks[connID]; !ok {
		return
	}
	r.addLocked(connID, destination)
}

func (r *Registry) addLocked(connID string, destination notify.Destination) {
	if _, ok := r.subscribers[destination]; !ok {
		r.subscribers[destination] = make(Set)
	}
	r.subscribers[destination][connID] = struct{}{}
	r.subscriptions[connID][destination] = struct{}{}
}

// Unsubscribe removes a connection everywhere. It cleans up empty
// destination sets to prevent the maps from growing over time.
func (r *Registry) Unsubscribe(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sinks, connID)
	for destination := range r.subscriptions[connID] {
		if members, ok := r.subscribers[destination]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.subscribers, destination)
			}
		}
	}
	delete(r.subscriptions, connID)
}

// SinksFor resolves the active sinks listening on a destination.
// Returns nil if nobody is listening.
func (r *Registry) SinksFor(destination notify.Destination) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.subscribers[destination]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connID := range members {
		if sink, exists := r.sinks[connID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}
