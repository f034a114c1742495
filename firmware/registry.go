package firmware

import (
	"sync"

	"diffbot/protocol"
)

// Registry maps request bodies to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[protocol.BodyKind]protocol.Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[protocol.BodyKind]protocol.Handler),
	}
}

// Register installs handler for kind, replacing any previous one
func (r *Registry) Register(kind protocol.BodyKind, handler protocol.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// Lookup returns the handler for kind
func (r *Registry) Lookup(kind protocol.BodyKind) (protocol.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Count returns the number of registered handlers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Dispatch runs the handler for req. A body with no handler gets no
// response.
func (r *Registry) Dispatch(req protocol.Request) (protocol.Response, bool) {
	h, ok := r.Lookup(req.Body)
	if !ok {
		return protocol.Response{}, false
	}
	return h(req)
}

// HandlePing answers a Ping with a Ping carrying the same correlation id
func HandlePing(req protocol.Request) (protocol.Response, bool) {
	return protocol.Response{CorrelationID: req.CorrelationID, Body: protocol.BodyPing}, true
}
