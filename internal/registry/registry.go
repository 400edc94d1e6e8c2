// Package registry implements the global registry (spec §4.3): the
// name -> global map advertised to every bound wl_registry, replayed
// in insertion order on bind and kept live via global/global_remove
// events thereafter.
package registry

import (
	"fmt"
	"sync"

	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/wire"
)

// Client is the subset of per-connection client state a Global's Bind
// callback needs: somewhere to register the freshly bound object and
// a way to emit events to it immediately (e.g. wl_output replaying
// geometry on every new bind). Defined here, not imported from a
// higher-level client package, so registry stays a leaf dependency.
type Client interface {
	Table() *objects.Table
	SendEvent(objectID uint32, opcode uint16, w *wire.ArgWriter)
}

// Global is one advertised, bindable interface instance.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
	Singleton bool

	// Bind is invoked when a client requests this global; it receives
	// the binding client, the client-chosen new object id and the
	// version clamped to min(Version, requested version).
	Bind func(c Client, newID uint32, version uint32) error
}

// ErrSingletonAlreadyBound is the protocol error raised when a client
// binds a singleton global a second time (spec §4.3).
type ErrSingletonAlreadyBound struct{ Interface string }

func (e *ErrSingletonAlreadyBound) Error() string {
	return fmt.Sprintf("registry: %s is a singleton and was already bound", e.Interface)
}

// Registry is compositor-wide: one instance backs every client's
// wl_registry object.
type Registry struct {
	mu      sync.Mutex
	seq     uint32
	globals map[uint32]*Global
	order   []uint32 // insertion order, for registry replay

	// subscribers receive global/global_remove notifications live;
	// each bound wl_registry object registers one.
	subscribers map[uint32]Subscriber
}

// Subscriber receives live registry change notifications. Rejecting a
// second bind of a singleton is left to the bound wl_registry object.
type Subscriber interface {
	OnGlobal(g *Global)
	OnGlobalRemove(name uint32)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		globals:     make(map[uint32]*Global),
		subscribers: make(map[uint32]Subscriber),
	}
}

// NextName allocates a process-unique global name.
func (r *Registry) NextName() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

// Add advertises a new global and notifies every currently-subscribed
// client.
func (r *Registry) Add(g *Global) {
	r.mu.Lock()
	r.globals[g.Name] = g
	r.order = append(r.order, g.Name)
	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.OnGlobal(g)
	}
}

// Remove withdraws a global (e.g. a disconnected output's wl_output)
// and notifies every subscriber with global_remove.
func (r *Registry) Remove(name uint32) {
	r.mu.Lock()
	if _, ok := r.globals[name]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.globals, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.OnGlobalRemove(name)
	}
}

// Subscribe registers a new client's wl_registry and returns the
// current globals in insertion order, for the initial replay.
func (r *Registry) Subscribe(registryObjID uint32, sub Subscriber) []*Global {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[registryObjID] = sub
	out := make([]*Global, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.globals[name])
	}
	return out
}

// Unsubscribe removes a client's wl_registry on teardown.
func (r *Registry) Unsubscribe(registryObjID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, registryObjID)
}

// Lookup finds a global by name.
func (r *Registry) Lookup(name uint32) (*Global, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.globals[name]
	return g, ok
}

// ClampVersion applies the bind-time version clamp rule (spec §4.3):
// min(global.version, requested).
func ClampVersion(global, requested uint32) uint32 {
	if requested < global {
		return requested
	}
	return global
}
