// Package dispatch implements per-interface request dispatch (spec
// §4.4): an ordered opcode table per interface, argument parsing in
// declaration order, and the typed-error-to-wl_display.error mapping.
package dispatch

import (
	"fmt"

	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/wire"
)

// Handler parses one request's arguments from r and acts on obj. It
// returns a *ProtoError for protocol-level failures (mapped to
// wl_display.error) or any other error for fatal I/O-class failures.
type Handler func(obj objects.Object, r *wire.ArgReader) error

// Request is one opcode's name and handler.
type Request struct {
	Name    string
	Handler Handler
}

// Interface describes the requests an interface accepts, in opcode
// order; index in Requests is the opcode.
type Interface struct {
	Name     string
	Version  uint32
	Requests []Request
}

// NumRequests is the count used for the "unknown opcode" bounds check
// (spec §4.4: unknown opcode >= num_requests is fatal).
func (i *Interface) NumRequests() uint16 { return uint16(len(i.Requests)) }

// ProtoError is a typed protocol error (spec §7 ProtocolError): it
// carries the wl_display.error code, offending object id and message,
// and is fatal for the client once delivered.
type ProtoError struct {
	Code     uint32
	ObjectID uint32
	Message  string
}

func (e *ProtoError) Error() string {
	return fmt.Sprintf("protocol error %d on object %d: %s", e.Code, e.ObjectID, e.Message)
}

// NewProtoError builds a ProtoError for the given object.
func NewProtoError(objectID, code uint32, format string, args ...any) *ProtoError {
	return &ProtoError{ObjectID: objectID, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Registry is the process-wide map from interface name to its
// Interface descriptor. Protocol globals (internal/protocol) register
// themselves here at startup.
type Registry struct {
	interfaces map[string]*Interface
}

// NewRegistry creates an empty interface registry.
func NewRegistry() *Registry {
	return &Registry{interfaces: make(map[string]*Interface)}
}

// Register adds (or replaces) an interface descriptor.
func (r *Registry) Register(iface *Interface) {
	r.interfaces[iface.Name] = iface
}

// Lookup finds an interface descriptor by name.
func (r *Registry) Lookup(name string) (*Interface, bool) {
	iface, ok := r.interfaces[name]
	return iface, ok
}

// Dispatch resolves opcode against the object's declared interface and
// invokes the matching handler. A nil return from the interface
// lookup, an out-of-range opcode, or a handler parse failure are all
// fatal (spec §4.4); the caller is responsible for tearing the client
// down on any non-nil error.
func (r *Registry) Dispatch(obj objects.Object, opcode uint16, payload []byte, fds *wire.FDQueue) error {
	iface, ok := r.interfaces[obj.InterfaceName()]
	if !ok {
		return NewProtoError(obj.ID(), ErrorInvalidMethod, "unknown interface %q", obj.InterfaceName())
	}
	if int(opcode) >= len(iface.Requests) {
		return NewProtoError(obj.ID(), ErrorInvalidMethod, "opcode %d >= num_requests %d", opcode, len(iface.Requests))
	}
	req := iface.Requests[opcode]
	ar := wire.NewArgReader(payload, fds)
	if err := req.Handler(obj, ar); err != nil {
		return err
	}
	if !ar.Done() {
		return NewProtoError(obj.ID(), ErrorInvalidMethod, "trailing bytes after %s.%s", obj.InterfaceName(), req.Name)
	}
	return nil
}

// Standard wl_display error codes (spec §4.4, §6.1).
const (
	ErrorInvalidObject = 0
	ErrorInvalidMethod = 1
	ErrorNoMemory      = 2
	ErrorImplementation = 3
)
