package protocol

import (
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/wire"
)

// DisplayObjectID is the well-known object id every client's
// wl_display object is bound to, before any registry bind (spec
// §6.1). The client handle installs it on connection, before any
// request is read, as the first object of the client id range.
const DisplayObjectID uint32 = 1

// wl_display event opcodes.
const (
	DisplayEventError    uint16 = 0
	DisplayEventDeleteID uint16 = 1
)

// CallbackEventDone is wl_callback's lone event opcode.
const CallbackEventDone uint16 = 0

func init() { registerFuncs = append(registerFuncs, registerWlDisplay) }

func registerWlDisplay(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "wl_display",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "sync", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Display).handleSync(r)
			}},
			{Name: "get_registry", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Display).handleGetRegistry(r)
			}},
		},
	})
}

// Display is the per-client wl_display object, always bound to id 1.
type Display struct {
	Base
	client ClientHandle
	reg    *registry.Registry
}

// NewDisplay installs the wl_display object for a freshly accepted
// client (spec §6.1: id 1 exists before any request is processed).
func NewDisplay(client ClientHandle, reg *registry.Registry) *Display {
	return &Display{
		Base:   NewBase(DisplayObjectID, "wl_display", 1, 2),
		client: client,
		reg:    reg,
	}
}

// handleSync implements wl_display.sync: create a wl_callback object
// and immediately fire its done event, since this core never defers a
// sync point past the request that created it.
func (d *Display) handleSync(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	var w wire.ArgWriter
	w.PutUint32(0)
	d.client.SendEvent(newID, CallbackEventDone, &w)
	d.client.DestroyObject(newID)
	return nil
}

// handleGetRegistry implements wl_display.get_registry: binds a fresh
// wl_registry object at the client-chosen id and replays the current
// globals (spec §4.3).
func (d *Display) handleGetRegistry(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	reg := NewRegistryObject(newID, d.client, d.reg)
	if err := d.client.Table().AddClientObj(reg); err != nil {
		return dispatch.NewProtoError(d.ID(), ErrorImplementation, "get_registry: %v", err)
	}
	reg.replay()
	return nil
}

// SendError emits wl_display.error for a ProtoError surfaced anywhere
// in this client's dispatch (spec §4.4, §7 ProtocolError).
func (d *Display) SendError(objectID, code uint32, message string) {
	var w wire.ArgWriter
	w.PutUint32(objectID)
	w.PutUint32(code)
	w.PutString(message)
	d.client.SendEvent(DisplayObjectID, DisplayEventError, &w)
}

// SendDeleteID emits wl_display.delete_id, the acknowledgement that
// frees an id for reallocation (spec §4.2).
func (d *Display) SendDeleteID(id uint32) {
	var w wire.ArgWriter
	w.PutUint32(id)
	d.client.SendEvent(DisplayObjectID, DisplayEventDeleteID, &w)
}
