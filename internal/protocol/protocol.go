// Package protocol implements the per-interface request handlers for
// every Wayland global this core advertises (spec §4.8, §6.1):
// wl_display, wl_registry, wl_compositor, wl_subcompositor, wl_shm,
// wl_seat, wl_output, xdg_wm_base, zxdg_decoration_manager_v1,
// org_kde_kwin_server_decoration_manager and zwp_linux_dmabuf_v1.
//
// Each file registers one or more dispatch.Interface descriptors into
// a shared *dispatch.Registry at startup (see RegisterAll) and builds
// the registry.Global bind closures internal/compositor wires into
// the global registry.
package protocol

import (
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/wire"
)

// registerFuncs accumulates one registration function per interface
// file via each file's init(); RegisterAll runs them once at startup
// against the compositor's shared dispatch.Registry.
var registerFuncs []func(*dispatch.Registry)

// RegisterAll installs every interface this core implements into reg.
// Called once at compositor startup (spec §9: "single initialization
// at compositor startup").
func RegisterAll(reg *dispatch.Registry) {
	for _, fn := range registerFuncs {
		fn(reg)
	}
}

// ClientHandle is the subset of per-connection client state protocol
// objects need: a place to register new objects, a way to emit
// events, and a way to remove an object (sending wl_display.delete_id
// per spec §4.2) or tear the whole connection down on a fatal error.
// Defined here rather than depending on internal/compositor, so this
// package stays a leaf the compositor wiring imports, not the other
// way around. A *compositor.Client satisfies this structurally.
type ClientHandle interface {
	Table() *objects.Table
	SendEvent(objectID uint32, opcode uint16, w *wire.ArgWriter)
	DestroyObject(id uint32)
	Disconnect(err error)
}

// Base implements the identity fields every bound protocol object
// needs to satisfy objects.Object (spec §4.2's polymorphic Object over
// {parse_request, num_requests, interface_name, version}).
type Base struct {
	id      uint32
	iface   string
	version uint32
	numReq  uint16
}

// NewBase constructs the common object identity fields.
func NewBase(id uint32, iface string, version uint32, numReq uint16) Base {
	return Base{id: id, iface: iface, version: version, numReq: numReq}
}

func (b *Base) ID() uint32            { return b.id }
func (b *Base) InterfaceName() string { return b.iface }
func (b *Base) Version() uint32       { return b.version }
func (b *Base) NumRequests() uint16   { return b.numReq }

// BindFunc is the shape every registry.Global in this package uses for
// its Bind field. It takes a registry.Client because that is all
// registry.Global's field type requires; every concrete client this
// compositor hands to Bind also satisfies ClientHandle; toClient does
// that assertion once so individual bind bodies don't repeat it.
type BindFunc = func(c registry.Client, newID, version uint32) error

func toClient(c registry.Client) ClientHandle { return c.(ClientHandle) }

// addClientObj registers obj in c's table under its own (client-
// allocated) id, translating a table error into the protocol error
// the caller returns to dispatch.
func addClientObj(c ClientHandle, obj objects.Object) error {
	if err := c.Table().AddClientObj(obj); err != nil {
		return dispatch.NewProtoError(obj.ID(), ErrorImplementation, "%v", err)
	}
	return nil
}

// Standard wl_display error codes re-exported for protocol files that
// raise them directly (spec §4.4, §6.1); interface-specific codes are
// declared alongside their interface.
const (
	ErrorInvalidObject = 0
	ErrorInvalidMethod = 1
	ErrorNoMemory       = 2
	ErrorImplementation = 3
)
