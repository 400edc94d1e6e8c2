package protocol

import (
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/wire"
)

// wl_compositor request opcodes.
const (
	compositorCreateSurface uint16 = 0
	compositorCreateRegion  uint16 = 1
)

// wl_surface request opcodes (the subset this core needs: role
// assignment happens through xdg_surface, not through wl_surface
// itself, so commit/attach/damage are tracked but intentionally inert
// — rendering is out of scope per spec §1).
const (
	surfaceDestroy       uint16 = 0
	surfaceAttach        uint16 = 1
	surfaceDamage        uint16 = 2
	surfaceFrame         uint16 = 3
	surfaceSetOpaqueReg  uint16 = 4
	surfaceSetInputReg   uint16 = 5
	surfaceCommit        uint16 = 6
	surfaceSetBufferTr   uint16 = 7
	surfaceSetBufferScl  uint16 = 8
	surfaceDamageBuffer  uint16 = 9
)

func init() { registerFuncs = append(registerFuncs, registerWlCompositor) }

func registerWlCompositor(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "wl_compositor",
		Version: 4,
		Requests: []dispatch.Request{
			{Name: "create_surface", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Compositor).handleCreateSurface(r)
			}},
			{Name: "create_region", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Compositor).handleCreateRegion(r)
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_surface",
		Version: 4,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*Surface)
				s.client.DestroyObject(s.ID())
				return nil
			}},
			{Name: "attach", Handler: consumeArgs(objectArg, intArg, intArg)},
			{Name: "damage", Handler: consumeArgs(intArg, intArg, intArg, intArg)},
			{Name: "frame", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				newID, err := r.Uint32()
				if err != nil {
					return err
				}
				s := obj.(*Surface)
				var w wire.ArgWriter
				w.PutUint32(0)
				s.client.SendEvent(newID, CallbackEventDone, &w)
				s.client.DestroyObject(newID)
				return nil
			}},
			{Name: "set_opaque_region", Handler: consumeArgs(objectArg)},
			{Name: "set_input_region", Handler: consumeArgs(objectArg)},
			{Name: "commit", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*Surface)
				if s.RoleObj != nil {
					s.RoleObj.onFirstCommit()
				}
				return nil
			}},
			{Name: "set_buffer_transform", Handler: consumeArgs(intArg)},
			{Name: "set_buffer_scale", Handler: consumeArgs(intArg)},
			{Name: "damage_buffer", Handler: consumeArgs(intArg, intArg, intArg, intArg)},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_region",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*Region)
				s.client.DestroyObject(s.ID())
				return nil
			}},
			{Name: "add", Handler: consumeArgs(intArg, intArg, intArg, intArg)},
			{Name: "subtract", Handler: consumeArgs(intArg, intArg, intArg, intArg)},
		},
	})
}

// Compositor is the per-client wl_compositor binding (spec §6.1).
type Compositor struct {
	Base
	client ClientHandle
}

// BindCompositor builds the registry.Global bind callback for
// wl_compositor.
func BindCompositor() BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &Compositor{Base: NewBase(newID, "wl_compositor", version, 2), client: c}
		return addClientObj(c, obj)
	}
}

func (co *Compositor) handleCreateSurface(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	s := &Surface{Base: NewBase(newID, "wl_surface", co.Version(), 10), client: co.client}
	return addClientObj(co.client, s)
}

func (co *Compositor) handleCreateRegion(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	reg := &Region{Base: NewBase(newID, "wl_region", co.Version(), 3), client: co.client}
	return addClientObj(co.client, reg)
}

// Surface is a client's wl_surface: a buffer target that may later be
// given a role which maps it into the scene graph (spec §3 Scene
// nodes). The only role this package assigns is xdg_toplevel.
type Surface struct {
	Base
	client  ClientHandle
	Role    SurfaceRole
	Node    scene.Node
	RoleObj surfaceRole
}

// surfaceRole is implemented by the role object that last claimed a
// Surface (XdgToplevel is the only implementation), giving
// wl_surface.commit one place to trigger that role's first-commit
// mapping behavior (spec §4.5).
type surfaceRole interface {
	onFirstCommit()
}

// SurfaceRole discriminates the role assigned to a wl_surface, each of
// which maps onto exactly one scene node kind.
type SurfaceRole int

const (
	RoleNone SurfaceRole = iota
	RoleToplevel
	RoleLayer
)

// Region is a client's wl_region (input/opaque hinting); this core
// never consults region contents since it does not composite pixels.
type Region struct {
	Base
	client ClientHandle
}

// consumeArgs builds a Handler that reads and discards a fixed
// argument shape, for requests this core accepts but has no rendering
// behavior to react to (spec §1 Non-goals: screen compositing).
func consumeArgs(kinds ...argKind) dispatch.Handler {
	return func(_ objects.Object, r *wire.ArgReader) error {
		for _, k := range kinds {
			var err error
			switch k {
			case intArg:
				_, err = r.Int32()
			case objectArg:
				_, err = r.Uint32()
			case fixedArg:
				_, err = r.Fixed()
			case stringArg:
				_, err = r.String()
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
}

type argKind int

const (
	intArg argKind = iota
	objectArg
	fixedArg
	stringArg
)

func init() { registerFuncs = append(registerFuncs, registerWlSubcompositor) }

func registerWlSubcompositor(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "wl_subcompositor",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*Subcompositor)
				s.client.DestroyObject(s.ID())
				return nil
			}},
			{Name: "get_subsurface", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Subcompositor).handleGetSubsurface(r)
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_subsurface",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*Subsurface)
				s.client.DestroyObject(s.ID())
				return nil
			}},
			{Name: "set_position", Handler: consumeArgs(intArg, intArg)},
			{Name: "place_above", Handler: consumeArgs(objectArg)},
			{Name: "place_below", Handler: consumeArgs(objectArg)},
			{Name: "set_sync", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				obj.(*Subsurface).Synced = true
				return nil
			}},
			{Name: "set_desync", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				obj.(*Subsurface).Synced = false
				return nil
			}},
		},
	})
}

// Subcompositor is the per-client wl_subcompositor binding.
type Subcompositor struct {
	Base
	client ClientHandle
}

// BindSubcompositor builds the registry.Global bind callback for
// wl_subcompositor.
func BindSubcompositor() BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &Subcompositor{Base: NewBase(newID, "wl_subcompositor", version, 2), client: c}
		return addClientObj(c, obj)
	}
}

func (sc *Subcompositor) handleGetSubsurface(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	if _, err := r.Uint32(); err != nil { // surface
		return err
	}
	if _, err := r.Uint32(); err != nil { // parent
		return err
	}
	sub := &Subsurface{Base: NewBase(newID, "wl_subsurface", sc.Version(), 6), client: sc.client}
	return addClientObj(sc.client, sub)
}

// Subsurface is a client's wl_subsurface: position and stacking
// relative to its parent surface are tracked but never placed into
// the scene graph, since layout here follows the tiling/floating
// policy rather than client-requested subsurface geometry (spec §3
// Scene nodes lists no Subsurface kind).
type Subsurface struct {
	Base
	client ClientHandle
	Synced bool
}
