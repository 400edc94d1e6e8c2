package protocol

import (
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/wire"
)

// xdg_wm_base event opcodes.
const XdgWmBaseEventPing uint16 = 0

// xdg_surface event opcodes.
const XdgSurfaceEventConfigure uint16 = 0

// xdg_toplevel event opcodes.
const (
	XdgToplevelEventConfigure uint16 = 0
	XdgToplevelEventClose     uint16 = 1
)

// xdg_wm_base error codes (spec §4.4, mirroring the real protocol's
// role-mismatch and double-role-assignment errors).
const (
	XdgWmBaseErrorRole            = 0
	XdgWmBaseErrorDefunctSurfaces = 1
	XdgWmBaseErrorInvalidSurfaceState = 4
)

func init() { registerFuncs = append(registerFuncs, registerXdgShell) }

func registerXdgShell(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "xdg_wm_base",
		Version: 3,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				w := obj.(*WmBase)
				w.client.DestroyObject(w.ID())
				return nil
			}},
			{Name: "create_positioner", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*WmBase).handleCreatePositioner(r)
			}},
			{Name: "get_xdg_surface", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*WmBase).handleGetXdgSurface(r)
			}},
			{Name: "pong", Handler: consumeArgs(intArg)},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "xdg_positioner",
		Version: 3,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				p := obj.(*Positioner)
				p.client.DestroyObject(p.ID())
				return nil
			}},
			{Name: "set_size", Handler: consumeArgs(intArg, intArg)},
			{Name: "set_anchor_rect", Handler: consumeArgs(intArg, intArg, intArg, intArg)},
			{Name: "set_anchor", Handler: consumeArgs(intArg)},
			{Name: "set_gravity", Handler: consumeArgs(intArg)},
			{Name: "set_constraint_adjustment", Handler: consumeArgs(intArg)},
			{Name: "set_offset", Handler: consumeArgs(intArg, intArg)},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "xdg_surface",
		Version: 3,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*XdgSurface)
				s.client.DestroyObject(s.ID())
				return nil
			}},
			{Name: "get_toplevel", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*XdgSurface).handleGetToplevel(r)
			}},
			{Name: "get_popup", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return dispatch.NewProtoError(obj.ID(), ErrorInvalidMethod, "get_popup: popups are not supported")
			}},
			{Name: "set_window_geometry", Handler: consumeArgs(intArg, intArg, intArg, intArg)},
			{Name: "ack_configure", Handler: consumeArgs(intArg)},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "xdg_toplevel",
		Version: 3,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				t := obj.(*XdgToplevel)
				if t.mapped && t.ft != nil {
					t.ft.UnregisterNode(t.node)
				}
				t.client.DestroyObject(t.ID())
				return nil
			}},
			{Name: "set_parent", Handler: consumeArgs(objectArg)},
			{Name: "set_title", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				title, err := r.String()
				if err != nil {
					return err
				}
				obj.(*XdgToplevel).Title = title
				return nil
			}},
			{Name: "set_app_id", Handler: consumeArgs(stringArg)},
			{Name: "show_window_menu", Handler: consumeArgs(objectArg, intArg, intArg, intArg)},
			{Name: "move", Handler: consumeArgs(objectArg, intArg)},
			{Name: "resize", Handler: consumeArgs(objectArg, intArg, intArg)},
			{Name: "set_max_size", Handler: consumeArgs(intArg, intArg)},
			{Name: "set_min_size", Handler: consumeArgs(intArg, intArg)},
			{Name: "set_maximized", Handler: func(obj objects.Object, r *wire.ArgReader) error { return nil }},
			{Name: "unset_maximized", Handler: func(obj objects.Object, r *wire.ArgReader) error { return nil }},
			{Name: "set_fullscreen", Handler: consumeArgs(objectArg)},
			{Name: "unset_fullscreen", Handler: func(obj objects.Object, r *wire.ArgReader) error { return nil }},
			{Name: "set_minimized", Handler: func(obj objects.Object, r *wire.ArgReader) error { return nil }},
		},
	})
}

// WmBase is the per-client xdg_wm_base binding (spec §6.1).
type WmBase struct {
	Base
	client     ClientHandle
	tree       *scene.Tree
	activeSeat func() scene.ActiveSeat
	ft         *FocusTargets
}

// BindWmBase builds the registry.Global bind callback for xdg_wm_base.
// activeSeat resolves the currently-relevant seat for map_tiled's
// "most recently active seat" rule (spec §4.5) at request time, since
// it may change between binds. ft lets a newly mapped toplevel
// register itself so the seat's key/pointer forward path (spec §4.6)
// can find it again.
func BindWmBase(tree *scene.Tree, activeSeat func() scene.ActiveSeat, ft *FocusTargets) BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &WmBase{Base: NewBase(newID, "xdg_wm_base", version, 4), client: c, tree: tree, activeSeat: activeSeat, ft: ft}
		return addClientObj(c, obj)
	}
}

func (wb *WmBase) handleCreatePositioner(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	p := &Positioner{Base: NewBase(newID, "xdg_positioner", wb.Version(), 7), client: wb.client}
	return addClientObj(wb.client, p)
}

func (wb *WmBase) handleGetXdgSurface(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	surfaceID, err := r.Uint32()
	if err != nil {
		return err
	}
	surfaceObj, err := wb.client.Table().Lookup(surfaceID)
	if err != nil {
		return dispatch.NewProtoError(wb.ID(), ErrorInvalidObject, "get_xdg_surface: unknown surface %d", surfaceID)
	}
	surface, ok := surfaceObj.(*Surface)
	if !ok {
		return dispatch.NewProtoError(wb.ID(), XdgWmBaseErrorRole, "get_xdg_surface: object %d is not a wl_surface", surfaceID)
	}
	xs := &XdgSurface{Base: NewBase(newID, "xdg_surface", wb.Version(), 5), client: wb.client, tree: wb.tree, activeSeat: wb.activeSeat, ft: wb.ft, surface: surface}
	return addClientObj(wb.client, xs)
}

// Positioner is a client's xdg_positioner; popup placement is out of
// scope, so it only tracks enough state to exist between creation and
// destroy.
type Positioner struct {
	Base
	client ClientHandle
}

// XdgSurface is a client's xdg_surface: the role-bearing wrapper
// around a Surface, created before the concrete toplevel role object.
type XdgSurface struct {
	Base
	client     ClientHandle
	tree       *scene.Tree
	activeSeat func() scene.ActiveSeat
	ft         *FocusTargets
	surface    *Surface
	toplevel   *XdgToplevel
}

func (xs *XdgSurface) handleGetToplevel(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	if xs.surface.Role != RoleNone {
		return dispatch.NewProtoError(xs.ID(), XdgWmBaseErrorRole, "get_toplevel: surface %d already has a role", xs.surface.ID())
	}
	t := &XdgToplevel{Base: NewBase(newID, "xdg_toplevel", xs.Version(), 14), client: xs.client, xdgSurface: xs, ft: xs.ft}
	xs.surface.Role = RoleToplevel
	xs.surface.RoleObj = t
	xs.toplevel = t
	if err := addClientObj(xs.client, t); err != nil {
		return err
	}
	t.sendConfigure()
	return nil
}

// XdgToplevel is a client's xdg_toplevel: the object whose first
// commit maps a Toplevel scene node via map_tiled (spec §4.5).
type XdgToplevel struct {
	Base
	client     ClientHandle
	xdgSurface *XdgSurface
	ft         *FocusTargets
	Title      string
	node       *scene.Toplevel
	mapped     bool
}

// sendConfigure emits an initial zero-size, stateless configure,
// letting the client choose its own size on the first commit (spec's
// xdg_toplevel configure semantics mirror the real protocol's
// client-chooses-size-when-zero convention).
func (t *XdgToplevel) sendConfigure() {
	var w wire.ArgWriter
	w.PutInt32(0)
	w.PutInt32(0)
	w.PutArray(nil)
	t.client.SendEvent(t.ID(), XdgToplevelEventConfigure, &w)

	var done wire.ArgWriter
	done.PutUint32(0)
	t.client.SendEvent(t.xdgSurface.ID(), XdgSurfaceEventConfigure, &done)
}

// onFirstCommit maps this toplevel into the scene tree the first time
// its wl_surface commits with the toplevel role assigned (spec §4.5
// map_tiled).
func (t *XdgToplevel) onFirstCommit() {
	if t.mapped {
		return
	}
	t.mapped = true
	t.node = scene.NewToplevel()
	t.node.Title = t.Title
	var as scene.ActiveSeat
	if t.xdgSurface.activeSeat != nil {
		as = t.xdgSurface.activeSeat()
	}
	t.xdgSurface.tree.MapTiled(t.node, as)
	t.xdgSurface.surface.Node = t.node
	if t.ft != nil {
		t.ft.RegisterNode(t.node, t.client)
	}
}

// sendClose emits xdg_toplevel.close, requesting the client destroy
// this toplevel (spec §4.5 unmap path).
func (t *XdgToplevel) sendClose() {
	var w wire.ArgWriter
	t.client.SendEvent(t.ID(), XdgToplevelEventClose, &w)
}
