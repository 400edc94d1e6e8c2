package protocol

import (
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/wire"
)

// zxdg_toplevel_decoration_v1 event opcode and mode values.
const (
	DecorationEventConfigure uint16 = 0

	DecorationModeClientSide uint32 = 1
	DecorationModeServerSide uint32 = 2
)

func init() { registerFuncs = append(registerFuncs, registerDecorationManager) }

func registerDecorationManager(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "zxdg_decoration_manager_v1",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				m := obj.(*DecorationManager)
				m.client.DestroyObject(m.ID())
				return nil
			}},
			{Name: "get_toplevel_decoration", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*DecorationManager).handleGetToplevelDecoration(r)
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "zxdg_toplevel_decoration_v1",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				d := obj.(*ToplevelDecoration)
				d.client.DestroyObject(d.ID())
				return nil
			}},
			{Name: "set_mode", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				if _, err := r.Uint32(); err != nil {
					return err
				}
				obj.(*ToplevelDecoration).reconfigure()
				return nil
			}},
			{Name: "unset_mode", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				obj.(*ToplevelDecoration).reconfigure()
				return nil
			}},
		},
	})
}

// DecorationManager is the per-client zxdg_decoration_manager_v1
// binding (spec §4.8). Server-side decorations are this compositor's
// only supported mode, following the tiled-layout border/title
// allowance map_floating reserves for every window.
type DecorationManager struct {
	Base
	client ClientHandle
}

// BindDecorationManager builds the registry.Global bind callback for
// zxdg_decoration_manager_v1.
func BindDecorationManager() BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &DecorationManager{Base: NewBase(newID, "zxdg_decoration_manager_v1", version, 2), client: c}
		return addClientObj(c, obj)
	}
}

func (m *DecorationManager) handleGetToplevelDecoration(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	toplevelID, err := r.Uint32()
	if err != nil {
		return err
	}
	toplevelObj, err := m.client.Table().Lookup(toplevelID)
	if err != nil {
		return dispatch.NewProtoError(m.ID(), ErrorInvalidObject, "get_toplevel_decoration: unknown toplevel %d", toplevelID)
	}
	toplevel, ok := toplevelObj.(*XdgToplevel)
	if !ok {
		return dispatch.NewProtoError(m.ID(), ErrorInvalidObject, "get_toplevel_decoration: object %d is not an xdg_toplevel", toplevelID)
	}
	d := &ToplevelDecoration{Base: NewBase(newID, "zxdg_toplevel_decoration_v1", m.Version(), 3), client: m.client, toplevel: toplevel}
	if err := addClientObj(m.client, d); err != nil {
		return err
	}
	d.sendConfigure()
	return nil
}

// ToplevelDecoration is a client's zxdg_toplevel_decoration_v1; every
// configure unconditionally advertises server-side mode, since this
// compositor always draws borders and titlebars itself (spec §3
// Theme, §4.5 map_floating's border/title allowance).
type ToplevelDecoration struct {
	Base
	client   ClientHandle
	toplevel *XdgToplevel
}

func (d *ToplevelDecoration) sendConfigure() {
	var w wire.ArgWriter
	w.PutUint32(DecorationModeServerSide)
	d.client.SendEvent(d.ID(), DecorationEventConfigure, &w)
}

// reconfigure implements the set_mode/unset_mode contract: a fresh
// decoration configure followed by the toplevel's current configure,
// so the client resizes consistently with whichever mode won (spec
// §4.8).
func (d *ToplevelDecoration) reconfigure() {
	d.sendConfigure()
	if d.toplevel != nil {
		d.toplevel.sendConfigure()
	}
}
