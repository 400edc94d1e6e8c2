package protocol

import (
	"sync"

	"github.com/bnema/jaywl/internal/connector"
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/wire"
)

// wl_output event opcodes.
const (
	OutputEventGeometry uint16 = 0
	OutputEventMode     uint16 = 1
	OutputEventDone     uint16 = 2
	OutputEventScale    uint16 = 3
	OutputEventName     uint16 = 4
	OutputEventDesc     uint16 = 5
)

// OutputModeCurrent is the lone bit this core ever sets on a
// wl_output.mode event, since every connector reports exactly one mode
// (spec §6.2 Backend contract has no mode list, just width/height/refresh).
const OutputModeCurrent uint32 = 0x1

// SubpixelUnknown and TransformNormal are the only subpixel/transform
// values this core advertises, since the renderer collaborator is out
// of scope for geometry correction (spec §1 Non-goals).
const (
	SubpixelUnknown int32 = 0
	TransformNormal int32 = 0
)

func init() { registerFuncs = append(registerFuncs, registerWlOutput) }

func registerWlOutput(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "wl_output",
		Version: 4,
		Requests: []dispatch.Request{
			{Name: "release", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				o := obj.(*OutputObject)
				o.instances.remove(o)
				o.client.DestroyObject(o.ID())
				return nil
			}},
		},
	})
}

// outputInstances tracks every bound OutputObject for one connector so
// a later ModeChanged event can be re-emitted to each of them (spec
// §4.7).
type outputInstances struct {
	mu   sync.Mutex
	objs []*OutputObject
}

func (oi *outputInstances) add(o *OutputObject) {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	oi.objs = append(oi.objs, o)
}

func (oi *outputInstances) remove(o *OutputObject) {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	for i, x := range oi.objs {
		if x == o {
			oi.objs = append(oi.objs[:i], oi.objs[i+1:]...)
			return
		}
	}
}

func (oi *outputInstances) each(fn func(*OutputObject)) {
	oi.mu.Lock()
	objs := append([]*OutputObject(nil), oi.objs...)
	oi.mu.Unlock()
	for _, o := range objs {
		fn(o)
	}
}

// OutputRegistrar owns one outputInstances tracker per connector and
// builds the bind closures and mode-change hook internal/connector
// needs, keeping that package free of any wl_output wire knowledge.
type OutputRegistrar struct {
	mu    sync.Mutex
	byID  map[uint64]*outputInstances
}

// NewOutputRegistrar creates an empty registrar.
func NewOutputRegistrar() *OutputRegistrar {
	return &OutputRegistrar{byID: make(map[uint64]*outputInstances)}
}

func (or *OutputRegistrar) instancesFor(id uint64) *outputInstances {
	or.mu.Lock()
	defer or.mu.Unlock()
	oi, ok := or.byID[id]
	if !ok {
		oi = &outputInstances{}
		or.byID[id] = oi
	}
	return oi
}

// BindOutput builds the registry.Global bind callback for one
// connector's wl_output global (wired as connector.NewManager's
// bindOutput parameter).
func (or *OutputRegistrar) BindOutput(conn *connector.ConnectorData) func(registry.Client, uint32, uint32) error {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &OutputObject{
			Base:      NewBase(newID, "wl_output", version, 1),
			client:    c,
			conn:      conn,
			instances: or.instancesFor(conn.ID),
		}
		if err := addClientObj(c, obj); err != nil {
			return err
		}
		obj.instances.add(obj)
		obj.sendState()
		return nil
	}
}

// ModeChangedHook builds the callback connector.Manager.SetModeChangedHook
// wires in, re-emitting geometry/mode/done to every live instance.
func (or *OutputRegistrar) ModeChangedHook() func(conn *connector.ConnectorData, mode connector.Mode) {
	return func(conn *connector.ConnectorData, _ connector.Mode) {
		or.instancesFor(conn.ID).each(func(o *OutputObject) { o.sendState() })
	}
}

// OutputObject is one client's bound wl_output instance.
type OutputObject struct {
	Base
	client    ClientHandle
	conn      *connector.ConnectorData
	instances *outputInstances
}

func (o *OutputObject) sendState() {
	out := o.conn.Output()
	if out == nil {
		return
	}
	o.sendGeometry(out)
	o.sendMode(out)
	if o.Version() >= 2 {
		o.sendScale(out)
	}
	if o.Version() >= 4 {
		o.sendName(out)
		o.sendDescription(out)
	}
	var done wire.ArgWriter
	o.client.SendEvent(o.ID(), OutputEventDone, &done)
}

func (o *OutputObject) sendGeometry(out *scene.Output) {
	var w wire.ArgWriter
	w.PutInt32(out.Geometry.X)
	w.PutInt32(out.Geometry.Y)
	// physical_width/physical_height are millimeters, not pixels; no
	// connector in this core reports physical display size (spec §6.2
	// Backend contract), so these are always unknown.
	w.PutInt32(0)
	w.PutInt32(0)
	w.PutInt32(SubpixelUnknown)
	w.PutString("jaywl")
	w.PutString(out.Name)
	w.PutInt32(TransformNormal)
	o.client.SendEvent(o.ID(), OutputEventGeometry, &w)
}

func (o *OutputObject) sendMode(out *scene.Output) {
	var w wire.ArgWriter
	w.PutUint32(OutputModeCurrent)
	w.PutInt32(out.Geometry.Width)
	w.PutInt32(out.Geometry.Height)
	w.PutInt32(out.RefreshMHz)
	o.client.SendEvent(o.ID(), OutputEventMode, &w)
}

func (o *OutputObject) sendScale(out *scene.Output) {
	var w wire.ArgWriter
	scale := int32(out.Scale)
	if scale < 1 {
		scale = 1
	}
	w.PutInt32(scale)
	o.client.SendEvent(o.ID(), OutputEventScale, &w)
}

func (o *OutputObject) sendName(out *scene.Output) {
	var w wire.ArgWriter
	w.PutString(out.Name)
	o.client.SendEvent(o.ID(), OutputEventName, &w)
}

func (o *OutputObject) sendDescription(out *scene.Output) {
	var w wire.ArgWriter
	w.PutString(out.Description)
	o.client.SendEvent(o.ID(), OutputEventDesc, &w)
}
