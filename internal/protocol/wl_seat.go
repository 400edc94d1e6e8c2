package protocol

import (
	"sync"
	"sync/atomic"

	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/seat"
	"github.com/bnema/jaywl/internal/wire"
)

// wl_seat event opcodes.
const (
	SeatEventCapabilities uint16 = 0
	SeatEventName         uint16 = 1
)

// wl_seat capability bits (spec §4.6: every seat has keyboard and
// pointer; touch is never advertised, and backend touch input only
// marks seat activity without reaching clients).
const (
	SeatCapPointer  uint32 = 1
	SeatCapKeyboard uint32 = 2
)

// wl_pointer / wl_keyboard event opcodes this core emits.
const (
	PointerEventEnter  uint16 = 0
	PointerEventLeave  uint16 = 1
	PointerEventMotion uint16 = 2
	PointerEventButton uint16 = 3
	PointerEventFrame  uint16 = 5

	KeyboardEventKeymap     uint16 = 0
	KeyboardEventEnter      uint16 = 1
	KeyboardEventLeave      uint16 = 2
	KeyboardEventKey        uint16 = 3
	KeyboardEventModifiers  uint16 = 4
	KeyboardEventRepeatInfo uint16 = 5
)

var serialSeq uint64

// NextSerial allocates a fresh protocol event serial (wl_keyboard.key,
// wl_pointer.button/motion and friends all take one), following the
// same process-wide atomic counter idiom as scene.NextNodeID (spec
// §9: "node id allocator has a single initialization at startup").
func NextSerial() uint32 {
	return uint32(atomic.AddUint64(&serialSeq, 1))
}

// FocusTargets maps a mapped scene node to the client that owns it,
// and each client's currently bound wl_keyboard/wl_pointer instances,
// so the seat's focus router forward path (spec §4.6: "otherwise
// forward to the focused keyboard node") can resolve a focused
// scene.Node back to the wire objects it must deliver events to. Built
// once at compositor startup and passed explicitly to the
// collaborators that need it, rather than held ambiently (spec §9).
type FocusTargets struct {
	mu        sync.Mutex
	owners    map[scene.NodeID]ClientHandle
	keyboards map[ClientHandle][]*Keyboard
	pointers  map[ClientHandle][]*Pointer
}

// NewFocusTargets creates an empty registry.
func NewFocusTargets() *FocusTargets {
	return &FocusTargets{
		owners:    make(map[scene.NodeID]ClientHandle),
		keyboards: make(map[ClientHandle][]*Keyboard),
		pointers:  make(map[ClientHandle][]*Pointer),
	}
}

// RegisterNode records that c owns n, called once a toplevel or layer
// surface maps into the scene (spec §4.5).
func (ft *FocusTargets) RegisterNode(n scene.Node, c ClientHandle) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.owners[n.ID()] = c
}

// UnregisterNode drops n's ownership record, called when its surface
// is destroyed.
func (ft *FocusTargets) UnregisterNode(n scene.Node) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	delete(ft.owners, n.ID())
}

func (ft *FocusTargets) addKeyboard(c ClientHandle, k *Keyboard) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.keyboards[c] = append(ft.keyboards[c], k)
}

func (ft *FocusTargets) removeKeyboard(c ClientHandle, k *Keyboard) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	list := ft.keyboards[c]
	for i, x := range list {
		if x == k {
			ft.keyboards[c] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (ft *FocusTargets) addPointer(c ClientHandle, p *Pointer) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.pointers[c] = append(ft.pointers[c], p)
}

func (ft *FocusTargets) removePointer(c ClientHandle, p *Pointer) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	list := ft.pointers[c]
	for i, x := range list {
		if x == p {
			ft.pointers[c] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// SendKey delivers a key event to every wl_keyboard bound by n's
// owning client (spec §4.6 forward path). A no-op if n is unmapped or
// its client never bound a wl_keyboard.
func (ft *FocusTargets) SendKey(n scene.Node, serial, timeMs, key, state uint32) {
	ft.mu.Lock()
	c, ok := ft.owners[n.ID()]
	var kbs []*Keyboard
	if ok {
		kbs = append(kbs, ft.keyboards[c]...)
	}
	ft.mu.Unlock()
	for _, k := range kbs {
		k.SendKey(serial, timeMs, key, state)
	}
}

// SendMotion delivers a pointer motion event to every wl_pointer bound
// by n's owning client (spec §4.6 forward path, pointer variant).
func (ft *FocusTargets) SendMotion(n scene.Node, timeMs uint32, x, y wire.Fixed) {
	ft.mu.Lock()
	c, ok := ft.owners[n.ID()]
	var ptrs []*Pointer
	if ok {
		ptrs = append(ptrs, ft.pointers[c]...)
	}
	ft.mu.Unlock()
	for _, p := range ptrs {
		p.SendMotion(timeMs, x, y)
	}
}

func init() { registerFuncs = append(registerFuncs, registerWlSeat) }

func registerWlSeat(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "wl_seat",
		Version: 7,
		Requests: []dispatch.Request{
			{Name: "get_pointer", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*SeatObject).handleGetPointer(r)
			}},
			{Name: "get_keyboard", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*SeatObject).handleGetKeyboard(r)
			}},
			{Name: "get_touch", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*SeatObject).handleGetTouch(r)
			}},
			{Name: "release", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				s := obj.(*SeatObject)
				s.client.DestroyObject(s.ID())
				return nil
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_pointer",
		Version: 7,
		Requests: []dispatch.Request{
			{Name: "set_cursor", Handler: consumeArgs(intArg, objectArg, intArg, intArg)},
			{Name: "release", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				p := obj.(*Pointer)
				if p.ft != nil {
					p.ft.removePointer(p.client, p)
				}
				p.client.DestroyObject(p.ID())
				return nil
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_keyboard",
		Version: 7,
		Requests: []dispatch.Request{
			{Name: "release", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				k := obj.(*Keyboard)
				if k.ft != nil {
					k.ft.removeKeyboard(k.client, k)
				}
				k.client.DestroyObject(k.ID())
				return nil
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:     "wl_touch",
		Version:  7,
		Requests: []dispatch.Request{
			{Name: "release", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				t := obj.(*Touch)
				t.client.DestroyObject(t.ID())
				return nil
			}},
		},
	})
}

// SeatObject is the per-client wl_seat binding, fronting one shared
// internal/seat.Seat (spec §3 Seat is process-wide, not per-client).
type SeatObject struct {
	Base
	client ClientHandle
	seat   *seat.Seat
	ft     *FocusTargets
}

// BindSeat builds the registry.Global bind callback for wl_seat, given
// the single process-wide Seat this binding fronts. ft is the shared
// FocusTargets registry the resulting wl_pointer/wl_keyboard instances
// register into, so the seat's forward path (spec §4.6) can reach them.
func BindSeat(s *seat.Seat, ft *FocusTargets) BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &SeatObject{Base: NewBase(newID, "wl_seat", version, 4), client: c, seat: s, ft: ft}
		if err := addClientObj(c, obj); err != nil {
			return err
		}
		var caps wire.ArgWriter
		caps.PutUint32(SeatCapPointer | SeatCapKeyboard)
		c.SendEvent(newID, SeatEventCapabilities, &caps)

		var name wire.ArgWriter
		name.PutString(s.Name)
		c.SendEvent(newID, SeatEventName, &name)
		return nil
	}
}

func (so *SeatObject) handleGetPointer(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	p := &Pointer{Base: NewBase(newID, "wl_pointer", so.Version(), 2), client: so.client, seat: so.seat, ft: so.ft}
	if err := addClientObj(so.client, p); err != nil {
		return err
	}
	if so.ft != nil {
		so.ft.addPointer(so.client, p)
	}
	return nil
}

func (so *SeatObject) handleGetKeyboard(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	k := &Keyboard{Base: NewBase(newID, "wl_keyboard", so.Version(), 1), client: so.client, seat: so.seat, ft: so.ft}
	if err := addClientObj(so.client, k); err != nil {
		return err
	}
	if so.ft != nil {
		so.ft.addKeyboard(so.client, k)
	}
	return nil
}

func (so *SeatObject) handleGetTouch(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	t := &Touch{Base: NewBase(newID, "wl_touch", so.Version(), 1), client: so.client}
	return addClientObj(so.client, t)
}

// Pointer is a client's wl_pointer. Motion/button delivery is driven
// by the input collaborator through internal/seat's router, not by
// any request on this object.
type Pointer struct {
	Base
	client ClientHandle
	seat   *seat.Seat
	ft     *FocusTargets
}

// SendMotion forwards a pointer position update to this client's
// pointer focus surface (spec §6.2 Input). wl_pointer.motion's first
// argument is the event timestamp, not a surface id — this core has
// no separate per-surface-local-coordinate notion since rendering is
// out of scope (spec §1 Non-goals), so x/y are the seat's raw pointer
// coordinates.
func (p *Pointer) SendMotion(timeMs uint32, x, y wire.Fixed) {
	var w wire.ArgWriter
	w.PutUint32(timeMs)
	w.PutFixed(x)
	w.PutFixed(y)
	p.client.SendEvent(p.ID(), PointerEventMotion, &w)
	var frame wire.ArgWriter
	p.client.SendEvent(p.ID(), PointerEventFrame, &frame)
}

// Keyboard is a client's wl_keyboard.
type Keyboard struct {
	Base
	client ClientHandle
	seat   *seat.Seat
	ft     *FocusTargets
}

// SendKey forwards a key event to this client's keyboard focus
// surface (spec §4.6: events not consumed by a binding).
func (k *Keyboard) SendKey(serial, timeMs, key, state uint32) {
	var w wire.ArgWriter
	w.PutUint32(serial)
	w.PutUint32(timeMs)
	w.PutUint32(key)
	w.PutUint32(state)
	k.client.SendEvent(k.ID(), KeyboardEventKey, &w)
}

// Touch is a client's wl_touch; this core advertises no touch
// capability, so it exists only to satisfy get_touch's must-not-fail
// contract and is never sent events.
type Touch struct {
	Base
	client ClientHandle
}
