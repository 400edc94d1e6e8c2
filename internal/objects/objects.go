// Package objects implements the per-client object table (spec §4.2):
// the id -> object map, the client/server id ranges and the delete_id
// reuse rule.
package objects

import (
	"fmt"
	"sync/atomic"
)

// ClientIDMin/ClientIDMax bound the id range a client may allocate for
// objects it creates via a new_id request argument.
const (
	ClientIDMin uint32 = 0x00000001
	ClientIDMax uint32 = 0xFEFFFFFF
	ServerIDMin uint32 = 0xFF000000
	ServerIDMax uint32 = 0xFFFFFFFF
)

// Object is the capability set every bound protocol object exposes to
// the table and to interface dispatch (spec §3 Object, §4.4).
type Object interface {
	ID() uint32
	InterfaceName() string
	Version() uint32
	NumRequests() uint16
}

// ErrInUse is returned by Add when the id is already occupied.
type ErrInUse struct{ ID uint32 }

func (e *ErrInUse) Error() string { return fmt.Sprintf("objects: id %d already in use", e.ID) }

// ErrOutOfRange is returned by Add when the id falls outside the half
// of the id space permitted for its origin (client- or server-
// allocated).
type ErrOutOfRange struct{ ID uint32 }

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("objects: id %d outside permitted range", e.ID)
}

// ErrInvalidObject is returned by Lookup when the id is unknown
// (spec §4.2).
type ErrInvalidObject struct{ ID uint32 }

func (e *ErrInvalidObject) Error() string { return fmt.Sprintf("objects: invalid object %d", e.ID) }

// pendingDelete tracks an id that has been removed server-side but not
// yet acknowledged by delete_id having been sent to the client; per
// spec §4.2 the id cannot be reallocated until that happens.
type pendingDelete struct {
	sent bool
}

// Table is one client's id -> Object map.
type Table struct {
	objects map[uint32]Object
	pending map[uint32]*pendingDelete
	nextSrv uint32
}

// NewTable creates an empty table. Server-allocated ids start at
// ServerIDMin, mirroring the high-bit split used throughout Wayland
// implementations (the teacher's wlclient.Display reserves id 1 for
// wl_display and starts its own allocator at 2 on the client side;
// here the server side starts its counter at the top of the range).
func NewTable() *Table {
	return &Table{
		objects: make(map[uint32]Object),
		pending: make(map[uint32]*pendingDelete),
		nextSrv: ServerIDMin,
	}
}

// AddClientObj registers an object whose id was supplied by the
// client in a new_id request argument.
func (t *Table) AddClientObj(obj Object) error {
	id := obj.ID()
	if id < ClientIDMin || id > ClientIDMax {
		return &ErrOutOfRange{ID: id}
	}
	return t.add(obj)
}

// AddServerObj registers a server-allocated object (e.g. a callback
// object created in response to wl_display.sync), returning the
// freshly allocated id it was given.
func (t *Table) AddServerObj(newObj func(id uint32) Object) (Object, error) {
	id := atomic.AddUint32(&t.nextSrv, 1) - 1
	if id < ServerIDMin {
		return nil, &ErrOutOfRange{ID: id}
	}
	obj := newObj(id)
	if err := t.add(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (t *Table) add(obj Object) error {
	id := obj.ID()
	if _, exists := t.objects[id]; exists {
		return &ErrInUse{ID: id}
	}
	if p, ok := t.pending[id]; ok && !p.sent {
		return &ErrInUse{ID: id}
	}
	delete(t.pending, id)
	t.objects[id] = obj
	return nil
}

// Lookup resolves an id to its Object, failing if the id is unknown.
// Interface-mismatch checks are the caller's responsibility (it knows
// the expected interface from the request being dispatched).
func (t *Table) Lookup(id uint32) (Object, error) {
	obj, ok := t.objects[id]
	if !ok {
		return nil, &ErrInvalidObject{ID: id}
	}
	return obj, nil
}

// RemoveObj removes an object from the table. For client-owned ids
// (below ServerIDMin) it marks the id pending until DeleteIDSent is
// called, implementing the delete_id acknowledgement rule; for
// server-owned ids it frees the id immediately since the server
// controls allocation on its own side.
func (t *Table) RemoveObj(id uint32) {
	if _, ok := t.objects[id]; !ok {
		return
	}
	delete(t.objects, id)
	if id < ServerIDMin {
		t.pending[id] = &pendingDelete{}
	}
}

// DeleteIDSent marks that the wl_display.delete_id event for id has
// been sent to the client, permitting reallocation.
func (t *Table) DeleteIDSent(id uint32) {
	if p, ok := t.pending[id]; ok {
		p.sent = true
	}
}

// Len reports how many live objects remain (used by leak tracking on
// client teardown).
func (t *Table) Len() int { return len(t.objects) }

// Each iterates every live object, for teardown and debugging.
func (t *Table) Each(fn func(Object)) {
	for _, obj := range t.objects {
		fn(obj)
	}
}
