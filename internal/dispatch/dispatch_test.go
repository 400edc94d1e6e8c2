package dispatch

import (
	"testing"

	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/wire"
)

type fakeObject struct {
	id   uint32
	name string
}

func (f *fakeObject) ID() uint32            { return f.id }
func (f *fakeObject) InterfaceName() string { return f.name }
func (f *fakeObject) Version() uint32       { return 1 }
func (f *fakeObject) NumRequests() uint16   { return 0 }

func TestDispatchUnknownInterface(t *testing.T) {
	r := NewRegistry()
	obj := &fakeObject{id: 1, name: "missing_interface"}
	err := r.Dispatch(obj, 0, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown interface")
	}
	pe, ok := err.(*ProtoError)
	if !ok || pe.Code != ErrorInvalidMethod {
		t.Fatalf("got %v, want ProtoError with ErrorInvalidMethod", err)
	}
}

func TestDispatchOpcodeOutOfRange(t *testing.T) {
	r := NewRegistry()
	r.Register(&Interface{Name: "wl_thing", Version: 1, Requests: []Request{
		{Name: "destroy", Handler: func(objects.Object, *wire.ArgReader) error { return nil }},
	}})
	obj := &fakeObject{id: 1, name: "wl_thing"}
	err := r.Dispatch(obj, 5, nil, nil)
	if err == nil {
		t.Fatal("expected error for out-of-range opcode")
	}
}

func TestDispatchHandlerError(t *testing.T) {
	r := NewRegistry()
	want := NewProtoError(1, ErrorImplementation, "boom")
	r.Register(&Interface{Name: "wl_thing", Version: 1, Requests: []Request{
		{Name: "boom", Handler: func(objects.Object, *wire.ArgReader) error { return want }},
	}})
	obj := &fakeObject{id: 1, name: "wl_thing"}
	err := r.Dispatch(obj, 0, nil, nil)
	if err != want {
		t.Fatalf("got %v, want %v", err, want)
	}
}

func TestDispatchTrailingBytes(t *testing.T) {
	r := NewRegistry()
	r.Register(&Interface{Name: "wl_thing", Version: 1, Requests: []Request{
		{Name: "noop", Handler: func(objects.Object, *wire.ArgReader) error { return nil }},
	}})
	obj := &fakeObject{id: 1, name: "wl_thing"}
	err := r.Dispatch(obj, 0, []byte{1, 2, 3, 4}, nil)
	if err == nil {
		t.Fatal("expected trailing-bytes error")
	}
}

func TestDispatchSuccess(t *testing.T) {
	r := NewRegistry()
	var gotArg uint32
	r.Register(&Interface{Name: "wl_thing", Version: 1, Requests: []Request{
		{Name: "set", Handler: func(_ objects.Object, r *wire.ArgReader) error {
			v, err := r.Uint32()
			gotArg = v
			return err
		}},
	}})
	var w wire.ArgWriter
	w.PutUint32(77)
	obj := &fakeObject{id: 1, name: "wl_thing"}
	if err := r.Dispatch(obj, 0, w.Bytes(), nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotArg != 77 {
		t.Fatalf("gotArg = %d, want 77", gotArg)
	}
}

func TestInterfaceNumRequests(t *testing.T) {
	iface := &Interface{Requests: []Request{{}, {}, {}}}
	if iface.NumRequests() != 3 {
		t.Fatalf("NumRequests() = %d, want 3", iface.NumRequests())
	}
}
