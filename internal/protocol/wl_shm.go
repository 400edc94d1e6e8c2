package protocol

import (
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/wire"
)

// wl_shm event opcodes.
const ShmEventFormat uint16 = 0

// DRM/shm format codes this core advertises (spec §4.8 dmabuf shares
// the same fourcc space; these two are the mandatory wl_shm formats).
const (
	ShmFormatARGB8888 uint32 = 0
	ShmFormatXRGB8888 uint32 = 1
)

func init() { registerFuncs = append(registerFuncs, registerWlShm) }

func registerWlShm(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "wl_shm",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "create_pool", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Shm).handleCreatePool(r)
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_shm_pool",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "create_buffer", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*ShmPool).handleCreateBuffer(r)
			}},
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				p := obj.(*ShmPool)
				p.client.DestroyObject(p.ID())
				return nil
			}},
			{Name: "resize", Handler: consumeArgs(intArg)},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "wl_buffer",
		Version: 1,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				b := obj.(*Buffer)
				b.client.DestroyObject(b.ID())
				return nil
			}},
		},
	})
}

// Shm is the per-client wl_shm binding.
type Shm struct {
	Base
	client ClientHandle
}

// BindShm builds the registry.Global bind callback for wl_shm,
// replaying the two mandatory pixel formats on bind.
func BindShm() BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &Shm{Base: NewBase(newID, "wl_shm", version, 1), client: c}
		if err := addClientObj(c, obj); err != nil {
			return err
		}
		for _, f := range []uint32{ShmFormatARGB8888, ShmFormatXRGB8888} {
			var w wire.ArgWriter
			w.PutUint32(f)
			c.SendEvent(newID, ShmEventFormat, &w)
		}
		return nil
	}
}

func (s *Shm) handleCreatePool(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	fd, err := r.FD()
	if err != nil {
		return err
	}
	size, err := r.Int32()
	if err != nil {
		return err
	}
	pool := &ShmPool{Base: NewBase(newID, "wl_shm_pool", s.Version(), 3), client: s.client, fd: fd, size: size}
	return addClientObj(s.client, pool)
}

// ShmPool backs buffer allocation with the client's shared memfd; this
// core never maps or reads the pool since it does not composite
// pixels (spec §1 Non-goals), but owns the fd for correct lifetime.
type ShmPool struct {
	Base
	client ClientHandle
	fd     wire.FD
	size   int32
}

func (p *ShmPool) handleCreateBuffer(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	if _, err := r.Int32(); err != nil { // offset
		return err
	}
	width, err := r.Int32()
	if err != nil {
		return err
	}
	height, err := r.Int32()
	if err != nil {
		return err
	}
	if _, err := r.Int32(); err != nil { // stride
		return err
	}
	if _, err := r.Uint32(); err != nil { // format
		return err
	}
	buf := &Buffer{Base: NewBase(newID, "wl_buffer", p.Version(), 1), client: p.client, Width: width, Height: height}
	return addClientObj(p.client, buf)
}

// Buffer is a client's wl_buffer: the pixel data is out of scope, but
// its dimensions feed map_floating's sizing (spec §4.5).
type Buffer struct {
	Base
	client        ClientHandle
	Width, Height int32
}
