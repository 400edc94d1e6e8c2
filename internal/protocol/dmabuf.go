package protocol

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bnema/jaywl/internal/backend"
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/wire"
)

// zwp_linux_buffer_params_v1 event opcodes.
const (
	ParamsEventCreated uint16 = 0
	ParamsEventFailed  uint16 = 1
)

// zwp_linux_dmabuf_v1 event opcodes. format predates modifier (added in
// version 3) and both are only replayed at bind time for pre-feedback
// clients (version < 4, spec §4.8).
const (
	DmabufEventFormat   uint16 = 0
	DmabufEventModifier uint16 = 1
)

// zwp_linux_dmabuf_feedback_v1 event opcodes (spec §4.8). These are
// listed by opcode number; sendFeedback emits them in its own order.
const (
	FeedbackEventDone               uint16 = 0
	FeedbackEventFormatTable        uint16 = 1
	FeedbackEventMainDevice         uint16 = 2
	FeedbackEventTrancheDone        uint16 = 3
	FeedbackEventTrancheTargetDevice uint16 = 4
	FeedbackEventTrancheFormats     uint16 = 5
	FeedbackEventTrancheFlags       uint16 = 6
)

func init() { registerFuncs = append(registerFuncs, registerDmabuf) }

func registerDmabuf(reg *dispatch.Registry) {
	reg.Register(&dispatch.Interface{
		Name:    "zwp_linux_dmabuf_v1",
		Version: 4,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				d := obj.(*Dmabuf)
				d.client.DestroyObject(d.ID())
				return nil
			}},
			{Name: "create_params", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Dmabuf).handleCreateParams(r)
			}},
			{Name: "get_default_feedback", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Dmabuf).handleGetDefaultFeedback(r)
			}},
			{Name: "get_surface_feedback", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*Dmabuf).handleGetSurfaceFeedback(r)
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "zwp_linux_buffer_params_v1",
		Version: 4,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				p := obj.(*BufferParams)
				p.client.DestroyObject(p.ID())
				return nil
			}},
			{Name: "add", Handler: func(_ objects.Object, r *wire.ArgReader) error {
				fd, err := r.FD()
				if err != nil {
					return err
				}
				defer fd.Close()
				// plane_idx, offset, stride, modifier_hi, modifier_lo
				for i := 0; i < 5; i++ {
					if _, err := r.Uint32(); err != nil {
						return err
					}
				}
				return nil
			}},
			{Name: "create", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*BufferParams).handleCreate(r)
			}},
			{Name: "create_immed", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				return obj.(*BufferParams).handleCreateImmed(r)
			}},
		},
	})
	reg.Register(&dispatch.Interface{
		Name:    "zwp_linux_dmabuf_feedback_v1",
		Version: 4,
		Requests: []dispatch.Request{
			{Name: "destroy", Handler: func(obj objects.Object, r *wire.ArgReader) error {
				f := obj.(*DmabufFeedback)
				f.client.DestroyObject(f.ID())
				return nil
			}},
		},
	})
}

// Dmabuf is the per-client zwp_linux_dmabuf_v1 binding.
type Dmabuf struct {
	Base
	client   ClientHandle
	renderer backend.Renderer
}

// BindDmabuf builds the registry.Global bind callback for
// zwp_linux_dmabuf_v1, fed by the renderer collaborator's advertised
// format/modifier capability (spec §6.2, §4.8).
func BindDmabuf(renderer backend.Renderer) BindFunc {
	return func(rc registry.Client, newID, version uint32) error {
		c := toClient(rc)
		obj := &Dmabuf{Base: NewBase(newID, "zwp_linux_dmabuf_v1", version, 4), client: c, renderer: renderer}
		if err := addClientObj(c, obj); err != nil {
			return err
		}
		if version < 4 {
			obj.replayLegacyFormats(version)
		}
		return nil
	}
}

// replayLegacyFormats sends the format/modifier events pre-feedback
// clients rely on instead of get_default_feedback (spec §4.8, following
// original_source/src/ifs/zwp_linux_dmabuf_v1.rs::bind_). Version 3
// clients get one modifier event per (format, modifier) pair; earlier
// clients get one format event per distinct fourcc.
func (d *Dmabuf) replayLegacyFormats(version uint32) {
	external := d.renderer.SupportsExternalTextures()
	if version >= 3 {
		for _, fm := range d.renderer.FormatModifiers() {
			if fm.ExternalOnly && !external {
				continue
			}
			var w wire.ArgWriter
			w.PutUint32(fm.Format)
			w.PutUint32(uint32(fm.Modifier >> 32))
			w.PutUint32(uint32(fm.Modifier))
			d.client.SendEvent(d.ID(), DmabufEventModifier, &w)
		}
		return
	}
	seen := make(map[uint32]bool)
	for _, fm := range d.renderer.FormatModifiers() {
		if fm.ExternalOnly && !external {
			continue
		}
		if seen[fm.Format] {
			continue
		}
		seen[fm.Format] = true
		var w wire.ArgWriter
		w.PutUint32(fm.Format)
		d.client.SendEvent(d.ID(), DmabufEventFormat, &w)
	}
}

func (d *Dmabuf) handleCreateParams(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	p := &BufferParams{Base: NewBase(newID, "zwp_linux_buffer_params_v1", d.Version(), 4), client: d.client}
	return addClientObj(d.client, p)
}

func (d *Dmabuf) handleGetDefaultFeedback(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	f := &DmabufFeedback{Base: NewBase(newID, "zwp_linux_dmabuf_feedback_v1", d.Version(), 1), client: d.client, renderer: d.renderer}
	if err := addClientObj(d.client, f); err != nil {
		return err
	}
	f.sendFeedback()
	return nil
}

func (d *Dmabuf) handleGetSurfaceFeedback(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	surfaceID, err := r.Uint32()
	if err != nil {
		return err
	}
	if _, err := d.client.Table().Lookup(surfaceID); err != nil {
		return dispatch.NewProtoError(d.ID(), ErrorInvalidObject, "get_surface_feedback: unknown surface %d", surfaceID)
	}
	f := &DmabufFeedback{Base: NewBase(newID, "zwp_linux_dmabuf_feedback_v1", d.Version(), 1), client: d.client, renderer: d.renderer}
	if err := addClientObj(d.client, f); err != nil {
		return err
	}
	f.sendFeedback()
	return nil
}

// BufferParams is a client's zwp_linux_buffer_params_v1. Since this
// core never imports dmabuf planes into a renderer, create/create_immed
// succeed unconditionally: the resulting wl_buffer exists only to
// satisfy the protocol's object lifetime, not to back real pixels
// (spec §1 Non-goals: screen compositing).
type BufferParams struct {
	Base
	client ClientHandle
}

func (p *BufferParams) handleCreate(r *wire.ArgReader) error {
	width, err := r.Int32()
	if err != nil {
		return err
	}
	height, err := r.Int32()
	if err != nil {
		return err
	}
	if _, err := r.Uint32(); err != nil { // format
		return err
	}
	if _, err := r.Uint32(); err != nil { // flags
		return err
	}
	obj, err := p.client.Table().AddServerObj(func(id uint32) objects.Object {
		return &Buffer{Base: NewBase(id, "wl_buffer", p.Version(), 1), client: p.client, Width: width, Height: height}
	})
	if err != nil {
		return dispatch.NewProtoError(p.ID(), ErrorImplementation, "create: %v", err)
	}
	var w wire.ArgWriter
	w.PutUint32(obj.ID())
	p.client.SendEvent(p.ID(), ParamsEventCreated, &w)
	return nil
}

func (p *BufferParams) handleCreateImmed(r *wire.ArgReader) error {
	newID, err := r.Uint32()
	if err != nil {
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
	if _, err := r.Uint32(); err != nil { // format
		return err
	}
	if _, err := r.Uint32(); err != nil { // flags
		return err
	}
	buf := &Buffer{Base: NewBase(newID, "wl_buffer", p.Version(), 1), client: p.client, Width: width, Height: height}
	return addClientObj(p.client, buf)
}

// DmabufFeedback is a client's zwp_linux_dmabuf_feedback_v1. Each
// instance advertises one tranche built from a memfd-backed format
// table, sealed read-only the way the real protocol requires clients
// be able to mmap it safely (spec §4.8).
type DmabufFeedback struct {
	Base
	client   ClientHandle
	renderer backend.Renderer
}

func (f *DmabufFeedback) sendFeedback() {
	formats := f.eligibleFormats()
	fd, size, err := buildFormatTableMemfd(formats)
	if err != nil {
		f.client.Disconnect(err)
		return
	}

	var mainDev wire.ArgWriter
	mainDev.PutArray(deviceNumberBytes(f.renderer.DeviceNumber()))
	f.client.SendEvent(f.ID(), FeedbackEventMainDevice, &mainDev)

	var table wire.ArgWriter
	table.PutFD(fd)
	table.PutUint32(size)
	f.client.SendEvent(f.ID(), FeedbackEventFormatTable, &table)

	var targetDev wire.ArgWriter
	targetDev.PutArray(deviceNumberBytes(f.renderer.DeviceNumber()))
	f.client.SendEvent(f.ID(), FeedbackEventTrancheTargetDevice, &targetDev)

	indices := make([]byte, 2*len(formats))
	for i := range formats {
		binary.LittleEndian.PutUint16(indices[i*2:], uint16(i))
	}
	var fmtsW wire.ArgWriter
	fmtsW.PutArray(indices)
	f.client.SendEvent(f.ID(), FeedbackEventTrancheFormats, &fmtsW)

	var flags wire.ArgWriter
	flags.PutUint32(0)
	f.client.SendEvent(f.ID(), FeedbackEventTrancheFlags, &flags)

	var trancheDone wire.ArgWriter
	f.client.SendEvent(f.ID(), FeedbackEventTrancheDone, &trancheDone)

	var done wire.ArgWriter
	f.client.SendEvent(f.ID(), FeedbackEventDone, &done)
}

// eligibleFormats drops external-only (format, modifier) pairs the
// renderer cannot sample, per spec §4.8.
func (f *DmabufFeedback) eligibleFormats() []backend.FormatModifier {
	all := f.renderer.FormatModifiers()
	external := f.renderer.SupportsExternalTextures()
	out := make([]backend.FormatModifier, 0, len(all))
	for _, fm := range all {
		if fm.ExternalOnly && !external {
			continue
		}
		out = append(out, fm)
	}
	return out
}

func deviceNumberBytes(dev uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, dev)
	return b
}

// buildFormatTableMemfd packs formats into the 16-bytes-per-entry
// layout (fourcc u32 LE, 4 bytes padding, modifier u64 LE) the
// linux-dmabuf format_table event requires, in a sealed memfd the
// client can safely mmap read-only (spec §4.8).
func buildFormatTableMemfd(formats []backend.FormatModifier) (wire.FD, uint32, error) {
	buf := make([]byte, 16*len(formats))
	for i, f := range formats {
		row := buf[i*16:]
		binary.LittleEndian.PutUint32(row[0:4], f.Format)
		binary.LittleEndian.PutUint64(row[8:16], f.Modifier)
	}

	fd, err := unix.MemfdCreate("jaywl-dmabuf-format-table", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return wire.FD{}, 0, err
	}
	file := os.NewFile(uintptr(fd), "jaywl-dmabuf-format-table")
	if _, err := file.Write(buf); err != nil {
		file.Close()
		return wire.FD{}, 0, err
	}
	seals := unix.F_SEAL_GROW | unix.F_SEAL_SHRINK | unix.F_SEAL_WRITE
	if _, err := unix.FcntlInt(file.Fd(), unix.F_ADD_SEALS, seals); err != nil {
		file.Close()
		return wire.FD{}, 0, err
	}
	return wire.FD{File: file}, uint32(len(buf)), nil
}
