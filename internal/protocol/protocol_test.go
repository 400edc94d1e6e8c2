package protocol

import (
	"testing"

	"github.com/bnema/jaywl/internal/backend"
	"github.com/bnema/jaywl/internal/connector"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/wire"
)

type sentEvent struct {
	objectID uint32
	opcode   uint16
	args     []byte
}

type fakeClient struct {
	table     *objects.Table
	sent      []sentEvent
	destroyed []uint32
	disc      error
}

func newFakeClient() *fakeClient { return &fakeClient{table: objects.NewTable()} }

func (c *fakeClient) Table() *objects.Table { return c.table }
func (c *fakeClient) SendEvent(objectID uint32, opcode uint16, w *wire.ArgWriter) {
	c.sent = append(c.sent, sentEvent{objectID, opcode, append([]byte(nil), w.Bytes()...)})
}
func (c *fakeClient) DestroyObject(id uint32) { c.destroyed = append(c.destroyed, id) }
func (c *fakeClient) Disconnect(err error)     { c.disc = err }

type fakeRenderer struct {
	formats  []backend.FormatModifier
	external bool
	dev      uint64
}

func (r fakeRenderer) FormatModifiers() []backend.FormatModifier { return r.formats }
func (r fakeRenderer) DeviceNumber() uint64                      { return r.dev }
func (r fakeRenderer) SupportsExternalTextures() bool            { return r.external }

func TestRegistryBindClampsVersionAndDispatches(t *testing.T) {
	reg := registry.New()
	var gotVersion uint32
	g := &registry.Global{
		Name:      reg.NextName(),
		Interface: "wl_compositor",
		Version:   4,
		Bind: func(c registry.Client, newID, version uint32) error {
			gotVersion = version
			return nil
		},
	}
	reg.Add(g)

	c := newFakeClient()
	ro := NewRegistryObject(1, c, reg)
	ro.replay()

	var w wire.ArgWriter
	w.PutUint32(g.Name)
	w.PutString("wl_compositor")
	w.PutUint32(2)
	w.PutUint32(100)
	r := wire.NewArgReader(w.Bytes(), nil)
	if err := ro.handleBind(r); err != nil {
		t.Fatalf("handleBind: %v", err)
	}
	if gotVersion != 2 {
		t.Fatalf("gotVersion = %d, want 2 (clamped to requested)", gotVersion)
	}
}

func TestRegistryBindRejectsInterfaceMismatch(t *testing.T) {
	reg := registry.New()
	g := &registry.Global{Name: reg.NextName(), Interface: "wl_shm", Version: 1, Bind: func(registry.Client, uint32, uint32) error { return nil }}
	reg.Add(g)

	c := newFakeClient()
	ro := NewRegistryObject(1, c, reg)

	var w wire.ArgWriter
	w.PutUint32(g.Name)
	w.PutString("wl_compositor")
	w.PutUint32(1)
	w.PutUint32(100)
	r := wire.NewArgReader(w.Bytes(), nil)
	if err := ro.handleBind(r); err == nil {
		t.Fatal("expected error for interface name mismatch")
	}
}

func TestRegistryBindRejectsDoubleSingletonBind(t *testing.T) {
	reg := registry.New()
	g := &registry.Global{Name: reg.NextName(), Interface: "xdg_wm_base", Version: 1, Singleton: true, Bind: func(registry.Client, uint32, uint32) error { return nil }}
	reg.Add(g)

	c := newFakeClient()
	ro := NewRegistryObject(1, c, reg)

	bindOnce := func(newID uint32) error {
		var w wire.ArgWriter
		w.PutUint32(g.Name)
		w.PutString("xdg_wm_base")
		w.PutUint32(1)
		w.PutUint32(newID)
		return ro.handleBind(wire.NewArgReader(w.Bytes(), nil))
	}
	if err := bindOnce(100); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if err := bindOnce(101); err == nil {
		t.Fatal("expected error on second singleton bind")
	}
}

func TestOutputBindReplaysGeometryModeAndDone(t *testing.T) {
	bw := func() int32 { return 2 }
	th := func() int32 { return 20 }
	tree := scene.NewTree(bw, th)
	reg := registry.New()
	or := NewOutputRegistrar()

	managed := connector.NewManager(tree, reg, or.BindOutput, nil)
	if err := managed.Handle(1, "HDMI-A-1", connector.Event{Kind: connector.EventConnected, Info: connector.MonitorInfo{Name: "HDMI-A-1", Width: 1920, Height: 1080}}); err != nil {
		t.Fatalf("Handle Connected: %v", err)
	}

	c := newFakeClient()
	connData, _ := managed.Get(1)
	bindFn := or.BindOutput(connData)
	if err := bindFn(c, 50, 4); err != nil {
		t.Fatalf("bind: %v", err)
	}

	var gotDone, gotGeometry, gotMode, gotName bool
	for _, e := range c.sent {
		switch e.opcode {
		case OutputEventDone:
			gotDone = true
		case OutputEventGeometry:
			gotGeometry = true
		case OutputEventMode:
			gotMode = true
		case OutputEventName:
			gotName = true
		}
	}
	if !gotDone || !gotGeometry || !gotMode || !gotName {
		t.Fatalf("missing expected events: done=%v geometry=%v mode=%v name=%v (%d events)", gotDone, gotGeometry, gotMode, gotName, len(c.sent))
	}
}

func TestDmabufBindReplaysModifiersForV3(t *testing.T) {
	renderer := fakeRenderer{
		formats: []backend.FormatModifier{
			{Format: 1, Modifier: 0x0102030405060708},
			{Format: 2, Modifier: 0, ExternalOnly: true},
		},
		external: false,
	}
	bind := BindDmabuf(renderer)
	c := newFakeClient()
	if err := bind(c, 10, 3); err != nil {
		t.Fatalf("bind: %v", err)
	}

	modifierEvents := 0
	for _, e := range c.sent {
		if e.opcode == DmabufEventModifier {
			modifierEvents++
		}
	}
	if modifierEvents != 1 {
		t.Fatalf("modifier events = %d, want 1 (external-only format should be skipped)", modifierEvents)
	}
}

func TestDmabufBindReplaysFormatsForV1(t *testing.T) {
	renderer := fakeRenderer{
		formats: []backend.FormatModifier{
			{Format: 1, Modifier: 0},
			{Format: 1, Modifier: 0xff},
			{Format: 2, Modifier: 0},
		},
		external: true,
	}
	bind := BindDmabuf(renderer)
	c := newFakeClient()
	if err := bind(c, 10, 1); err != nil {
		t.Fatalf("bind: %v", err)
	}

	formatEvents := 0
	for _, e := range c.sent {
		if e.opcode == DmabufEventFormat {
			formatEvents++
		}
	}
	if formatEvents != 2 {
		t.Fatalf("format events = %d, want 2 distinct fourccs", formatEvents)
	}
}

func TestDmabufBindV4SkipsLegacyReplay(t *testing.T) {
	renderer := fakeRenderer{formats: []backend.FormatModifier{{Format: 1}}}
	bind := BindDmabuf(renderer)
	c := newFakeClient()
	if err := bind(c, 10, 4); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if len(c.sent) != 0 {
		t.Fatalf("expected no bind-time events for version 4, got %d", len(c.sent))
	}
}
