package connector

import (
	"testing"

	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
)

func fixedTheme() (func() int32, func() int32) {
	return func() int32 { return 2 }, func() int32 { return 20 }
}

func newTestManager(t *testing.T) (*Manager, *scene.Tree, *registry.Registry) {
	t.Helper()
	bw, th := fixedTheme()
	tree := scene.NewTree(bw, th)
	reg := registry.New()
	bindOutput := func(conn *ConnectorData) func(registry.Client, uint32, uint32) error {
		return func(registry.Client, uint32, uint32) error { return nil }
	}
	return NewManager(tree, reg, bindOutput, nil), tree, reg
}

func TestConnectedTransitionsAttachesOutput(t *testing.T) {
	mgr, tree, reg := newTestManager(t)
	err := mgr.Handle(1, "HDMI-A-1", Event{Kind: EventConnected, Info: MonitorInfo{Name: "HDMI-A-1", Width: 1920, Height: 1080}})
	if err != nil {
		t.Fatalf("Handle Connected: %v", err)
	}
	conn, ok := mgr.Get(1)
	if !ok || conn.State() != StateConnected {
		t.Fatalf("expected connected state, got %v ok=%v", conn, ok)
	}
	if conn.Output() == nil {
		t.Fatal("expected an attached output")
	}
	if len(tree.Root.Outputs) != 2 { // dummy + real
		t.Fatalf("expected 2 outputs in tree, got %d", len(tree.Root.Outputs))
	}
	if _, ok := reg.Lookup(conn.global.Name); !ok {
		t.Fatal("expected wl_output global registered")
	}
}

func TestConnectedTwiceIsError(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	if err := mgr.Handle(1, "HDMI-A-1", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}}); err != nil {
		t.Fatalf("first Connected: %v", err)
	}
	if err := mgr.Handle(1, "HDMI-A-1", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}}); err == nil {
		t.Fatal("expected error on double Connected")
	}
}

func TestFirstOutputHookFiresOnlyOnce(t *testing.T) {
	bw, th := fixedTheme()
	tree := scene.NewTree(bw, th)
	reg := registry.New()
	calls := 0
	bindOutput := func(conn *ConnectorData) func(registry.Client, uint32, uint32) error {
		return func(registry.Client, uint32, uint32) error { return nil }
	}
	mgr := NewManager(tree, reg, bindOutput, func(o *scene.Output) { calls++ })

	mgr.Handle(1, "A", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})
	mgr.Handle(2, "B", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})
	if calls != 1 {
		t.Fatalf("onFirstOutput called %d times, want 1", calls)
	}
}

func TestSecondOutputPlacedToTheRight(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	mgr.Handle(1, "A", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})
	mgr.Handle(2, "B", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})

	connA, _ := mgr.Get(1)
	connB, _ := mgr.Get(2)
	if connB.Output().Geometry.X != connA.Output().Geometry.X2() {
		t.Fatalf("second output not placed right of first: a=%+v b=%+v", connA.Output().Geometry, connB.Output().Geometry)
	}
}

func TestModeChangedUpdatesGeometryAndFiresHook(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	mgr.Handle(1, "A", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})

	var got Mode
	mgr.SetModeChangedHook(func(conn *ConnectorData, mode Mode) { got = mode })
	if err := mgr.Handle(1, "A", Event{Kind: EventModeChanged, Mode: Mode{Width: 2560, Height: 1440, RefreshMHz: 144000}}); err != nil {
		t.Fatalf("Handle ModeChanged: %v", err)
	}
	conn, _ := mgr.Get(1)
	if conn.Output().Geometry.Width != 2560 || conn.Output().Geometry.Height != 1440 {
		t.Fatalf("geometry not updated: %+v", conn.Output().Geometry)
	}
	if got.Width != 2560 {
		t.Fatalf("hook not invoked with new mode: %+v", got)
	}
}

func TestModeChangedWhileDisconnectedIsError(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	mgr.Handle(1, "A", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})
	mgr.Handle(1, "A", Event{Kind: EventDisconnected})
	if err := mgr.Handle(1, "A", Event{Kind: EventModeChanged, Mode: Mode{Width: 100, Height: 100}}); err == nil {
		t.Fatal("expected error for ModeChanged while disconnected")
	}
}

func TestDisconnectedRemovesGlobalAndDetachesOutput(t *testing.T) {
	mgr, tree, reg := newTestManager(t)
	mgr.Handle(1, "A", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})
	conn, _ := mgr.Get(1)
	name := conn.global.Name

	if err := mgr.Handle(1, "A", Event{Kind: EventDisconnected}); err != nil {
		t.Fatalf("Handle Disconnected: %v", err)
	}
	if _, ok := reg.Lookup(name); ok {
		t.Fatal("expected global removed")
	}
	if conn.State() != StateDisconnected {
		t.Fatalf("state = %v, want disconnected", conn.State())
	}
	if conn.Output() != nil {
		t.Fatal("expected output pointer cleared")
	}
	if len(tree.Root.Outputs) != 1 { // only dummy remains
		t.Fatalf("expected only dummy output left, got %d", len(tree.Root.Outputs))
	}
}

func TestRemovedDropsConnectorBookkeeping(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	mgr.Handle(1, "A", Event{Kind: EventConnected, Info: MonitorInfo{Width: 1920, Height: 1080}})
	mgr.Handle(1, "A", Event{Kind: EventDisconnected})
	if err := mgr.Handle(1, "A", Event{Kind: EventRemoved}); err != nil {
		t.Fatalf("Handle Removed: %v", err)
	}
	if _, ok := mgr.Get(1); ok {
		t.Fatal("expected connector to be dropped from manager bookkeeping")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateAbsent:       "absent",
		StateDisconnected: "disconnected",
		StateConnected:    "connected",
		StateRemoved:      "removed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
