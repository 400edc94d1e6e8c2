package scene

import "testing"

func fixedTheme() (func() int32, func() int32) {
	return func() int32 { return 2 }, func() int32 { return 20 }
}

type noSeat struct{}

func (noSeat) LastTiledKeyboardToplevel() (Node, *Container, bool) { return nil, nil, false }
func (noSeat) Output() *Output                                    { return nil }

func TestNewTreeHasDummyOutput(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	if tree.Dummy == nil || !tree.Dummy.IsDummy {
		t.Fatal("expected dummy output")
	}
	if tree.Dummy.Parent() != tree.Root {
		t.Fatal("dummy output not parented to root")
	}
	if err := tree.CheckInvariants(); err != nil {
		t.Fatalf("fresh tree violates invariants: %v", err)
	}
}

func TestAttachDetachOutput(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(out)
	if tree.Root.Outputs[1] != out {
		t.Fatal("output not attached")
	}

	ws := out.EnsureWorkspace("main")
	tree.Workspaces["main"] = ws
	if err := tree.CheckInvariants(); err != nil {
		t.Fatalf("invariants after attach: %v", err)
	}

	tree.DetachOutput(out)
	if _, ok := tree.Root.Outputs[1]; ok {
		t.Fatal("output still present after detach")
	}
	if ws.Output != tree.Dummy {
		t.Fatalf("workspace not reparented to dummy, got %v", ws.Output)
	}
	if tree.Dummy.CurrentWorkspace != ws {
		t.Fatal("dummy output did not adopt orphaned workspace as current")
	}
	if err := tree.CheckInvariants(); err != nil {
		t.Fatalf("invariants after detach: %v", err)
	}
}

func TestMapTiledCreatesContainerOnFreshWorkspace(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(out)

	top := NewToplevel()
	tree.MapTiled(top, noSeat{})

	ws := out.CurrentWorkspace
	if ws == nil || ws.Container == nil {
		t.Fatal("expected a container to be created")
	}
	if len(ws.Container.Children) != 1 || ws.Container.Children[0] != top {
		t.Fatalf("unexpected children: %+v", ws.Container.Children)
	}
	if err := tree.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestMapTiledAppendsToExistingContainer(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(out)

	first := NewToplevel()
	tree.MapTiled(first, noSeat{})
	second := NewToplevel()
	tree.MapTiled(second, noSeat{})

	c := out.CurrentWorkspace.Container
	if len(c.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(c.Children))
	}
}

func TestMapTiledFallsBackToDummyWithNoOutputs(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	top := NewToplevel()
	tree.MapTiled(top, noSeat{})
	if tree.Dummy.CurrentWorkspace == nil {
		t.Fatal("expected placement on dummy output")
	}
}

type lastTiledSeat struct {
	prev Node
	cont *Container
}

func (s lastTiledSeat) LastTiledKeyboardToplevel() (Node, *Container, bool) {
	return s.prev, s.cont, s.prev != nil
}
func (s lastTiledSeat) Output() *Output { return nil }

func TestMapTiledInsertsAfterLastTiledToplevel(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(out)

	first := NewToplevel()
	tree.MapTiled(first, noSeat{})
	c := out.CurrentWorkspace.Container

	second := NewToplevel()
	tree.MapTiled(second, lastTiledSeat{prev: first, cont: c})

	if len(c.Children) != 2 || c.Children[1] != second {
		t.Fatalf("expected second inserted right after first: %+v", c.Children)
	}
}

func TestMapFloatingCentersAndClamps(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{X: 0, Y: 0, Width: 1000, Height: 800})
	tree.AttachOutput(out)
	ws := out.EnsureWorkspace("main")

	content := NewToplevel()
	tree.MapFloating(content, 400, 300, ws)

	if len(ws.Floats) != 1 {
		t.Fatalf("expected one float, got %d", len(ws.Floats))
	}
	f := ws.Floats[0]
	if f.Rect.X2() > out.Geometry.X2() || f.Rect.Y2() > out.Geometry.Y2() {
		t.Fatalf("float escapes output bounds: %+v", f.Rect)
	}
	if f.Content != content {
		t.Fatal("float content mismatch")
	}
}

func TestMapFloatingOversizeClampsToOutput(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 500, Height: 400})
	tree.AttachOutput(out)
	ws := out.EnsureWorkspace("main")

	content := NewToplevel()
	tree.MapFloating(content, 2000, 2000, ws)

	f := ws.Floats[0]
	if f.Rect.Width > out.Geometry.Width || f.Rect.Height > out.Geometry.Height {
		t.Fatalf("float not clamped: %+v", f.Rect)
	}
}

func TestShowWorkspaceCreatesOnRealOutput(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(out)

	ws, result := tree.ShowWorkspace("dev", out)
	if result != ShowWorkspaceCreated {
		t.Fatalf("result = %v, want ShowWorkspaceCreated", result)
	}
	if out.CurrentWorkspace != ws {
		t.Fatal("new workspace not made current")
	}
}

func TestShowWorkspaceRefusesDummyForNewName(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	_, result := tree.ShowWorkspace("dev", tree.Dummy)
	if result != ShowWorkspaceRefusedDummy {
		t.Fatalf("result = %v, want ShowWorkspaceRefusedDummy", result)
	}
}

func TestShowWorkspaceAlreadyActive(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	out := NewOutput(1, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(out)
	tree.ShowWorkspace("dev", out)

	_, result := tree.ShowWorkspace("dev", out)
	if result != ShowWorkspaceAlreadyActive {
		t.Fatalf("result = %v, want ShowWorkspaceAlreadyActive", result)
	}
}

func TestShowWorkspaceMigratesBetweenOutputs(t *testing.T) {
	bw, th := fixedTheme()
	tree := NewTree(bw, th)
	outA := NewOutput(1, Rect{Width: 1920, Height: 1080})
	outB := NewOutput(2, Rect{Width: 1920, Height: 1080})
	tree.AttachOutput(outA)
	tree.AttachOutput(outB)

	tree.ShowWorkspace("dev", outA)
	ws, result := tree.ShowWorkspace("dev", outB)
	if result != ShowWorkspaceMigrated {
		t.Fatalf("result = %v, want ShowWorkspaceMigrated", result)
	}
	if ws.Output != outB {
		t.Fatal("workspace did not migrate to requesting seat's output")
	}
	if outA.CurrentWorkspace == ws {
		t.Fatal("source output still reports migrated workspace as current")
	}
}

func TestRectClamp(t *testing.T) {
	bounds := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	r := Rect{X: 90, Y: 90, Width: 50, Height: 50}
	got := r.Clamp(bounds)
	if got.X2() > bounds.X2() || got.Y2() > bounds.Y2() {
		t.Fatalf("clamp escaped bounds: %+v", got)
	}
}

func TestContainerInsertAfterAndRemove(t *testing.T) {
	a, b := NewToplevel(), NewToplevel()
	c := NewContainer(Horizontal, a)
	c.InsertAfter(a, b)
	if len(c.Children) != 2 || c.Children[1] != b {
		t.Fatalf("unexpected children after insert: %+v", c.Children)
	}
	c.RemoveChild(a)
	if len(c.Children) != 1 || c.Children[0] != b {
		t.Fatalf("unexpected children after remove: %+v", c.Children)
	}
}
