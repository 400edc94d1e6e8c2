package scene

import "fmt"

// ActiveSeat is the subset of seat state map_tiled and show_workspace
// need, expressed as an interface so this package never imports
// internal/seat (seat imports scene, not the other way around).
type ActiveSeat interface {
	// LastTiledKeyboardToplevel returns the seat's cached last-tiled
	// keyboard toplevel, if it is still mapped in a Container.
	LastTiledKeyboardToplevel() (Node, *Container, bool)
	// Output returns the output the seat's pointer is currently on.
	Output() *Output
}

// Tree owns the root Display node, the dummy output, and the global
// name -> Workspace uniqueness map (spec §3 Workspace: "at most one
// workspace per name globally").
type Tree struct {
	Root        *Display
	Dummy       *Output
	Workspaces  map[string]*Workspace
	borderWidth func() int32
	titleHeight func() int32
}

// NewTree creates a tree with a dummy output already attached, the way
// the compositor always has somewhere to place windows even before
// any monitor is connected.
func NewTree(borderWidth, titleHeight func() int32) *Tree {
	root := NewDisplay()
	dummy := NewOutput(0, Rect{Width: 1280, Height: 720})
	dummy.IsDummy = true
	dummy.SetParent(root)
	root.Outputs[0] = dummy
	return &Tree{
		Root:        root,
		Dummy:       dummy,
		Workspaces:  make(map[string]*Workspace),
		borderWidth: borderWidth,
		titleHeight: titleHeight,
	}
}

// AttachOutput adds a freshly connected output under the root (spec
// §4.7 Connected transition).
func (t *Tree) AttachOutput(o *Output) {
	o.SetParent(t.Root)
	t.Root.Outputs[o.ConnectorID] = o
}

// DetachOutput removes an output from the root, reparenting its
// workspaces to the dummy output while preserving their names (spec
// §4.7 Disconnected transition).
func (t *Tree) DetachOutput(o *Output) {
	delete(t.Root.Outputs, o.ConnectorID)
	for _, ws := range append([]*Workspace(nil), o.Workspaces...) {
		o.detachWorkspace(ws)
		t.Dummy.attachWorkspace(ws)
	}
	if len(t.Dummy.Workspaces) > 0 && t.Dummy.CurrentWorkspace == nil {
		t.Dummy.setCurrent(t.Dummy.Workspaces[0])
	}
}

// MapTiled implements the map_tiled placement policy (spec §4.5).
func (t *Tree) MapTiled(node Node, seat ActiveSeat) {
	if seat != nil {
		if prev, container, ok := seat.LastTiledKeyboardToplevel(); ok {
			container.InsertAfter(prev, node)
			return
		}
	}

	var output *Output
	if seat != nil {
		output = seat.Output()
	}
	if output == nil {
		for _, o := range t.Root.Outputs {
			if !o.IsDummy {
				output = o
				break
			}
		}
	}
	if output == nil {
		output = t.Dummy
	}

	ws := output.EnsureWorkspace("")
	if ws.Container != nil {
		ws.Container.AppendChild(node)
		return
	}
	c := NewContainer(Horizontal, node)
	ws.SetContainer(c)
}

// MapFloating implements the map_floating placement policy (spec
// §4.5): grow by the theme's border/title allowance, center on the
// workspace's output, clamp to the output extent.
func (t *Tree) MapFloating(node Node, w, h int32, ws *Workspace) {
	bw := t.borderWidth()
	th := t.titleHeight()
	w += 2 * bw
	h += 2*bw + th

	out := ws.Output.Geometry
	rect := Rect{Width: w, Height: h}
	if w < out.Width {
		rect.X = out.X + (out.Width-w)/2
	} else {
		rect.Width = out.Width
		rect.X = out.X
	}
	if h < out.Height {
		rect.Y = out.Y + (out.Height-h)/2
	} else {
		rect.Height = out.Height
		rect.Y = out.Y
	}
	rect = rect.Clamp(out)

	f := NewFloat(rect, node)
	ws.attachFloat(f)
}

// ShowWorkspaceResult reports what show_workspace actually did, so
// callers can log/notify without re-deriving state.
type ShowWorkspaceResult int

const (
	ShowWorkspaceMigrated ShowWorkspaceResult = iota
	ShowWorkspaceAlreadyActive
	ShowWorkspaceCreated
	ShowWorkspaceRefusedDummy
)

// ShowWorkspace implements the show_workspace(seat, name) operation
// (spec §4.5). seatOutput is the output the seat is currently on.
func (t *Tree) ShowWorkspace(name string, seatOutput *Output) (*Workspace, ShowWorkspaceResult) {
	if ws, ok := t.Workspaces[name]; ok {
		out := ws.Output
		target := seatOutput
		if target == nil {
			target = out
		}
		already := out == target && out.CurrentWorkspace == ws
		if !already {
			out.detachWorkspace(ws)
			target.attachWorkspace(ws)
			target.setCurrent(ws)
		}
		if already {
			return ws, ShowWorkspaceAlreadyActive
		}
		return ws, ShowWorkspaceMigrated
	}

	if seatOutput == nil || seatOutput.IsDummy {
		return nil, ShowWorkspaceRefusedDummy
	}
	ws := NewWorkspace(name, seatOutput)
	seatOutput.attachWorkspace(ws)
	seatOutput.setCurrent(ws)
	t.Workspaces[name] = ws
	return ws, ShowWorkspaceCreated
}

// CheckInvariants walks the whole tree verifying spec §4.5's
// consistency rules: every reachable non-root node's parent really
// does list it as a child, and at most one workspace per output is
// visible. It is meant for tests and debug assertions, not the hot
// path.
func (t *Tree) CheckInvariants() error {
	for _, o := range t.Root.Outputs {
		if o.Parent() != t.Root {
			return invariantErr("output %d parent mismatch", o.ID())
		}
		visibleCount := 0
		for _, ws := range o.Workspaces {
			if ws.Parent() != o {
				return invariantErr("workspace %d parent mismatch", ws.ID())
			}
			if ws.Output != o {
				return invariantErr("workspace %d output mismatch", ws.ID())
			}
			if ws.Visible {
				visibleCount++
			}
			if ws.Container != nil {
				if err := checkContainer(ws.Container, ws); err != nil {
					return err
				}
			}
			for _, f := range ws.Floats {
				if f.Parent() != ws {
					return invariantErr("float %d parent mismatch", f.ID())
				}
			}
		}
		if visibleCount > 1 {
			return invariantErr("output %d has %d visible workspaces", o.ID(), visibleCount)
		}
	}
	return nil
}

func checkContainer(c *Container, parent Node) error {
	if c.Parent() != parent {
		return invariantErr("container %d parent mismatch", c.ID())
	}
	for _, ch := range c.Children {
		if ch.Parent() != c {
			return invariantErr("container %d child %d parent mismatch", c.ID(), ch.ID())
		}
		if cc, ok := ch.(*Container); ok {
			if err := checkContainer(cc, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvariantError signals InternalInvariantViolation (spec §7): a
// check that must never fail at runtime.
type InvariantError struct{ Message string }

func (e *InvariantError) Error() string { return "scene: invariant violated: " + e.Message }

func invariantErr(format string, args ...any) error {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}
