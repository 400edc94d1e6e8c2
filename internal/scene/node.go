// Package scene implements the display -> output -> workspace ->
// container/float -> surface tree (spec §3 Scene nodes, §4.5) and its
// placement policies.
package scene

import "sync/atomic"

// NodeID uniquely identifies a scene node for the lifetime of the
// compositor process.
type NodeID uint64

var nodeIDSeq uint64

// NextNodeID allocates a fresh, process-unique node id. Held as one
// global counter per spec §9 ("node id allocator has a single
// initialization at startup").
func NextNodeID() NodeID {
	return NodeID(atomic.AddUint64(&nodeIDSeq, 1))
}

// Kind discriminates the node variants in the tree.
type Kind int

const (
	KindDisplay Kind = iota
	KindOutput
	KindWorkspace
	KindContainer
	KindFloat
	KindToplevel
	KindLayer
)

// Axis is a container's layout axis.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// Node is the common capability every scene node exposes: identity,
// kind and the single parent back-reference invariant (spec §3: every
// non-root node has exactly one parent, and after any mutation
// parent(N) must have N among its children — see Tree.CheckInvariants).
type Node interface {
	ID() NodeID
	Kind() Kind
	Parent() Node
	SetParent(Node)
}

type base struct {
	id     NodeID
	parent Node
}

func newBase(Kind) base { return base{id: NextNodeID()} }

func (b *base) ID() NodeID       { return b.id }
func (b *base) Parent() Node     { return b.parent }
func (b *base) SetParent(p Node) { b.parent = p }

// Display is the tree root. There is exactly one per compositor.
type Display struct {
	base
	Outputs map[ConnectorID]*Output
}

func (d *Display) Kind() Kind { return KindDisplay }

// NewDisplay creates the root node.
func NewDisplay() *Display {
	return &Display{base: newBase(KindDisplay), Outputs: make(map[ConnectorID]*Output)}
}

// ConnectorID identifies a backend monitor handle (spec §3 Connector).
type ConnectorID uint64

// Output mirrors a connected Connector (spec §3 Connector/Output,
// §4.7). IsDummy marks the placeholder output workspaces fall back to
// when no real monitor is connected.
type Output struct {
	base
	ConnectorID ConnectorID
	Geometry    Rect
	Scale       float64
	Name        string
	Description string
	RefreshMHz  int32

	Workspaces       []*Workspace
	CurrentWorkspace *Workspace
	IsDummy          bool
}

func (o *Output) Kind() Kind { return KindOutput }

// NewOutput creates a detached output node; callers attach it to the
// Display via Tree.AttachOutput.
func NewOutput(id ConnectorID, geom Rect) *Output {
	return &Output{base: newBase(KindOutput), ConnectorID: id, Geometry: geom, Scale: 1}
}

// EnsureWorkspace returns the output's current workspace, creating a
// fresh unnamed-by-caller workspace if none exists yet (spec §4.5).
func (o *Output) EnsureWorkspace(name string) *Workspace {
	if o.CurrentWorkspace != nil {
		return o.CurrentWorkspace
	}
	ws := NewWorkspace(name, o)
	o.attachWorkspace(ws)
	o.setCurrent(ws)
	return ws
}

func (o *Output) attachWorkspace(ws *Workspace) {
	ws.SetParent(o)
	ws.Output = o
	o.Workspaces = append(o.Workspaces, ws)
}

func (o *Output) detachWorkspace(ws *Workspace) {
	for i, w := range o.Workspaces {
		if w == ws {
			o.Workspaces = append(o.Workspaces[:i], o.Workspaces[i+1:]...)
			break
		}
	}
	if o.CurrentWorkspace == ws {
		o.CurrentWorkspace = nil
	}
}

func (o *Output) setCurrent(ws *Workspace) {
	if o.CurrentWorkspace != nil {
		o.CurrentWorkspace.Visible = false
	}
	o.CurrentWorkspace = ws
	ws.Visible = true
}

// Workspace is a named virtual desktop bound to one output (spec §3).
type Workspace struct {
	base
	Name      string
	Output    *Output
	Container *Container
	Floats    []*Float
	Visible   bool

	lastActiveChild Node
}

func (w *Workspace) Kind() Kind { return KindWorkspace }

// NewWorkspace creates a detached workspace node.
func NewWorkspace(name string, output *Output) *Workspace {
	return &Workspace{base: newBase(KindWorkspace), Name: name, Output: output}
}

// LastActiveChild returns the most recently focused child of this
// workspace, defaulting to the root container (or the workspace
// itself if empty), for show_workspace's Direction::Unspecified focus
// (spec §4.5).
func (w *Workspace) LastActiveChild() Node {
	if w.lastActiveChild != nil {
		return w.lastActiveChild
	}
	if w.Container != nil {
		return w.Container
	}
	return w
}

// SetLastActiveChild records the most recently focused descendant.
func (w *Workspace) SetLastActiveChild(n Node) { w.lastActiveChild = n }

// SetContainer installs the workspace's single root container.
func (w *Workspace) SetContainer(c *Container) {
	c.SetParent(w)
	c.Workspace = w
	w.Container = c
}

func (w *Workspace) attachFloat(f *Float) {
	f.SetParent(w)
	f.Workspace = w
	w.Floats = append(w.Floats, f)
}

func (w *Workspace) detachFloat(f *Float) {
	for i, x := range w.Floats {
		if x == f {
			w.Floats = append(w.Floats[:i], w.Floats[i+1:]...)
			return
		}
	}
}

// Container lays its children out along a single axis (spec §3, §4.5).
type Container struct {
	base
	Split     Axis
	Children  []Node
	Workspace *Workspace
}

func (c *Container) Kind() Kind { return KindContainer }

// NewContainer creates a detached container with the given split axis
// and initial child.
func NewContainer(split Axis, first Node) *Container {
	c := &Container{base: newBase(KindContainer), Split: split}
	c.AppendChild(first)
	return c
}

// AppendChild adds a child at the end of the container's ordered
// children list.
func (c *Container) AppendChild(n Node) {
	n.SetParent(c)
	c.Children = append(c.Children, n)
}

// InsertAfter inserts n immediately after sibling in the children
// order (spec §4.5 map_tiled step 2: insert as right/below sibling).
func (c *Container) InsertAfter(sibling, n Node) {
	n.SetParent(c)
	for i, ch := range c.Children {
		if ch == sibling {
			c.Children = append(c.Children, nil)
			copy(c.Children[i+2:], c.Children[i+1:])
			c.Children[i+1] = n
			return
		}
	}
	c.Children = append(c.Children, n)
}

// RemoveChild detaches n from this container.
func (c *Container) RemoveChild(n Node) {
	for i, ch := range c.Children {
		if ch == n {
			c.Children = append(c.Children[:i], c.Children[i+1:]...)
			return
		}
	}
}

// Float is a floating top-level window, always a direct child of a
// Workspace (spec §3).
type Float struct {
	base
	Workspace *Workspace
	Rect      Rect
	Content   Node
}

func (f *Float) Kind() Kind { return KindFloat }

// NewFloat creates a detached float wrapping content at rect.
func NewFloat(rect Rect, content Node) *Float {
	f := &Float{base: newBase(KindFloat), Rect: rect, Content: content}
	content.SetParent(f)
	return f
}

// Toplevel is a mapped client surface participating in tiling/floating
// layout (an xdg_toplevel in protocol terms).
type Toplevel struct {
	base
	Title string
}

func (t *Toplevel) Kind() Kind { return KindToplevel }

// NewToplevel creates a detached toplevel surface node.
func NewToplevel() *Toplevel { return &Toplevel{base: newBase(KindToplevel)} }

// Layer is a layer-shell surface (background/bottom/top/overlay),
// attached directly under its Output rather than a workspace.
type Layer struct {
	base
	Output *Output
}

func (l *Layer) Kind() Kind { return KindLayer }

// NewLayer creates a detached layer-shell surface node.
func NewLayer(output *Output) *Layer {
	return &Layer{base: newBase(KindLayer), Output: output}
}
