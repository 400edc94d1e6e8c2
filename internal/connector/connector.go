// Package connector implements the monitor hotplug state machine
// (spec §4.7): Absent -> Disconnected -> Connected -> Disconnected ->
// Removed, driven by backend ConnectorEvents, wiring wl_output
// globals in and out of the registry as it goes.
package connector

import (
	"fmt"
	"sync"

	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/scene"
)

// State is a position in the connector lifecycle state machine.
type State int

const (
	StateAbsent State = iota
	StateDisconnected
	StateConnected
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// MonitorInfo is the subset of a Connected event the core needs to
// build an Output (spec §6.2 Renderer / Backend contracts).
type MonitorInfo struct {
	Name        string
	Description string
	Width       int32
	Height      int32
	RefreshMHz  int32
}

// Mode is a display mode change payload.
type Mode struct {
	Width      int32
	Height     int32
	RefreshMHz int32
}

// Event is one of the four ConnectorEvent variants (spec §4.7).
type Event struct {
	Kind EventKind
	Info MonitorInfo
	Mode Mode
}

type EventKind int

const (
	EventConnected EventKind = iota
	EventModeChanged
	EventDisconnected
	EventRemoved
)

// ConnectorData is the compositor-side bookkeeping for one backend
// connector handle (spec §3 Connector, §4.7). Name mirrors the
// backend's kernel_id, supplementing the spec's bare "id" field so
// log lines and wl_output.name can report the same string the
// backend/CLI use (e.g. "HDMI-A-1"), per original_source's connector
// task.
type ConnectorData struct {
	ID   uint64
	Name string

	mu     sync.Mutex
	state  State
	output *scene.Output
	global *registry.Global
}

// New creates connector bookkeeping in the Absent state, transitioned
// to Disconnected the first time the backend reports it exists.
func New(id uint64, name string) *ConnectorData {
	return &ConnectorData{ID: id, Name: name, state: StateAbsent}
}

func (c *ConnectorData) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ConnectorData) Output() *scene.Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

// Manager drives every connector's state machine and owns the side
// effects: wl_output global lifecycle, scene tree attach/detach, and
// first-output seat repositioning (spec §4.7).
type Manager struct {
	mu         sync.Mutex
	tree       *scene.Tree
	reg        *registry.Registry
	bindOutput func(conn *ConnectorData) func(c registry.Client, newID, version uint32) error
	onFirstOutput func(o *scene.Output)
	onModeChanged func(conn *ConnectorData, mode Mode)
	connectors map[uint64]*ConnectorData
}

// NewManager creates a connector Manager wired to the scene tree and
// global registry. bindOutput builds the wl_output bind callback for
// a connector (internal/protocol owns the wl_output wire format);
// onFirstOutput repositions seats to center when the very first
// output appears (spec §4.7 "if this is the first output reposition
// all seats to its center").
func NewManager(tree *scene.Tree, reg *registry.Registry, bindOutput func(conn *ConnectorData) func(c registry.Client, newID, version uint32) error, onFirstOutput func(o *scene.Output)) *Manager {
	return &Manager{
		tree:          tree,
		reg:           reg,
		bindOutput:    bindOutput,
		onFirstOutput: onFirstOutput,
		connectors:    make(map[uint64]*ConnectorData),
	}
}

// SetModeChangedHook installs the callback invoked after a connector's
// output geometry is updated by a ModeChanged event, so
// internal/protocol can re-emit wl_output.mode/geometry/done to every
// client holding an Output object for it (spec §4.7).
func (m *Manager) SetModeChangedHook(fn func(conn *ConnectorData, mode Mode)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onModeChanged = fn
}

// Handle applies one ConnectorEvent to the named connector's state
// machine, creating its ConnectorData on first sight.
func (m *Manager) Handle(id uint64, name string, ev Event) error {
	m.mu.Lock()
	conn, ok := m.connectors[id]
	if !ok {
		conn = New(id, name)
		conn.state = StateDisconnected
		m.connectors[id] = conn
	}
	m.mu.Unlock()

	switch ev.Kind {
	case EventConnected:
		return m.handleConnected(conn, ev.Info)
	case EventModeChanged:
		return m.handleModeChanged(conn, ev.Mode)
	case EventDisconnected:
		return m.handleDisconnected(conn)
	case EventRemoved:
		return m.handleRemoved(conn)
	default:
		return fmt.Errorf("connector: unknown event kind %d", ev.Kind)
	}
}

func (m *Manager) handleConnected(conn *ConnectorData, info MonitorInfo) error {
	conn.mu.Lock()
	if conn.state == StateConnected {
		conn.mu.Unlock()
		return fmt.Errorf("connector %d: Connected event while already connected", conn.ID)
	}
	conn.state = StateConnected
	conn.mu.Unlock()

	m.mu.Lock()
	x := int32(0)
	isFirst := true
	for _, o := range m.tree.Root.Outputs {
		if o.IsDummy {
			continue
		}
		isFirst = false
		if x2 := o.Geometry.X2(); x2 > x {
			x = x2
		}
	}
	m.mu.Unlock()
	if x < 0 {
		x = 0
	}

	out := scene.NewOutput(scene.ConnectorID(conn.ID), scene.Rect{
		X: x, Y: 0, Width: info.Width, Height: info.Height,
	})
	out.Name = info.Name
	out.Description = info.Description
	out.RefreshMHz = info.RefreshMHz

	m.tree.AttachOutput(out)

	conn.mu.Lock()
	conn.output = out
	conn.global = &registry.Global{
		Name:      m.reg.NextName(),
		Interface: "wl_output",
		Version:   4,
		Bind:      m.bindOutput(conn),
	}
	conn.mu.Unlock()
	m.reg.Add(conn.global)

	if isFirst && m.onFirstOutput != nil {
		m.onFirstOutput(out)
	}
	return nil
}

func (m *Manager) handleModeChanged(conn *ConnectorData, mode Mode) error {
	conn.mu.Lock()
	if conn.state != StateConnected || conn.output == nil {
		conn.mu.Unlock()
		return fmt.Errorf("connector %d: ModeChanged while not connected", conn.ID)
	}
	conn.output.Geometry.Width = mode.Width
	conn.output.Geometry.Height = mode.Height
	conn.output.RefreshMHz = mode.RefreshMHz
	conn.mu.Unlock()

	m.mu.Lock()
	hook := m.onModeChanged
	m.mu.Unlock()
	if hook != nil {
		hook(conn, mode)
	}
	return nil
}

func (m *Manager) handleDisconnected(conn *ConnectorData) error {
	conn.mu.Lock()
	if conn.state != StateConnected {
		conn.mu.Unlock()
		return fmt.Errorf("connector %d: Disconnected while not connected", conn.ID)
	}
	conn.state = StateDisconnected
	out := conn.output
	global := conn.global
	conn.output = nil
	conn.global = nil
	conn.mu.Unlock()

	if global != nil {
		m.reg.Remove(global.Name)
	}
	if out != nil {
		m.tree.DetachOutput(out)
	}
	return nil
}

func (m *Manager) handleRemoved(conn *ConnectorData) error {
	conn.mu.Lock()
	conn.state = StateRemoved
	conn.mu.Unlock()

	m.mu.Lock()
	delete(m.connectors, conn.ID)
	m.mu.Unlock()
	return nil
}

// Get returns the connector data for id, if known.
func (m *Manager) Get(id uint64) (*ConnectorData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connectors[id]
	return c, ok
}
