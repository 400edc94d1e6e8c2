// Package backend declares the collaborator contracts the core
// consumes from out-of-scope modules (spec §6.2): the rendering
// backend, input devices, and the external configuration module.
// Nothing in this package renders pixels or talks to hardware; it is
// the seam the core is written against.
package backend

import (
	"context"
	"time"

	"github.com/bnema/jaywl/internal/connector"
)

// Backend is a long-running driver (GPU/DRM/X11 window, per backend
// choice) that surfaces connector and input events to the core.
type Backend interface {
	// Run drives the backend until ctx is cancelled or a fatal error
	// occurs; per spec §7, an error out of Run shuts the compositor
	// down cleanly, draining all clients.
	Run(ctx context.Context) error

	// Connectors lists the backend's monitor handles known so far.
	Connectors() []Connector

	// OnChange registers cb to be invoked whenever new connector or
	// input events are pending for delivery.
	OnChange(cb func())
}

// Connector is a backend monitor attachment point (spec §3).
type Connector interface {
	ID() uint64
	KernelID() string
	// Event returns the next pending ConnectorEvent, or ok=false if
	// none is queued.
	Event() (connector.Event, bool)
}

// Renderer supplies dmabuf format/modifier capability to
// zwp_linux_dmabuf_v1 (spec §4.8, §6.2).
type Renderer interface {
	// FormatModifiers returns every (fourcc, modifier, externalOnly)
	// triple the renderer can import.
	FormatModifiers() []FormatModifier
	// DeviceNumber is the render node's dev_t, for main_device /
	// tranche_target_device.
	DeviceNumber() uint64
	// SupportsExternalTextures reports whether the renderer can
	// sample external-only dmabuf formats.
	SupportsExternalTextures() bool
}

// FormatModifier is one DRM fourcc/modifier capability entry.
type FormatModifier struct {
	Format       uint32
	Modifier     uint64
	ExternalOnly bool
}

// InputEventKind discriminates the Input collaborator's event stream.
type InputEventKind int

const (
	InputKey InputEventKind = iota
	InputPointerMotion
	InputPointerButton
	InputTouch
)

// InputEvent is one event from an input device, carrying a monotonic
// timestamp (spec §6.2 Input: "delivers key, pointer, touch events
// with monotonic timestamps").
type InputEvent struct {
	Kind      InputEventKind
	Time      time.Duration
	Keysym    uint32
	Pressed   bool
	DX, DY    float64
	Button    uint32
	TouchID   int32
	X, Y      float64
}

// Input is the device collaborator delivering InputEvents to the core
// event loop.
type Input interface {
	// Poll returns the next pending InputEvent, or ok=false if none
	// is queued.
	Poll() (InputEvent, bool)
}

// Configuration is the external configuration module's callback and
// accessor surface (spec §6.2). The core notifies it of lifecycle
// events; it answers back with seat/binding setup. This core treats
// Configuration purely behaviorally: no file format or reload
// mechanism lives here.
type Configuration interface {
	NewConnector(id uint64, kernelID string)
	ConnectorConnected(id uint64)
	ConnectorDisconnected(id uint64)
	DelConnector(id uint64)
	NewInputDevice(name string)
	OnIdle()
	OnDevicesEnumerated()
}
