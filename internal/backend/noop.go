package backend

import "context"

// Noop is a zero-output, zero-input stand-in for the real GPU/DRM/X11
// backend and input/configuration collaborators (spec §6.2), used so
// `jaywl run` has something concrete to wire the core against before a
// real backend is selected. It surfaces no connectors, so the scene
// tree stays on its dummy output (spec §4.5 map_tiled rule 3) until a
// real Backend implementation is substituted.
type Noop struct{}

func (Noop) Run(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (Noop) Connectors() []Connector       { return nil }
func (Noop) OnChange(func())               {}

func (Noop) FormatModifiers() []FormatModifier { return nil }
func (Noop) DeviceNumber() uint64              { return 0 }
func (Noop) SupportsExternalTextures() bool    { return false }

func (Noop) Poll() (InputEvent, bool) { return InputEvent{}, false }

func (Noop) NewConnector(id uint64, kernelID string) {}
func (Noop) ConnectorConnected(id uint64)            {}
func (Noop) ConnectorDisconnected(id uint64)         {}
func (Noop) DelConnector(id uint64)                  {}
func (Noop) NewInputDevice(name string)              {}
func (Noop) OnIdle()                                 {}
func (Noop) OnDevicesEnumerated()                    {}
