package compositor

import (
	"github.com/bnema/jaywl/internal/backend"
	"github.com/bnema/jaywl/internal/connector"
	"github.com/bnema/jaywl/internal/protocol"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/seat"
	"github.com/bnema/jaywl/internal/wire"
)

// drainBackendEvents runs on the event loop thread (it is only ever
// reached via Loop.Enqueue from the backend's OnChange callback),
// draining every connector and input event currently queued and
// applying it to the shared scene tree, connector manager and seats
// (spec §5, §6.2).
func (st *State) drainBackendEvents() {
	for _, conn := range st.backend.Connectors() {
		for {
			ev, ok := conn.Event()
			if !ok {
				break
			}
			st.handleConnectorEvent(conn, ev)
		}
	}
	if st.input == nil {
		return
	}
	for {
		ev, ok := st.input.Poll()
		if !ok {
			break
		}
		st.handleInput(ev)
	}
}

func (st *State) handleConnectorEvent(conn backend.Connector, ev connector.Event) {
	st.mu.Lock()
	firstSeen := !st.seenConnectors[conn.ID()]
	if firstSeen {
		st.seenConnectors[conn.ID()] = true
	}
	st.mu.Unlock()
	if firstSeen && st.cfgHook != nil {
		st.cfgHook.NewConnector(conn.ID(), conn.KernelID())
	}

	var detachedOutput *scene.Output
	if ev.Kind == connector.EventDisconnected {
		if cd, ok := st.conns.Get(conn.ID()); ok {
			detachedOutput = cd.Output()
		}
	}

	if err := st.conns.Handle(conn.ID(), conn.KernelID(), ev); err != nil {
		st.log.Warn("connector event", "id", conn.ID(), "err", err)
		return
	}
	st.seats.MarkTreeChanged()
	if detachedOutput != nil {
		st.seats.OnOutputRemoved(detachedOutput, st.tree.Dummy)
	}

	if st.cfgHook == nil {
		return
	}
	switch ev.Kind {
	case connector.EventConnected:
		st.cfgHook.ConnectorConnected(conn.ID())
	case connector.EventDisconnected:
		if detachedOutput != nil {
			st.cfgHook.ConnectorDisconnected(conn.ID())
		}
	case connector.EventRemoved:
		st.cfgHook.DelConnector(conn.ID())
		st.mu.Lock()
		delete(st.seenConnectors, conn.ID())
		st.mu.Unlock()
	}
}

// wl_keyboard modifier keysyms this core recognizes for seat.HandleKey's
// isMod callback. These are the well-known XKB keysym values for the
// left variant of each modifier (X11/keysymdef.h); a full keymap
// compiler is out of scope (spec §6.2), so only the plain left-side
// chords are treated as modifiers.
const (
	keysymShiftL   uint32 = 0xffe1
	keysymControlL uint32 = 0xffe3
	keysymAltL     uint32 = 0xffe9
	keysymSuperL   uint32 = 0xffeb
)

func isModifierKeysym(k seat.Keysym) (seat.Modifiers, bool) {
	switch uint32(k) {
	case keysymShiftL:
		return seat.ModShift, true
	case keysymControlL:
		return seat.ModCtrl, true
	case keysymAltL:
		return seat.ModAlt, true
	case keysymSuperL:
		return seat.ModLogo, true
	default:
		return 0, false
	}
}

// handleInput routes one backend.InputEvent to the default seat (spec
// §6.2 Input; per-device seat assignment is the Configuration module's
// concern, out of scope here).
func (st *State) handleInput(ev backend.InputEvent) {
	seats := st.seats.Seats()
	if len(seats) == 0 {
		return
	}
	s := seats[0]
	st.loop.ResetIdle()

	switch ev.Kind {
	case backend.InputKey:
		state := seat.KeyReleased
		if ev.Pressed {
			state = seat.KeyPressed
		}
		if forward, consumed := s.HandleKey(seat.Keysym(ev.Keysym), state, isModifierKeysym); !consumed && forward != nil {
			st.focus.SendKey(forward, protocol.NextSerial(), uint32(ev.Time.Milliseconds()), uint32(ev.Keysym), uint32(state))
		}
		st.seats.Touch(s.Name)
	case backend.InputPointerMotion:
		s.SetPointerPosition(ev.X, ev.Y, s.Output())
		if target := s.FocusedPointer(); target != nil {
			st.focus.SendMotion(target, uint32(ev.Time.Milliseconds()), wire.FixedFromFloat64(ev.X), wire.FixedFromFloat64(ev.Y))
		}
		st.seats.Touch(s.Name)
	case backend.InputPointerButton, backend.InputTouch:
		st.seats.Touch(s.Name)
	}
}
