package seat

import (
	"testing"

	"github.com/bnema/jaywl/internal/scene"
)

func isModShift(k Keysym) (Modifiers, bool) {
	if k == 0xffe1 {
		return ModShift, true
	}
	return 0, false
}

func TestHandleKeyModifierTracking(t *testing.T) {
	s := New("seat0")
	_, consumed := s.HandleKey(0xffe1, KeyPressed, isModShift)
	if !consumed {
		t.Fatal("modifier key press should be consumed")
	}

	fired := false
	s.AddBinding(Binding{Mods: ModShift, Key: 'q', Action: func() { fired = true }})
	forward, consumed := s.HandleKey('q', KeyPressed, isModShift)
	if !consumed || forward != nil {
		t.Fatalf("expected binding to consume event, got forward=%v consumed=%v", forward, consumed)
	}
	if !fired {
		t.Fatal("binding action did not fire")
	}
}

func TestHandleKeyForwardsWhenNoBindingMatches(t *testing.T) {
	s := New("seat0")
	n := scene.NewToplevel()
	s.FocusKeyboard(n)
	forward, consumed := s.HandleKey('x', KeyPressed, isModShift)
	if consumed {
		t.Fatal("expected unconsumed event to forward")
	}
	if forward != n {
		t.Fatalf("forward = %v, want focused node", forward)
	}
}

func TestFocusKeyboardTracksLastTiled(t *testing.T) {
	s := New("seat0")
	top := scene.NewToplevel()
	c := scene.NewContainer(scene.Horizontal, top)
	s.FocusKeyboard(top)

	node, cont, ok := s.LastTiledKeyboardToplevel()
	if !ok || node != top || cont != c {
		t.Fatalf("LastTiledKeyboardToplevel = %v %v %v", node, cont, ok)
	}
}

func TestLastTiledKeyboardToplevelInvalidatedOnReparent(t *testing.T) {
	s := New("seat0")
	top := scene.NewToplevel()
	c := scene.NewContainer(scene.Horizontal, top)
	s.FocusKeyboard(top)
	c.RemoveChild(top)
	top.SetParent(nil)

	_, _, ok := s.LastTiledKeyboardToplevel()
	if ok {
		t.Fatal("expected cache to be invalidated once node left the container")
	}
}

func TestOnOutputRemovedFallsBackToDummy(t *testing.T) {
	s := New("seat0")
	out := scene.NewOutput(1, scene.Rect{Width: 800, Height: 600})
	dummy := scene.NewOutput(0, scene.Rect{Width: 1280, Height: 720})
	s.SetPointerPosition(10, 10, out)

	s.OnOutputRemoved(out, dummy)
	if s.Output() != dummy {
		t.Fatalf("Output() = %v, want dummy", s.Output())
	}
}

func TestOnOutputRemovedIgnoresUnrelatedOutput(t *testing.T) {
	s := New("seat0")
	out := scene.NewOutput(1, scene.Rect{Width: 800, Height: 600})
	other := scene.NewOutput(2, scene.Rect{Width: 800, Height: 600})
	dummy := scene.NewOutput(0, scene.Rect{Width: 1280, Height: 720})
	s.SetPointerPosition(10, 10, out)

	s.OnOutputRemoved(other, dummy)
	if s.Output() != out {
		t.Fatalf("Output() = %v, want unchanged", s.Output())
	}
}

func TestRouterActiveSeatOrdersByRecentActivity(t *testing.T) {
	r := NewRouter(nil)
	a, b := New("a"), New("b")
	r.AddSeat(a)
	r.AddSeat(b)

	if r.ActiveSeat() != scene.ActiveSeat(b) {
		t.Fatal("expected most recently added seat to be active")
	}
	r.Touch("a")
	if r.ActiveSeat() != scene.ActiveSeat(a) {
		t.Fatal("expected Touch to move seat to front")
	}
}

func TestRouterRemoveSeat(t *testing.T) {
	r := NewRouter(nil)
	a := New("a")
	r.AddSeat(a)
	r.RemoveSeat("a")
	if r.ActiveSeat() != nil {
		t.Fatal("expected no active seat after removal")
	}
	if len(r.Seats()) != 0 {
		t.Fatalf("expected no seats, got %d", len(r.Seats()))
	}
}

func TestRouterFlushTreeChangedCoalesces(t *testing.T) {
	calls := 0
	r := NewRouter(func() { calls++ })
	r.MarkTreeChanged()
	r.MarkTreeChanged()
	r.MarkTreeChanged()
	r.FlushTreeChanged()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	r.FlushTreeChanged()
	if calls != 1 {
		t.Fatalf("calls after second flush = %d, want 1 (no pending mutation)", calls)
	}
}

func TestRouterOnOutputRemovedNotifiesAllSeatsAndMarksDirty(t *testing.T) {
	calls := 0
	r := NewRouter(func() { calls++ })
	a, b := New("a"), New("b")
	r.AddSeat(a)
	r.AddSeat(b)

	out := scene.NewOutput(1, scene.Rect{Width: 800, Height: 600})
	dummy := scene.NewOutput(0, scene.Rect{Width: 1280, Height: 720})
	a.SetPointerPosition(0, 0, out)
	b.SetPointerPosition(0, 0, out)

	r.OnOutputRemoved(out, dummy)
	if a.Output() != dummy || b.Output() != dummy {
		t.Fatal("expected both seats to fall back to dummy")
	}
	r.FlushTreeChanged()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
