package registry

import "testing"

type fakeSub struct {
	added   []*Global
	removed []uint32
}

func (s *fakeSub) OnGlobal(g *Global)        { s.added = append(s.added, g) }
func (s *fakeSub) OnGlobalRemove(name uint32) { s.removed = append(s.removed, name) }

func TestClampVersion(t *testing.T) {
	if v := ClampVersion(5, 3); v != 3 {
		t.Fatalf("got %d, want 3", v)
	}
	if v := ClampVersion(5, 8); v != 5 {
		t.Fatalf("got %d, want 5", v)
	}
}

func TestSubscribeReplaysInsertionOrder(t *testing.T) {
	r := New()
	first := &Global{Name: r.NextName(), Interface: "wl_compositor", Version: 4}
	second := &Global{Name: r.NextName(), Interface: "wl_shm", Version: 1}
	r.Add(first)
	r.Add(second)

	sub := &fakeSub{}
	got := r.Subscribe(1, sub)
	if len(got) != 2 {
		t.Fatalf("got %d globals, want 2", len(got))
	}
	if got[0].Interface != "wl_compositor" || got[1].Interface != "wl_shm" {
		t.Fatalf("replay out of order: %+v", got)
	}
}

func TestAddNotifiesLiveSubscribers(t *testing.T) {
	r := New()
	sub := &fakeSub{}
	r.Subscribe(1, sub)

	g := &Global{Name: r.NextName(), Interface: "wl_seat", Version: 7}
	r.Add(g)
	if len(sub.added) != 1 || sub.added[0] != g {
		t.Fatalf("subscriber not notified: %+v", sub.added)
	}
}

func TestRemoveNotifiesAndDropsFromReplay(t *testing.T) {
	r := New()
	name := r.NextName()
	g := &Global{Name: name, Interface: "wl_output", Version: 4}
	r.Add(g)

	sub := &fakeSub{}
	r.Subscribe(1, sub)
	r.Remove(name)

	if len(sub.removed) != 1 || sub.removed[0] != name {
		t.Fatalf("subscriber not notified of removal: %+v", sub.removed)
	}
	if _, ok := r.Lookup(name); ok {
		t.Fatal("expected global to be gone after Remove")
	}
	got := r.Subscribe(2, &fakeSub{})
	for _, gl := range got {
		if gl.Name == name {
			t.Fatal("removed global still present in replay")
		}
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	r := New()
	sub := &fakeSub{}
	r.Subscribe(1, sub)
	r.Remove(999)
	if len(sub.removed) != 0 {
		t.Fatalf("expected no notification for unknown remove, got %v", sub.removed)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	r := New()
	sub := &fakeSub{}
	r.Subscribe(1, sub)
	r.Unsubscribe(1)
	r.Add(&Global{Name: r.NextName(), Interface: "wl_seat", Version: 1})
	if len(sub.added) != 0 {
		t.Fatalf("expected no notification after unsubscribe, got %v", sub.added)
	}
}
