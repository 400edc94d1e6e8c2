package objects

import "testing"

type fakeObject struct {
	id uint32
}

func (f *fakeObject) ID() uint32            { return f.id }
func (f *fakeObject) InterfaceName() string { return "fake_interface" }
func (f *fakeObject) Version() uint32       { return 1 }
func (f *fakeObject) NumRequests() uint16   { return 0 }

func TestAddClientObjRange(t *testing.T) {
	tbl := NewTable()
	if err := tbl.AddClientObj(&fakeObject{id: ClientIDMax + 1}); err == nil {
		t.Fatal("expected out-of-range error above ClientIDMax")
	}
	if err := tbl.AddClientObj(&fakeObject{id: 0}); err == nil {
		t.Fatal("expected out-of-range error for id 0")
	}
	if err := tbl.AddClientObj(&fakeObject{id: 5}); err != nil {
		t.Fatalf("AddClientObj: %v", err)
	}
}

func TestAddClientObjDuplicate(t *testing.T) {
	tbl := NewTable()
	if err := tbl.AddClientObj(&fakeObject{id: 5}); err != nil {
		t.Fatalf("AddClientObj: %v", err)
	}
	if err := tbl.AddClientObj(&fakeObject{id: 5}); err == nil {
		t.Fatal("expected ErrInUse on duplicate id")
	}
}

func TestLookupUnknown(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Lookup(42); err == nil {
		t.Fatal("expected ErrInvalidObject for unknown id")
	}
}

func TestAddServerObjAllocatesInRange(t *testing.T) {
	tbl := NewTable()
	obj, err := tbl.AddServerObj(func(id uint32) Object { return &fakeObject{id: id} })
	if err != nil {
		t.Fatalf("AddServerObj: %v", err)
	}
	if obj.ID() != ServerIDMin {
		t.Fatalf("first server id = %d, want %d", obj.ID(), ServerIDMin)
	}
	obj2, err := tbl.AddServerObj(func(id uint32) Object { return &fakeObject{id: id} })
	if err != nil {
		t.Fatalf("AddServerObj: %v", err)
	}
	if obj2.ID() != ServerIDMin+1 {
		t.Fatalf("second server id = %d, want %d", obj2.ID(), ServerIDMin+1)
	}
}

func TestRemoveObjPendingDeleteBlocksReuse(t *testing.T) {
	tbl := NewTable()
	if err := tbl.AddClientObj(&fakeObject{id: 5}); err != nil {
		t.Fatalf("AddClientObj: %v", err)
	}
	tbl.RemoveObj(5)
	if tbl.Len() != 0 {
		t.Fatalf("Len() after RemoveObj = %d, want 0", tbl.Len())
	}
	if err := tbl.AddClientObj(&fakeObject{id: 5}); err == nil {
		t.Fatal("expected reuse to be blocked before DeleteIDSent")
	}
	tbl.DeleteIDSent(5)
	if err := tbl.AddClientObj(&fakeObject{id: 5}); err != nil {
		t.Fatalf("expected reuse to succeed after DeleteIDSent: %v", err)
	}
}

func TestRemoveServerObjFreesImmediately(t *testing.T) {
	tbl := NewTable()
	obj, err := tbl.AddServerObj(func(id uint32) Object { return &fakeObject{id: id} })
	if err != nil {
		t.Fatalf("AddServerObj: %v", err)
	}
	tbl.RemoveObj(obj.ID())
	var again Object
	again, err = tbl.AddServerObj(func(id uint32) Object { return &fakeObject{id: obj.ID()} })
	if err != nil {
		t.Fatalf("AddServerObj after remove: %v", err)
	}
	_ = again
}

func TestEachVisitsAllLiveObjects(t *testing.T) {
	tbl := NewTable()
	_ = tbl.AddClientObj(&fakeObject{id: 1})
	_ = tbl.AddClientObj(&fakeObject{id: 2})
	seen := map[uint32]bool{}
	tbl.Each(func(o Object) { seen[o.ID()] = true })
	if len(seen) != 2 || !seen[1] || !seen[2] {
		t.Fatalf("Each visited %v", seen)
	}
}
