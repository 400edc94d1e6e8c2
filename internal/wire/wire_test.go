package wire

import "testing"

func TestFixedRoundTrip(t *testing.T) {
	f := FixedFromFloat64(12.5)
	if got := f.Float64(); got != 12.5 {
		t.Fatalf("got %v, want 12.5", got)
	}
}

func TestEncodeDecodeHeader(t *testing.T) {
	buf := EncodeHeader(42, 3, 16)
	h, err := DecodeHeader(buf[:])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h.ObjectID != 42 || h.Opcode != 3 || h.Size != 16 {
		t.Fatalf("got %+v", h)
	}
}

func TestDecodeHeaderShortFrame(t *testing.T) {
	if _, err := DecodeHeader([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestDecodeHeaderBadSize(t *testing.T) {
	buf := EncodeHeader(1, 0, 5)
	if _, err := DecodeHeader(buf[:]); err == nil {
		t.Fatal("expected error for non-multiple-of-4 size")
	}
	buf = EncodeHeader(1, 0, 4)
	if _, err := DecodeHeader(buf[:]); err == nil {
		t.Fatal("expected error for size < header size")
	}
}

func TestArgWriterReaderRoundTrip(t *testing.T) {
	var w ArgWriter
	w.PutInt32(-7)
	w.PutUint32(99)
	w.PutFixed(FixedFromFloat64(3.25))
	w.PutString("hello")
	w.PutArray([]byte{1, 2, 3})

	r := NewArgReader(w.Bytes(), nil)
	i, err := r.Int32()
	if err != nil || i != -7 {
		t.Fatalf("Int32: %v %v", i, err)
	}
	u, err := r.Uint32()
	if err != nil || u != 99 {
		t.Fatalf("Uint32: %v %v", u, err)
	}
	fx, err := r.Fixed()
	if err != nil || fx.Float64() != 3.25 {
		t.Fatalf("Fixed: %v %v", fx, err)
	}
	s, err := r.String()
	if err != nil || s != "hello" {
		t.Fatalf("String: %q %v", s, err)
	}
	arr, err := r.Array()
	if err != nil || string(arr) != "\x01\x02\x03" {
		t.Fatalf("Array: %v %v", arr, err)
	}
	if !r.Done() {
		t.Fatal("expected reader to be exhausted")
	}
}

func TestArgReaderUnderrun(t *testing.T) {
	r := NewArgReader([]byte{1, 2}, nil)
	if _, err := r.Uint32(); err == nil {
		t.Fatal("expected underrun error")
	}
}

func TestArgReaderStringMissingNUL(t *testing.T) {
	var w ArgWriter
	w.PutUint32(4)
	w.buf = append(w.buf, []byte{'a', 'b', 'c', 'd'}...)
	r := NewArgReader(w.Bytes(), nil)
	if _, err := r.String(); err == nil {
		t.Fatal("expected missing NUL error")
	}
}

func TestArgReaderFDEmptyQueue(t *testing.T) {
	r := NewArgReader(nil, &FDQueue{})
	if _, err := r.FD(); err == nil {
		t.Fatal("expected error popping from empty fd queue")
	}
}

func TestFDQueueFIFO(t *testing.T) {
	var q FDQueue
	a, b := FD{}, FD{}
	q.Push(a)
	q.Push(b)
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	q.Pop()
	if q.Len() != 1 {
		t.Fatalf("Len() after Pop = %d, want 1", q.Len())
	}
	q.CloseAll()
	if q.Len() != 0 {
		t.Fatalf("Len() after CloseAll = %d, want 0", q.Len())
	}
}

func TestFDZeroValue(t *testing.T) {
	var fd FD
	if fd.Int() != -1 {
		t.Fatalf("Int() on zero FD = %d, want -1", fd.Int())
	}
	if err := fd.Close(); err != nil {
		t.Fatalf("Close() on zero FD: %v", err)
	}
}
