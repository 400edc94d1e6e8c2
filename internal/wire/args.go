package wire

import (
	"encoding/binary"
)

// ArgReader walks the typed argument stream of one message payload in
// declaration order (spec §4.1, consumed by internal/dispatch parsers).
type ArgReader struct {
	buf []byte
	off int
	fds *FDQueue
}

// NewArgReader wraps a message payload (header already stripped) plus
// the fd queue requests for `fd` arguments are drawn from.
func NewArgReader(payload []byte, fds *FDQueue) *ArgReader {
	return &ArgReader{buf: payload, fds: fds}
}

func (r *ArgReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return protoErr("argument underrun: need %d bytes, have %d", n, len(r.buf)-r.off)
	}
	return nil
}

// Int32 reads a signed 32-bit argument.
func (r *ArgReader) Int32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v, nil
}

// Uint32 reads an unsigned 32-bit argument (also used for object and
// new_id arguments, which are plain u32 ids on the wire).
func (r *ArgReader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Fixed reads a 24.8 fixed-point argument.
func (r *ArgReader) Fixed() (Fixed, error) {
	v, err := r.Int32()
	return Fixed(v), err
}

// String reads a length-prefixed, NUL-terminated, 4-byte-padded string.
func (r *ArgReader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", protoErr("bad string: zero length (missing NUL)")
	}
	total := int(n) + pad4(int(n))
	if err := r.need(total); err != nil {
		return "", err
	}
	raw := r.buf[r.off : r.off+int(n)]
	if raw[n-1] != 0 {
		return "", protoErr("bad string: missing NUL terminator")
	}
	r.off += total
	return string(raw[:n-1]), nil
}

// Array reads a length-prefixed, 4-byte-padded opaque byte array.
func (r *ArgReader) Array() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	total := int(n) + pad4(int(n))
	if err := r.need(total); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += total
	return out, nil
}

// FD pops the next file descriptor delivered out-of-band alongside
// this message.
func (r *ArgReader) FD() (FD, error) {
	if r.fds == nil || r.fds.Len() == 0 {
		return FD{}, protoErr("bad fd request: fd queue empty")
	}
	return r.fds.Pop(), nil
}

// Done reports whether every byte of the payload has been consumed.
// Interface dispatch calls this after a handler parses its arguments
// to catch trailing garbage, which is itself a parse failure (§4.4).
func (r *ArgReader) Done() bool { return r.off == len(r.buf) }

// ArgWriter serializes an outbound event's arguments (§4.1 write_event).
type ArgWriter struct {
	buf []byte
	fds []FD
}

// PutInt32 appends a signed 32-bit argument.
func (w *ArgWriter) PutInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// PutUint32 appends an unsigned 32-bit argument.
func (w *ArgWriter) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutFixed appends a 24.8 fixed-point argument.
func (w *ArgWriter) PutFixed(v Fixed) { w.PutInt32(int32(v)) }

// PutString appends a length-prefixed, NUL-terminated, padded string.
func (w *ArgWriter) PutString(s string) {
	n := len(s) + 1
	w.PutUint32(uint32(n))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	w.buf = append(w.buf, make([]byte, pad4(n))...)
}

// PutArray appends a length-prefixed, padded opaque byte array.
func (w *ArgWriter) PutArray(data []byte) {
	w.PutUint32(uint32(len(data)))
	w.buf = append(w.buf, data...)
	w.buf = append(w.buf, make([]byte, pad4(len(data)))...)
}

// PutFD queues a file descriptor to ride out-of-band with this message.
func (w *ArgWriter) PutFD(fd FD) {
	w.fds = append(w.fds, fd)
}

// Bytes returns the serialized argument payload (header not included).
func (w *ArgWriter) Bytes() []byte { return w.buf }

// FDs returns the file descriptors queued for this message.
func (w *ArgWriter) FDs() []FD { return w.fds }
