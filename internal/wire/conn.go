package wire

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Message is one fully framed, decoded-header message pulled off the
// wire; Payload is the argument bytes (header stripped).
type Message struct {
	Header  Header
	Payload []byte
}

// Codec drives one client connection's raw bytes and cmsg fds. It is
// non-blocking throughout: ReadOnce and Flush never block, matching
// the cooperative single-threaded runtime (spec §5) which suspends
// only at explicit readiness notifications delivered by
// internal/runtime's epoll reactor.
type Codec struct {
	fd int

	inBuf    []byte // accumulated unparsed inbound bytes
	inFDs    FDQueue
	outBuf   []byte // accumulated unsent outbound bytes
	outFDs   []FD
}

// NewCodec wraps an already-connected, already-non-blocking unix
// socket descriptor.
func NewCodec(fd int) *Codec {
	return &Codec{fd: fd}
}

// FD returns the underlying socket descriptor, for registering with
// the runtime reactor.
func (c *Codec) FD() int { return c.fd }

// ErrWouldBlock signals that a read or write could not make progress
// without blocking; the caller should wait for the next readiness
// event from the runtime reactor.
var ErrWouldBlock = &ProtocolError{Reason: "would block"}

// FDQueue exposes the inbound fd queue so dispatch can pop `fd`
// arguments via ArgReader.
func (c *Codec) FDQueue() *FDQueue { return &c.inFDs }

// ReadOnce drains what is currently available on the socket (bytes
// and ancillary fds) and returns every fully framed message that can
// now be decoded. It never blocks: on EAGAIN it returns the messages
// parsed so far with a nil error.
func (c *Codec) ReadOnce() ([]Message, error) {
	var buf [65536]byte
	oob := make([]byte, unix.CmsgSpace(MaxFDsPerSendmsg*4))

	for {
		n, oobn, _, _, err := unix.Recvmsg(c.fd, buf[:], oob, 0)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, io.EOF
		}
		c.inBuf = append(c.inBuf, buf[:n]...)
		if oobn > 0 {
			fds, err := decodeFDs(oob[:oobn])
			if err != nil {
				return nil, err
			}
			for _, fd := range fds {
				c.inFDs.Push(FD{File: os.NewFile(uintptr(fd), "wayland-fd")})
			}
		}
	}

	var msgs []Message
	for {
		if len(c.inBuf) < headerSize {
			break
		}
		hdr, err := DecodeHeader(c.inBuf)
		if err != nil {
			return msgs, err
		}
		if len(c.inBuf) < int(hdr.Size) {
			break
		}
		payload := make([]byte, hdr.Size-headerSize)
		copy(payload, c.inBuf[headerSize:hdr.Size])
		msgs = append(msgs, Message{Header: hdr, Payload: payload})
		c.inBuf = c.inBuf[hdr.Size:]
	}
	return msgs, nil
}

// WriteEvent serializes and queues one outbound event. The event is
// not necessarily sent before WriteEvent returns; call Flush to push
// queued bytes and fds to the kernel.
func (c *Codec) WriteEvent(objectID uint32, opcode uint16, w *ArgWriter) {
	body := w.Bytes()
	size := headerSize + len(body)
	hdr := EncodeHeader(objectID, opcode, uint16(size))
	c.outBuf = append(c.outBuf, hdr[:]...)
	c.outBuf = append(c.outBuf, body...)
	c.outFDs = append(c.outFDs, w.FDs()...)
}

// Pending reports whether Flush still has bytes or fds queued.
func (c *Codec) Pending() bool { return len(c.outBuf) > 0 || len(c.outFDs) > 0 }

// PendingBytes reports how many outbound bytes are queued, used by
// the slow_clients backpressure check (spec §5).
func (c *Codec) PendingBytes() int { return len(c.outBuf) }

// Flush attempts to write all pending bytes, carrying up to
// MaxFDsPerSendmsg fds on the first sendmsg. It returns wouldBlock=true
// (with nil err) when the socket cannot currently accept more data;
// the caller should retry on the next writability notification.
func (c *Codec) Flush() (wouldBlock bool, err error) {
	for len(c.outBuf) > 0 {
		var oob []byte
		if len(c.outFDs) > 0 {
			n := len(c.outFDs)
			if n > MaxFDsPerSendmsg {
				n = MaxFDsPerSendmsg
			}
			raw := make([]int, n)
			for i := 0; i < n; i++ {
				raw[i] = c.outFDs[i].Int()
			}
			oob = unix.UnixRights(raw...)
		}
		n, err := unix.SendmsgN(c.fd, c.outBuf, oob, nil, 0)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if len(oob) > 0 {
			sent := len(c.outFDs)
			if sent > MaxFDsPerSendmsg {
				sent = MaxFDsPerSendmsg
			}
			for i := 0; i < sent; i++ {
				_ = c.outFDs[i].Close()
			}
			c.outFDs = c.outFDs[sent:]
		}
		c.outBuf = c.outBuf[n:]
	}
	return false, nil
}

// Close releases the underlying descriptor and any fds still queued
// in either direction (the centralized fd closer, spec §5/§9).
func (c *Codec) Close() error {
	c.inFDs.CloseAll()
	for _, fd := range c.outFDs {
		_ = fd.Close()
	}
	c.outFDs = nil
	return unix.Close(c.fd)
}

func decodeFDs(oob []byte) ([]int, error) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, protoErr("parse cmsg: %v", err)
	}
	var fds []int
	for _, scm := range scms {
		f, err := unix.ParseUnixRights(&scm)
		if err != nil {
			continue
		}
		fds = append(fds, f...)
	}
	return fds, nil
}
