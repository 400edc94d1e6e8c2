package compositor

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/objects"
	"github.com/bnema/jaywl/internal/protocol"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/runtime"
	"github.com/bnema/jaywl/internal/wire"
)

// Client is one accepted connection's state: the wire codec, its
// object table, and the well-known wl_display object every connection
// starts with (spec §6.1). It satisfies protocol.ClientHandle,
// registry.Client and runtime.ClientIO, the three leaf interfaces the
// packages it ties together each declare against their own needs.
type Client struct {
	codec *wire.Codec
	table *objects.Table
	disp  *protocol.Display

	dispatchReg *dispatch.Registry
	loop        *runtime.Loop
	log         *log.Logger

	closed        bool
	disconnectErr error
}

// newClient wires a freshly accepted fd into a Client, installing its
// wl_display object at id 1 before any request can arrive.
func newClient(fd int, dispatchReg *dispatch.Registry, reg *registry.Registry, loop *runtime.Loop, logger *log.Logger) *Client {
	c := &Client{
		table:       objects.NewTable(),
		codec:       wire.NewCodec(fd),
		dispatchReg: dispatchReg,
		loop:        loop,
		log:         logger.With("fd", fd),
	}
	c.disp = protocol.NewDisplay(c, reg)
	if err := c.table.AddClientObj(c.disp); err != nil {
		// The table is empty; id 1 is always free on a new client.
		panic(err)
	}
	return c
}

// Table implements protocol.ClientHandle and registry.Client.
func (c *Client) Table() *objects.Table { return c.table }

// SendEvent implements protocol.ClientHandle and registry.Client.
func (c *Client) SendEvent(objectID uint32, opcode uint16, w *wire.ArgWriter) {
	c.codec.WriteEvent(objectID, opcode, w)
	c.syncWantWrite()
}

// DestroyObject implements protocol.ClientHandle: removes the object,
// emits wl_display.delete_id, and immediately acknowledges it so the
// id can be reallocated (spec §4.2 — nothing here defers the request
// that destroyed the id, so the ack is never actually delayed).
func (c *Client) DestroyObject(id uint32) {
	c.table.RemoveObj(id)
	c.disp.SendDeleteID(id)
	c.table.DeleteIDSent(id)
}

// Disconnect implements protocol.ClientHandle: a protocol handler
// calls this on a fatal condition it cannot express as a returned
// error (spec §7). The connection is torn down on the loop's next
// pass over OnReadable/OnWritable, the same path a socket-level error
// takes, so there is exactly one teardown codepath.
func (c *Client) Disconnect(err error) {
	if c.disconnectErr == nil {
		if err == nil {
			err = errClientRequestedDisconnect
		}
		c.disconnectErr = err
	}
}

// FD implements runtime.ClientIO.
func (c *Client) FD() int { return c.codec.FD() }

// PendingBytes implements runtime.ClientIO.
func (c *Client) PendingBytes() int { return c.codec.PendingBytes() }

// OnReadable implements runtime.ClientIO: drains and dispatches every
// framed request currently available, mapping protocol errors to
// wl_display.error (spec §4.4, §7) and fatal I/O errors to connection
// teardown.
func (c *Client) OnReadable() error {
	msgs, err := c.codec.ReadOnce()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := c.dispatchOne(m); err != nil {
			return err
		}
		if c.disconnectErr != nil {
			return c.disconnectErr
		}
	}
	c.syncWantWrite()
	return c.disconnectErr
}

func (c *Client) dispatchOne(m wire.Message) error {
	obj, err := c.table.Lookup(m.Header.ObjectID)
	if err != nil {
		pe := dispatch.NewProtoError(m.Header.ObjectID, protocol.ErrorInvalidObject, "%v", err)
		c.disp.SendError(pe.ObjectID, pe.Code, pe.Message)
		return pe
	}
	if err := c.dispatchReg.Dispatch(obj, m.Header.Opcode, m.Payload, c.codec.FDQueue()); err != nil {
		if pe, ok := err.(*dispatch.ProtoError); ok {
			c.disp.SendError(pe.ObjectID, pe.Code, pe.Message)
		}
		return err
	}
	return nil
}

// OnWritable implements runtime.ClientIO: flushes queued outbound
// bytes/fds, toggling write interest off again once drained.
func (c *Client) OnWritable() error {
	if _, err := c.codec.Flush(); err != nil {
		return err
	}
	c.syncWantWrite()
	return c.disconnectErr
}

func (c *Client) syncWantWrite() {
	want := c.codec.Pending()
	if want {
		if wouldBlock, err := c.codec.Flush(); err != nil {
			c.disconnectErr = err
			return
		} else if !wouldBlock {
			want = c.codec.Pending()
		}
	}
	if err := c.loop.SetWantWrite(c.FD(), want); err != nil {
		c.log.Warn("set want-write failed", "err", err)
	}
}

// teardown releases the codec's fd and any still-queued fds exactly
// once (the centralized fd closer, spec §5/§9), and reports the
// client's final object count for leak visibility.
func (c *Client) teardown(err error) {
	if c.closed {
		return
	}
	c.closed = true
	if leaked := c.table.Len(); leaked > 0 {
		c.log.Debug("client torn down with live objects", "count", leaked)
	}
	if cerr := c.codec.Close(); cerr != nil {
		c.log.Debug("codec close", "err", cerr)
	}
	if err != nil && err != io.EOF {
		c.log.Debug("client disconnected", "err", err)
	} else {
		c.log.Debug("client disconnected")
	}
}

type disconnectRequested struct{}

func (disconnectRequested) Error() string { return "compositor: client disconnect requested" }

var errClientRequestedDisconnect error = disconnectRequested{}
