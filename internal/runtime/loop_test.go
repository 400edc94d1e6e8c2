package runtime

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestReactorAddWaitRemove(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := r.Add(fds[0], true, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	events, err := r.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.FD == fds[0] && ev.Readable {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected readable event for fds[0], got %+v", events)
	}

	if err := r.Remove(fds[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

type fakeClient struct {
	fd       int
	onRead   func() error
	pending  int
}

func (c *fakeClient) FD() int            { return c.fd }
func (c *fakeClient) OnReadable() error  { return c.onRead() }
func (c *fakeClient) OnWritable() error  { return nil }
func (c *fakeClient) PendingBytes() int  { return c.pending }

func TestLoopDispatchesReadableClientsAndDisconnects(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[1])

	disconnected := make(chan error, 1)
	loop, err := NewLoop(func(c ClientIO, err error) { disconnected <- err }, nil)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	reads := 0
	client := &fakeClient{fd: fds[0], onRead: func() error {
		reads++
		var buf [16]byte
		unix.Read(fds[0], buf[:])
		return errStop
	}}
	if err := loop.AddClient(client); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	unix.Write(fds[1], []byte("ping"))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case err := <-disconnected:
		if err != errStop {
			t.Fatalf("disconnected with %v, want errStop", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}
	cancel()
	<-done
	unix.Close(fds[0])
	if reads != 1 {
		t.Fatalf("reads = %d, want 1", reads)
	}
}

var errStop = stopError{}

type stopError struct{}

func (stopError) Error() string { return "test: stop" }

func TestLoopEnqueueRunsOnNextTurn(t *testing.T) {
	loop, err := NewLoop(nil, nil)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ran := make(chan struct{}, 1)
	loop.Enqueue(func() { ran <- struct{}{} })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("enqueued function never ran")
	}
	cancel()
	<-done
}

func TestLoopOnTurnEndFiresEachTurn(t *testing.T) {
	loop, err := NewLoop(nil, func() {})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	turns := make(chan struct{}, 8)
	loop.onTurnEnd = func() { turns <- struct{}{} }

	loop.Enqueue(func() {})
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case <-turns:
	case <-time.After(time.Second):
		t.Fatal("onTurnEnd never fired")
	}
	cancel()
	<-done
}
