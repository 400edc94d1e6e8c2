package runtime

import (
	"golang.org/x/sys/unix"
)

// Event is one fd's readiness notification from a Wait call.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	HangUp   bool
}

// Reactor is a thin epoll wrapper: the single-threaded suspension
// point for socket readability/writability (spec §5). It also owns an
// eventfd used purely to wake a blocked epoll_wait when another
// goroutine enqueues work for the loop (connector/input events,
// freshly accepted clients) — the same self-pipe-to-epoll trick
// other_examples' gaio watcher uses via its chPendingNotify channel,
// expressed here directly against epoll since the loop itself is not
// goroutine-based.
type Reactor struct {
	epfd    int
	wakeFD  int
}

// NewReactor creates the epoll instance and its wake eventfd.
func NewReactor() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	r := &Reactor{epfd: epfd, wakeFD: wakeFD}
	if err := r.Add(wakeFD, true, false); err != nil {
		unix.Close(epfd)
		unix.Close(wakeFD)
		return nil, err
	}
	return r, nil
}

func eventMask(readable, writable bool) uint32 {
	var events uint32 = unix.EPOLLRDHUP
	if readable {
		events |= unix.EPOLLIN
	}
	if writable {
		events |= unix.EPOLLOUT
	}
	return events
}

// Add registers fd for the given readiness interest.
func (r *Reactor) Add(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: eventMask(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify changes fd's registered readiness interest (e.g. adding
// EPOLLOUT while a client's outbound queue is non-empty, per the
// backpressure model in spec §5).
func (r *Reactor) Modify(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: eventMask(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove unregisters fd, called on client teardown.
func (r *Reactor) Remove(fd int) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wake unblocks a concurrent Wait call; safe to call from any
// goroutine.
func (r *Reactor) Wake() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(r.wakeFD, buf[:])
}

// Wait blocks until at least one registered fd is ready or timeoutMs
// elapses (-1 blocks indefinitely), returning the ready events. Wake
// events on the internal eventfd are drained and omitted from the
// result.
func (r *Reactor) Wait(timeoutMs int) ([]Event, error) {
	var raw [64]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == r.wakeFD {
			var buf [8]byte
			_, _ = unix.Read(r.wakeFD, buf[:])
			continue
		}
		out = append(out, Event{
			FD:       fd,
			Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLERR) != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
			HangUp:   raw[i].Events&(unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

// Close releases the epoll and eventfd descriptors.
func (r *Reactor) Close() error {
	_ = unix.Close(r.wakeFD)
	return unix.Close(r.epfd)
}
