package runtime

import (
	"context"
	"sync"
	"time"
)

// SlowClientThreshold is the soft backpressure limit (spec §5: "if
// flush of a client returns would-block beyond a soft limit (e.g. 1
// MiB queued)").
const SlowClientThreshold = 1 << 20

// ClientIO is the subset of a client connection the loop drives
// directly off epoll readiness. internal/compositor.Client implements
// this against its wire.Codec.
type ClientIO interface {
	FD() int
	// OnReadable is called when the fd is readable; a non-nil error
	// is fatal to this client only (spec §7 IoError/ProtocolError).
	OnReadable() error
	// OnWritable is called when the fd is writable and flushes queued
	// outbound bytes/fds.
	OnWritable() error
	// PendingBytes reports how many outbound bytes remain queued,
	// feeding the slow_clients classification.
	PendingBytes() int
}

// Loop is the single-threaded cooperative scheduler (spec §5): it is
// the only goroutine permitted to mutate compositor state. All other
// goroutines (the accept loop, the backend driver) hand it work
// through Enqueue, never by touching shared state directly.
type Loop struct {
	reactor *Reactor
	timers  *Timers

	mu       sync.Mutex
	pending  []func()
	clients  map[int]ClientIO
	slow     map[int]bool
	onSlow   func(fd int, slow bool)
	onDisc   func(c ClientIO, err error)

	idleEvery   time.Duration
	idleTimerID uint64
	onIdle      func()

	onTurnEnd func()
}

// NewLoop creates a Loop with its own epoll reactor. onDisconnect is
// invoked (on the loop thread) whenever a client's fd errors or hangs
// up; onTurnEnd is invoked once per drained turn, after which
// internal/seat's Router.FlushTreeChanged is expected to run (spec §5
// tree_changed coalescing); onIdle fires on the configured idle
// period with no qualifying activity resetting it (caller resets via
// ResetIdle).
func NewLoop(onDisconnect func(ClientIO, error), onTurnEnd func()) (*Loop, error) {
	r, err := NewReactor()
	if err != nil {
		return nil, err
	}
	return &Loop{
		reactor: r,
		timers:  NewTimers(),
		clients: make(map[int]ClientIO),
		slow:    make(map[int]bool),
		onDisc:  onDisconnect,
		onTurnEnd: onTurnEnd,
	}, nil
}

// OnSlowClientChange installs a hook invoked whenever a client
// crosses the slow_clients threshold in either direction, for logging
// (spec §5, S6).
func (l *Loop) OnSlowClientChange(fn func(fd int, slow bool)) { l.onSlow = fn }

// SetIdle configures the idle timer invoked after every reset of
// activity (spec §6.2 Configuration.OnIdle).
func (l *Loop) SetIdle(d time.Duration, onIdle func()) {
	l.idleEvery = d
	l.onIdle = onIdle
	l.ResetIdle()
}

// ResetIdle restarts the idle countdown; call on any input or client
// activity.
func (l *Loop) ResetIdle() {
	if l.idleEvery <= 0 || l.onIdle == nil {
		return
	}
	l.timers.Cancel(l.idleTimerID)
	l.idleTimerID = l.timers.After(time.Now().UnixNano(), int64(l.idleEvery), l.onIdle)
}

// AfterFunc schedules fn to run once after d elapses, from the loop
// thread (spec §5 "timers" suspension point: configure/repeat
// timeouts).
func (l *Loop) AfterFunc(d time.Duration, fn func()) uint64 {
	return l.timers.After(time.Now().UnixNano(), int64(d), fn)
}

// CancelTimer cancels a timer scheduled with AfterFunc.
func (l *Loop) CancelTimer(id uint64) { l.timers.Cancel(id) }

// AddClient registers a freshly accepted client for readiness
// notifications, starting with read interest only.
func (l *Loop) AddClient(c ClientIO) error {
	if err := l.reactor.Add(c.FD(), true, false); err != nil {
		return err
	}
	l.mu.Lock()
	l.clients[c.FD()] = c
	l.mu.Unlock()
	return nil
}

// RemoveClient unregisters a client on teardown.
func (l *Loop) RemoveClient(fd int) {
	_ = l.reactor.Remove(fd)
	l.mu.Lock()
	delete(l.clients, fd)
	delete(l.slow, fd)
	l.mu.Unlock()
}

// SetWantWrite toggles EPOLLOUT interest for fd, set whenever a
// client's outbound queue transitions between empty and non-empty
// (wire.Codec.Pending()).
func (l *Loop) SetWantWrite(fd int, want bool) error {
	return l.reactor.Modify(fd, true, want)
}

// Enqueue hands a function to the loop thread, safe to call from any
// goroutine (the accept loop delivering a new connection, the backend
// driver delivering a ConnectorEvent or InputEvent). The function runs
// on the next turn, before readiness events are processed.
func (l *Loop) Enqueue(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	l.reactor.Wake()
}

func (l *Loop) drainPending() {
	l.mu.Lock()
	fns := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (l *Loop) markSlow(c ClientIO, slow bool) {
	fd := c.FD()
	l.mu.Lock()
	was := l.slow[fd]
	if was == slow {
		l.mu.Unlock()
		return
	}
	l.slow[fd] = slow
	l.mu.Unlock()
	if l.onSlow != nil {
		l.onSlow(fd, slow)
	}
}

// Run drains pending work and readiness events until ctx is cancelled
// or the reactor errors. It never spawns goroutines of its own: every
// iteration runs entirely on the calling goroutine, which must be the
// single compositor event-loop goroutine (spec §5, §9).
func (l *Loop) Run(ctx context.Context) error {
	defer l.reactor.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.drainPending()

		timeoutMs := -1
		if deadline, ok := l.timers.NextDeadline(); ok {
			remaining := (deadline - time.Now().UnixNano()) / int64(time.Millisecond)
			if remaining < 0 {
				remaining = 0
			}
			timeoutMs = int(remaining)
		}

		events, err := l.reactor.Wait(timeoutMs)
		if err != nil {
			return err
		}

		l.timers.FireDue(time.Now().UnixNano())

		for _, ev := range events {
			l.mu.Lock()
			c, ok := l.clients[ev.FD]
			l.mu.Unlock()
			if !ok {
				continue
			}

			if ev.HangUp {
				l.disconnect(c, errHangUp)
				continue
			}
			if ev.Readable {
				if err := c.OnReadable(); err != nil {
					l.disconnect(c, err)
					continue
				}
			}
			if ev.Writable {
				if err := c.OnWritable(); err != nil {
					l.disconnect(c, err)
					continue
				}
			}
			l.markSlow(c, c.PendingBytes() > SlowClientThreshold)
		}

		if l.onTurnEnd != nil {
			l.onTurnEnd()
		}
	}
}

func (l *Loop) disconnect(c ClientIO, err error) {
	l.RemoveClient(c.FD())
	if l.onDisc != nil {
		l.onDisc(c, err)
	}
}

var errHangUp = hangUpError{}

type hangUpError struct{}

func (hangUpError) Error() string { return "runtime: connection hung up" }
