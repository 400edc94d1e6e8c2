package compositor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bnema/jaywl/internal/config"
)

// lockedFile is the open *os.File backing a held flock, kept only to
// release the lock cleanly on shutdown.
type lockedFile struct {
	f *os.File
}

func (l *lockedFile) release(socketPath string) {
	if l == nil || l.f == nil {
		return
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
	_ = os.Remove(socketPath)
	_ = os.Remove(socketPath + ".lock")
}

// listenSocket binds the compositor's well-known UNIX socket under
// $XDG_RUNTIME_DIR, guarded by a sibling `.lock` file so two
// compositor instances never bind the same name (the same convention
// every Wayland compositor and client library follows, mirrored by
// the teacher's own client-side Display.Connect dialing
// $XDG_RUNTIME_DIR/$WAYLAND_DISPLAY). It also exports WAYLAND_DISPLAY
// so any process this one launches can find it.
func listenSocket(cfg *config.Settings) (*net.UnixListener, string, *lockedFile, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return nil, "", nil, fmt.Errorf("compositor: XDG_RUNTIME_DIR is not set")
	}
	name := cfg.SocketName
	if name == "" {
		name = "wayland-1"
	}
	path := filepath.Join(dir, name)
	lockPath := path + ".lock"

	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, "", nil, fmt.Errorf("compositor: open lockfile %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(lf.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = lf.Close()
		return nil, "", nil, fmt.Errorf("compositor: %s is already in use: %w", name, err)
	}

	_ = os.Remove(path)
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		_ = unix.Flock(int(lf.Fd()), unix.LOCK_UN)
		_ = lf.Close()
		return nil, "", nil, fmt.Errorf("compositor: listen on %s: %w", path, err)
	}

	_ = os.Setenv("WAYLAND_DISPLAY", name)
	return ln, path, &lockedFile{f: lf}, nil
}

// acceptLoop blocks accepting connections until ctx is cancelled,
// handing each freshly accepted fd to the event loop thread via
// Enqueue rather than touching compositor state directly (spec §5:
// "all other goroutines hand it work through Enqueue").
func (st *State) acceptLoop(ctx context.Context, ln *net.UnixListener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fd, err := duplicateFD(conn)
		_ = conn.Close()
		if err != nil {
			st.log.Warn("accept: duplicate fd failed", "err", err)
			continue
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			st.log.Warn("accept: set nonblock failed", "err", err)
			_ = unix.Close(fd)
			continue
		}
		st.loop.Enqueue(func() { st.addClient(fd) })
	}
}

// duplicateFD takes ownership of conn's underlying descriptor via
// unix.Dup so the Client's wire.Codec can close it independently of
// conn's own lifetime (net.UnixConn.Close() closes the original,
// leaving the dup alive for the codec to drive directly with
// unix.Recvmsg/Sendmsg).
func duplicateFD(conn *net.UnixConn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	var dupFD int
	var dupErr error
	if err := raw.Control(func(fd uintptr) {
		dupFD, dupErr = unix.Dup(int(fd))
	}); err != nil {
		return -1, err
	}
	if dupErr != nil {
		return -1, dupErr
	}
	return dupFD, nil
}

// drainClients tears down every still-connected client on shutdown, so
// no fd or queued outbound data leaks past process exit.
func (st *State) drainClients() {
	st.mu.Lock()
	clients := make([]*Client, 0, len(st.clients))
	for _, c := range st.clients {
		clients = append(clients, c)
	}
	st.clients = make(map[int]*Client)
	st.mu.Unlock()

	for _, c := range clients {
		c.teardown(errShuttingDown)
	}
}

type shuttingDown struct{}

func (shuttingDown) Error() string { return "compositor: shutting down" }

var errShuttingDown error = shuttingDown{}
