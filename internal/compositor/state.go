// Package compositor ties every other internal package into one
// running server: accepting client connections, owning the shared
// scene tree, seat router, connector manager and global registry, and
// driving it all from the single-threaded internal/runtime.Loop (spec
// §9 "single initialization at compositor startup").
package compositor

import (
	"container/list"
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/jaywl/internal/backend"
	"github.com/bnema/jaywl/internal/config"
	"github.com/bnema/jaywl/internal/connector"
	"github.com/bnema/jaywl/internal/dispatch"
	"github.com/bnema/jaywl/internal/protocol"
	"github.com/bnema/jaywl/internal/registry"
	"github.com/bnema/jaywl/internal/runtime"
	"github.com/bnema/jaywl/internal/scene"
	"github.com/bnema/jaywl/internal/seat"
	"github.com/bnema/jaywl/internal/theme"
)

// defaultSeatName is the single seat this core exposes; multi-seat
// device assignment is a Configuration-module concern out of scope
// here (spec §6.2).
const defaultSeatName = "seat0"

// State is the whole compositor: every shared collaborator the
// protocol handlers close over, plus the bookkeeping startup/shutdown
// needs.
type State struct {
	cfg     *config.Settings
	log     *log.Logger
	theme   *theme.Theme
	backend backend.Backend
	input   backend.Input
	cfgHook backend.Configuration

	tree    *scene.Tree
	reg     *registry.Registry
	dispReg *dispatch.Registry
	seats   *seat.Router
	conns   *connector.Manager
	outputs *protocol.OutputRegistrar
	focus   *protocol.FocusTargets

	loop *runtime.Loop

	mu              sync.Mutex
	clients         map[int]*Client
	slowClients     *list.List
	slowByFD        map[int]*list.Element
	seenConnectors  map[uint64]bool

	socketPath string
	lockFile   *lockedFile
}

// New builds a fully wired State, registering every static global
// (wl_compositor, wl_shm, wl_seat, xdg_wm_base, the decoration
// managers, zwp_linux_dmabuf_v1) but not yet listening on a socket;
// call Run to do that.
func New(cfg *config.Settings, th *theme.Theme, logger *log.Logger, be backend.Backend, in backend.Input, renderer backend.Renderer, cfgHook backend.Configuration) (*State, error) {
	st := &State{
		cfg:            cfg,
		log:            logger,
		theme:          th,
		backend:        be,
		input:          in,
		cfgHook:        cfgHook,
		dispReg:        dispatch.NewRegistry(),
		reg:            registry.New(),
		clients:        make(map[int]*Client),
		slowClients:    list.New(),
		slowByFD:       make(map[int]*list.Element),
		seenConnectors: make(map[uint64]bool),
		outputs:        protocol.NewOutputRegistrar(),
		focus:          protocol.NewFocusTargets(),
	}
	protocol.RegisterAll(st.dispReg)

	st.tree = scene.NewTree(th.BorderWidth, th.TitleHeight)
	st.seats = seat.NewRouter(func() { st.log.Debug("tree changed") })
	defaultSeat := seat.New(defaultSeatName)
	st.seats.AddSeat(defaultSeat)

	st.conns = connector.NewManager(st.tree, st.reg, st.outputs.BindOutput, st.onFirstOutput)
	st.conns.SetModeChangedHook(st.outputs.ModeChangedHook())

	loop, err := runtime.NewLoop(st.onClientDisconnect, st.seats.FlushTreeChanged)
	if err != nil {
		return nil, err
	}
	st.loop = loop
	st.loop.OnSlowClientChange(st.onSlowClientChange)
	if cfg.IdleTimeout > 0 && cfgHook != nil {
		st.loop.SetIdle(cfg.IdleTimeout, cfgHook.OnIdle)
	}

	st.registerStaticGlobals(renderer)
	return st, nil
}

func (st *State) registerStaticGlobals(renderer backend.Renderer) {
	defaultSeat := st.seats.Seats()[0]
	globals := []*registry.Global{
		{Interface: "wl_compositor", Version: 4, Bind: protocol.BindCompositor()},
		{Interface: "wl_subcompositor", Version: 1, Bind: protocol.BindSubcompositor()},
		{Interface: "wl_shm", Version: 1, Bind: protocol.BindShm()},
		{Interface: "wl_seat", Version: 7, Bind: protocol.BindSeat(defaultSeat, st.focus)},
		{Interface: "xdg_wm_base", Version: 3, Bind: protocol.BindWmBase(st.tree, st.seats.ActiveSeat, st.focus)},
		{Interface: "zxdg_decoration_manager_v1", Version: 1, Bind: protocol.BindDecorationManager()},
		{Interface: "org_kde_kwin_server_decoration_manager", Version: 1, Bind: protocol.BindKdeDecorationManager()},
		{Interface: "zwp_linux_dmabuf_v1", Version: 4, Bind: protocol.BindDmabuf(renderer)},
	}
	for _, g := range globals {
		g.Name = st.reg.NextName()
		st.reg.Add(g)
	}
}

// onFirstOutput repositions every seat's pointer to the new output's
// center, the way original_source brings up the pointer the moment a
// monitor first exists (spec §4.7).
func (st *State) onFirstOutput(o *scene.Output) {
	cx := float64(o.Geometry.X) + float64(o.Geometry.Width)/2
	cy := float64(o.Geometry.Y) + float64(o.Geometry.Height)/2
	for _, s := range st.seats.Seats() {
		s.SetPointerPosition(cx, cy, o)
	}
}

// onClientDisconnect is runtime.Loop's onDisconnect hook: it is only
// ever called from the loop thread, so no further synchronization with
// Add/RemoveClient below is needed beyond the map's own mutex (shared
// with the accept-loop goroutine enqueuing new clients).
func (st *State) onClientDisconnect(c runtime.ClientIO, err error) {
	cl, ok := c.(*Client)
	if !ok {
		return
	}
	st.mu.Lock()
	delete(st.clients, cl.FD())
	if elem, ok := st.slowByFD[cl.FD()]; ok {
		st.slowClients.Remove(elem)
		delete(st.slowByFD, cl.FD())
	}
	st.mu.Unlock()
	cl.teardown(err)
}

// onSlowClientChange maintains the explicit slow_clients FIFO
// (SPEC_FULL §5, grounded on original_source's State.slow_clients
// queue of *Client) alongside runtime.Loop's own bookkeeping, and logs
// the transition (spec §5, scenario S6).
func (st *State) onSlowClientChange(fd int, slow bool) {
	st.mu.Lock()
	cl, known := st.clients[fd]
	if !known {
		st.mu.Unlock()
		return
	}
	if slow {
		if _, already := st.slowByFD[fd]; !already {
			st.slowByFD[fd] = st.slowClients.PushBack(cl)
		}
	} else if elem, already := st.slowByFD[fd]; already {
		st.slowClients.Remove(elem)
		delete(st.slowByFD, fd)
	}
	st.mu.Unlock()
	st.log.Warn("slow client", "fd", fd, "slow", slow)
}

func (st *State) addClient(fd int) {
	cl := newClient(fd, st.dispReg, st.reg, st.loop, st.log)
	if err := st.loop.AddClient(cl); err != nil {
		cl.teardown(err)
		return
	}
	st.mu.Lock()
	st.clients[fd] = cl
	st.mu.Unlock()
}

// Run starts listening on the compositor's UNIX socket and drives the
// accept loop, the backend and the event loop until ctx is cancelled
// or any of them errors; on return every client has been drained
// (spec §7: "Backend errors propagate out of run() and shut down the
// compositor cleanly, draining all clients").
func (st *State) Run(ctx context.Context) error {
	ln, path, lock, err := listenSocket(st.cfg)
	if err != nil {
		return err
	}
	st.socketPath = path
	st.lockFile = lock
	defer func() {
		_ = ln.Close()
		lock.release(path)
	}()

	if st.backend != nil {
		st.backend.OnChange(func() { st.loop.Enqueue(st.drainBackendEvents) })
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.acceptLoop(gctx, ln) })
	if st.backend != nil {
		g.Go(func() error { return st.backend.Run(gctx) })
	}
	g.Go(func() error { return st.loop.Run(gctx) })

	runErr := g.Wait()
	st.drainClients()
	return runErr
}
