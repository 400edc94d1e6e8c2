// Package seat implements per-seat keyboard/pointer state and the
// focus router (spec §4.6): modifier tracking, key bindings, focus
// transitions, and the seat_queue ordering used by scene's map_tiled
// to find "the most recently active seat".
package seat

import (
	"container/list"
	"sync"

	"github.com/bnema/jaywl/internal/scene"
)

// Keysym is an opaque key symbol code, as delivered by the input
// collaborator (spec §6.2 Input).
type Keysym uint32

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModLogo
)

// Binding is a keysym+modifier chord mapped to a callback. Matching
// bindings suppress forwarding to the focused keyboard node (spec
// §4.6).
type Binding struct {
	Mods   Modifiers
	Key    Keysym
	Action func()
}

// KeyState is down/up, mirroring the wire protocol's key state enum.
type KeyState int

const (
	KeyReleased KeyState = iota
	KeyPressed
)

// Direction is the focus-movement direction for node_do_focus and
// show_workspace's Direction::Unspecified fallback.
type Direction int

const (
	DirUnspecified Direction = iota
	DirLeft
	DirRight
	DirUp
	DirDown
)

// Seat holds one user's keyboard, pointer, and focus state (spec §3
// Seat).
type Seat struct {
	mu sync.Mutex

	Name string

	mods            Modifiers
	pointerX        float64
	pointerY        float64
	pointerOutput   *scene.Output
	focusedKeyboard scene.Node
	focusedPointer  scene.Node

	lastTiledNode      scene.Node
	lastTiledContainer *scene.Container

	bindings []Binding

	elem *list.Element // this seat's node in the owning Router's seat_queue
}

// New creates a seat with no focus and no output yet (before the
// first wl_output exists, pointerOutput stays nil; callers fall back
// to the dummy output per map_tiled rule 3).
func New(name string) *Seat {
	return &Seat{Name: name}
}

// AddBinding registers a key binding.
func (s *Seat) AddBinding(b Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings = append(s.bindings, b)
}

// HandleKey updates modifier state for mod keys, then either invokes
// a matching binding (suppressing forwarding) or forwards the event
// to the focused keyboard node. forward is nil when a binding
// consumed the event.
func (s *Seat) HandleKey(key Keysym, state KeyState, isMod func(Keysym) (Modifiers, bool)) (forward scene.Node, consumed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := isMod(key); ok {
		if state == KeyPressed {
			s.mods |= m
		} else {
			s.mods &^= m
		}
		return nil, true
	}

	if state == KeyPressed {
		for _, b := range s.bindings {
			if b.Mods == s.mods && b.Key == key {
				if b.Action != nil {
					b.Action()
				}
				return nil, true
			}
		}
	}

	return s.focusedKeyboard, false
}

// SetPointerPosition updates the seat's pointer coordinates and the
// output it currently sits over.
func (s *Seat) SetPointerPosition(x, y float64, output *scene.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointerX, s.pointerY = x, y
	s.pointerOutput = output
}

// Output returns the output the seat's pointer is currently over,
// implementing scene.ActiveSeat.
func (s *Seat) Output() *scene.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointerOutput
}

// FocusKeyboard sets the seat's keyboard focus target.
func (s *Seat) FocusKeyboard(n scene.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusedKeyboard = n
	if n != nil && n.Kind() == scene.KindToplevel {
		if c, ok := n.Parent().(*scene.Container); ok {
			s.lastTiledNode = n
			s.lastTiledContainer = c
		}
	}
}

// FocusPointer sets the seat's pointer focus target.
func (s *Seat) FocusPointer(n scene.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusedPointer = n
}

// FocusedKeyboard returns the current keyboard focus target, if any.
func (s *Seat) FocusedKeyboard() scene.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusedKeyboard
}

// FocusedPointer returns the current pointer focus target, if any.
func (s *Seat) FocusedPointer() scene.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusedPointer
}

// LastTiledKeyboardToplevel implements scene.ActiveSeat: the cached
// last-tiled keyboard toplevel, valid only while it is still parented
// under the returned Container (spec §4.5 map_tiled step 2).
func (s *Seat) LastTiledKeyboardToplevel() (scene.Node, *scene.Container, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTiledNode == nil || s.lastTiledContainer == nil {
		return nil, nil, false
	}
	if s.lastTiledNode.Parent() != s.lastTiledContainer {
		return nil, nil, false
	}
	return s.lastTiledNode, s.lastTiledContainer, true
}

// OnOutputRemoved drops any reference to an output that just
// disconnected, falling back to the dummy output (spec §4.6: "when an
// output disappears, seats currently on it fall back to the dummy
// output").
func (s *Seat) OnOutputRemoved(removed, dummy *scene.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pointerOutput == removed {
		s.pointerOutput = dummy
	}
}
