package grid

import "sync"

// Rect is a screen rectangle used to anchor popovers and hit-test pointer events.
type Rect struct {
	X, Y, Width, Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// PointerKind classifies a pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

// PointerEvent is one event from the global pointer stream.
type PointerEvent struct {
	Kind PointerKind
	X, Y int
}

// PointerHub fans global pointer events out to scoped subscribers. Every
// Subscribe returns a release func; releasing twice is harmless.
type PointerHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(PointerEvent)
}

// NewPointerHub returns an empty hub.
func NewPointerHub() *PointerHub {
	return &PointerHub{subs: make(map[int]func(PointerEvent))}
}

// Subscribe registers fn for every dispatched event until release is called.
func (h *PointerHub) Subscribe(fn func(PointerEvent)) (release func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to a snapshot of the current subscribers, so handlers
// may release themselves while running.
func (h *PointerHub) Dispatch(ev PointerEvent) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.mu.Lock()
		fn, ok := h.subs[id]
		h.mu.Unlock()
		if ok {
			fn(ev)
		}
	}
}

// Len is the number of live subscriptions.
func (h *PointerHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// scope tracks release funcs so teardown can release everything still held.
type scope struct {
	mu       sync.Mutex
	releases map[*func()]struct{}
}

// hold registers release and returns a func that releases it and forgets it.
func (s *scope) hold(release func()) func() {
	key := &release
	s.mu.Lock()
	if s.releases == nil {
		s.releases = make(map[*func()]struct{})
	}
	s.releases[key] = struct{}{}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.releases, key)
		s.mu.Unlock()
		release()
	}
}

// releaseAll runs every held release func.
func (s *scope) releaseAll() {
	s.mu.Lock()
	held := s.releases
	s.releases = nil
	s.mu.Unlock()
	for r := range held {
		(*r)()
	}
}
