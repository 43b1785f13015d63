package glimpse

import (
	"sync"
)

// Headless is a window without any output. Events are scripted by the
// caller. It is safe for concurrent use.
type Headless struct {
	mu         sync.Mutex
	width      uint32
	height     uint32
	pending    []Event
	ticks      int
	closeAfter int
	terminated bool
}

func NewHeadless(width, height uint32) *Headless {
	return &Headless{width: width, height: height}
}

func (h *Headless) Size() (uint32, uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.width, h.height
}

// Resize changes the size and queues a matching EventResize.
func (h *Headless) Resize(width, height uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.width = width
	h.height = height
	h.pending = append(h.pending, Resize(width, height))
}

// SetSize changes the size without queuing an event, like a system that
// resizes the window before notifying the application.
func (h *Headless) SetSize(width, height uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.width = width
	h.height = height
}

// Close queues an EventClose.
func (h *Headless) Close() {
	h.Push(Close())
}

// CloseAfter queues an EventClose once the given number of ticks were delivered.
func (h *Headless) CloseAfter(ticks int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closeAfter = h.ticks + ticks
}

func (h *Headless) Push(events ...Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = append(h.pending, events...)
}

func (h *Headless) PollEvents() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	events := h.pending
	h.pending = nil

	if h.closeAfter > 0 && h.ticks >= h.closeAfter {
		h.closeAfter = 0
		events = append(events, Close())
	}

	h.ticks++

	return append(events, Tick())
}

// Ticks returns the number of EventTick delivered so far.
func (h *Headless) Ticks() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.ticks
}

func (h *Headless) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.terminated = true
}

func (h *Headless) Terminated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.terminated
}
