package glimpse

import "fmt"

type EventKind uint8

const (
	// EventTick is delivered once per poll, after all other events.
	EventTick EventKind = iota

	// EventResize reports the new size of the drawable area.
	EventResize

	// EventClose requests the application to stop.
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "Tick"
	case EventResize:
		return "Resize"
	case EventClose:
		return "Close"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

type Event struct {
	Kind EventKind

	// only set for EventResize
	Width  uint32
	Height uint32
}

func Tick() Event {
	return Event{Kind: EventTick}
}

func Resize(width, height uint32) Event {
	return Event{Kind: EventResize, Width: width, Height: height}
}

func Close() Event {
	return Event{Kind: EventClose}
}

func (e Event) String() string {
	if e.Kind == EventResize {
		return fmt.Sprintf("Resize(%d, %d)", e.Width, e.Height)
	}

	return e.Kind.String()
}

// Window is a drawable area on some output. Events are not delivered
// through callbacks, they are collected and returned by PollEvents.
type Window interface {
	// Size returns the size of the drawable area in pixels.
	Size() (uint32, uint32)

	// PollEvents processes pending system events and returns them in the
	// order they happened, followed by a single EventTick.
	PollEvents() []Event

	Terminate()
}
