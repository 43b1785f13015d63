package pulse

import "fmt"

type SlotState uint8

const (
	SlotFree SlotState = iota
	SlotAcquired
	SlotInFlight
	SlotPresented
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "Free"
	case SlotAcquired:
		return "Acquired"
	case SlotInFlight:
		return "InFlight"
	case SlotPresented:
		return "Presented"
	default:
		return fmt.Sprintf("SlotState(%d)", uint8(s))
	}
}

// FrameSlot is one image of a Surface together with the fence of the
// last submission that rendered into it.
type FrameSlot struct {
	index int
	state SlotState
	image SwapImage
	fence Fence

	// submission order, used to find the oldest busy slot
	serial uint64
}

func (s *FrameSlot) Index() int {
	return s.index
}

func (s *FrameSlot) State() SlotState {
	return s.state
}

// Image returns the swap image while the slot is acquired.
func (s *FrameSlot) Image() SwapImage {
	return s.image
}

func (s *FrameSlot) busy() bool {
	return s.state == SlotInFlight || s.state == SlotPresented
}

// SlotTransition describes a single state change of a FrameSlot.
type SlotTransition struct {
	Slot int
	From SlotState
	To   SlotState
}

var validTransitions = map[SlotTransition]bool{
	{From: SlotFree, To: SlotAcquired}:      true,
	{From: SlotAcquired, To: SlotInFlight}:  true,
	{From: SlotAcquired, To: SlotFree}:      true,
	{From: SlotInFlight, To: SlotPresented}: true,
	{From: SlotInFlight, To: SlotFree}:      true,
	{From: SlotPresented, To: SlotFree}:     true,
}

func (t SlotTransition) valid() bool {
	return validTransitions[SlotTransition{From: t.From, To: t.To}]
}
