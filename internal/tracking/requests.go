package tracking

import "errors"

// ErrInvalidRegion is returned when a submitted region has no extent.
var ErrInvalidRegion = errors.New("tracking: region must have positive width and height")

// DefaultClickRegionSize is the side of the square region derived from a
// pointer click.
const DefaultClickRegionSize = 60

// RegionRequests is the single pending-selection slot shared between the
// pointer-input side and the frame loop. It holds at most one region; a
// newer submission replaces an unconsumed older one.
//
// Submit never blocks, so it is safe to call from UI callbacks. Take is a
// non-blocking receive performed once per frame by the orchestrator.
type RegionRequests struct {
	slot      chan Region
	clickSize int
}

// NewRegionRequests creates an empty slot. clickSize is the side of the
// region derived from clicks; values < 1 select DefaultClickRegionSize.
func NewRegionRequests(clickSize int) *RegionRequests {
	if clickSize < 1 {
		clickSize = DefaultClickRegionSize
	}
	return &RegionRequests{
		slot:      make(chan Region, 1),
		clickSize: clickSize,
	}
}

// Submit stores r as the pending request, replacing any unconsumed one.
func (q *RegionRequests) Submit(r Region) error {
	if !r.Valid() {
		return ErrInvalidRegion
	}
	for {
		select {
		case q.slot <- r:
			return nil
		default:
		}
		// Slot full: drop the stale request and retry.
		select {
		case <-q.slot:
		default:
		}
	}
}

// SubmitClick stores the region centred on a click at (x, y).
func (q *RegionRequests) SubmitClick(x, y int) error {
	return q.Submit(RegionFromClick(x, y, q.clickSize))
}

// Take removes and returns the pending request, if any.
func (q *RegionRequests) Take() (Region, bool) {
	select {
	case r := <-q.slot:
		return r, true
	default:
		return Region{}, false
	}
}
