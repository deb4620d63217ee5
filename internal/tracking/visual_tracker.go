package tracking

import "errors"

// ErrTrackerInit marks a failed session start: the visual tracker could
// not be created or refused the selected region. The request is dropped
// and the orchestrator stays without a target.
var ErrTrackerInit = errors.New("tracking: visual tracker init failed")

// VisualTracker is a short-term appearance tracker over frames of type F.
// Any discriminative single-object tracker satisfying this contract can be
// plugged in.
type VisualTracker[F any] interface {
	// Init starts tracking region in frame and returns the region it
	// actually tracks, which may be region clipped to the frame. An error
	// ends the session attempt.
	Init(frame F, region Region) (Region, error)
	// Update re-localises the target in a new frame. ok is false when the
	// target is lost; losing the target is an expected outcome, not an
	// error.
	Update(frame F) (region Region, ok bool)
}

// TrackerFactory creates a fresh VisualTracker for each session. If the
// returned tracker also implements io.Closer it is closed when its session
// is discarded.
type TrackerFactory[F any] func() (VisualTracker[F], error)
