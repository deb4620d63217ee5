package tracking

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/trackcam/internal/monitoring"
)

// Result is everything the orchestrator learned from one frame. Pointer
// fields are nil when there is nothing to report for this frame.
type Result struct {
	Frame     uint64 // 1-based frame counter
	State     TrackState
	SessionID string // Empty while there is no session

	Predicted     *Point  // Motion-filter prediction
	Corrected     *Point  // Prediction corrected by the visual measurement
	PrevCorrected *Point  // Corrected position of the previous successful frame
	Region        *Region // Region reported by the visual tracker
	CoastRegion   *Region // Box around the prediction while coasting

	FailCount  int
	Restarted  bool // A region request was consumed this frame
	InitFailed bool // ...and the new session could not be started
}

// SessionInfo is a read-only snapshot of the active session.
type SessionInfo struct {
	ID            string
	State         TrackState
	FailCount     int
	Region        Region
	Position      Point
	Velocity      Point
	PrevCorrected *Point
	StartedFrame  uint64
}

// session is the per-target state. It exists only while there is a
// target and is replaced wholesale on every new region request.
type session[F any] struct {
	id            uuid.UUID
	tracker       VisualTracker[F]
	filter        *MotionFilter
	failCount     int
	prevCorrected *Point
	region        Region
	startedFrame  uint64
}

func (s *session[F]) close() {
	if c, ok := s.tracker.(io.Closer); ok {
		if err := c.Close(); err != nil {
			monitoring.Logf("session %s: close tracker: %v", s.id, err)
		}
	}
}

// sessionState is the tagged lifecycle state. Tracking and Coasting carry
// their session so a coasting orchestrator without a session cannot be
// expressed.
type sessionState[F any] interface {
	trackState() TrackState
}

type noTargetState[F any] struct{}

type trackingState[F any] struct{ s *session[F] }

type coastingState[F any] struct{ s *session[F] }

func (noTargetState[F]) trackState() TrackState { return StateNoTarget }
func (trackingState[F]) trackState() TrackState { return StateTracking }
func (coastingState[F]) trackState() TrackState { return StateCoasting }

// Orchestrator fuses a visual tracker with a motion filter for a single
// target. Step must be called from one goroutine (the frame loop); region
// requests arrive through the shared RegionRequests slot and UpdateConfig
// may be called from any goroutine.
type Orchestrator[F any] struct {
	factory  TrackerFactory[F]
	requests *RegionRequests

	mu  sync.Mutex
	cfg Config

	state sessionState[F]
	frame uint64
	newID func() uuid.UUID
}

// NewOrchestrator creates an orchestrator with no target.
func NewOrchestrator[F any](factory TrackerFactory[F], requests *RegionRequests, cfg Config) *Orchestrator[F] {
	return &Orchestrator[F]{
		factory:  factory,
		requests: requests,
		cfg:      cfg,
		state:    noTargetState[F]{},
		newID:    uuid.New,
	}
}

// Requests returns the region request slot the orchestrator consumes.
func (o *Orchestrator[F]) Requests() *RegionRequests {
	return o.requests
}

// State returns the current lifecycle state.
func (o *Orchestrator[F]) State() TrackState {
	return o.state.trackState()
}

// Config returns a copy of the current configuration.
func (o *Orchestrator[F]) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// UpdateConfig applies fn to the configuration. Filter parameters take
// effect for sessions started afterwards; FailThreshold and
// CoastRegionSize apply from the next frame.
func (o *Orchestrator[F]) UpdateConfig(fn func(*Config)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.cfg)
}

// Session returns a snapshot of the active session.
func (o *Orchestrator[F]) Session() (SessionInfo, bool) {
	s := o.current()
	if s == nil {
		return SessionInfo{}, false
	}
	info := SessionInfo{
		ID:           s.id.String(),
		State:        o.State(),
		FailCount:    s.failCount,
		Region:       s.region,
		Position:     s.filter.Position(),
		Velocity:     s.filter.Velocity(),
		StartedFrame: s.startedFrame,
	}
	if s.prevCorrected != nil {
		p := *s.prevCorrected
		info.PrevCorrected = &p
	}
	return info, true
}

// Reset discards the active session, if any.
func (o *Orchestrator[F]) Reset() {
	if s := o.current(); s != nil {
		s.close()
		monitoring.Logf("session %s: discarded", s.id)
	}
	o.state = noTargetState[F]{}
}

func (o *Orchestrator[F]) current() *session[F] {
	switch st := o.state.(type) {
	case trackingState[F]:
		return st.s
	case coastingState[F]:
		return st.s
	default:
		return nil
	}
}

// Step processes one frame. A pending region request is always consumed
// first, so a new selection takes priority over the current target. The
// returned error is reserved for filter faults; losing the target and
// failing to start a session are reported in the Result.
func (o *Orchestrator[F]) Step(frame F) (Result, error) {
	o.mu.Lock()
	cfg := o.cfg
	o.mu.Unlock()

	o.frame++
	res := Result{Frame: o.frame}

	if region, ok := o.requests.Take(); ok {
		res.Restarted = true
		if err := o.start(frame, region, cfg); err != nil {
			monitoring.Logf("frame %d: %v", o.frame, err)
			res.InitFailed = true
		}
	}

	s := o.current()
	if s == nil {
		res.State = StateNoTarget
		return res, nil
	}
	res.SessionID = s.id.String()

	if region, ok := s.tracker.Update(frame); ok {
		return o.track(s, region, res)
	}
	return o.coast(s, res, cfg)
}

// start replaces the current session with one tracking region. The old
// session is discarded before the new tracker is initialised, so a failed
// start leaves the orchestrator without a target.
func (o *Orchestrator[F]) start(frame F, region Region, cfg Config) error {
	o.Reset()

	tracker, err := o.factory()
	if err != nil {
		return fmt.Errorf("%w: create tracker: %v", ErrTrackerInit, err)
	}
	tracked, err := tracker.Init(frame, region)
	if err != nil {
		if c, ok := tracker.(io.Closer); ok {
			_ = c.Close()
		}
		return fmt.Errorf("%w: region %s: %v", ErrTrackerInit, region, err)
	}
	if tracked != region {
		monitoring.Logf("region %s clipped to %s", region, tracked)
		region = tracked
	}

	filter := NewMotionFilter(cfg.Filter)
	filter.Init(region.Center())

	s := &session[F]{
		id:           o.newID(),
		tracker:      tracker,
		filter:       filter,
		region:       region,
		startedFrame: o.frame,
	}
	o.state = trackingState[F]{s: s}
	monitoring.Logf("session %s: started at %s", s.id, region)
	return nil
}

// track handles a successful visual update.
func (o *Orchestrator[F]) track(s *session[F], region Region, res Result) (Result, error) {
	if _, wasCoasting := o.state.(coastingState[F]); wasCoasting {
		monitoring.Logf("session %s: reacquired after %d misses", s.id, s.failCount)
	}
	s.failCount = 0
	s.region = region

	predicted, err := s.filter.Predict()
	if err != nil {
		return res, fmt.Errorf("session %s: predict: %w", s.id, err)
	}
	corrected, err := s.filter.Correct(region.Center())
	if err != nil {
		return res, fmt.Errorf("session %s: correct: %w", s.id, err)
	}

	res.State = StateTracking
	res.Predicted = &predicted
	res.Corrected = &corrected
	res.PrevCorrected = s.prevCorrected
	res.Region = &region

	s.prevCorrected = &corrected
	o.state = trackingState[F]{s: s}
	return res, nil
}

// coast handles a failed visual update. While the miss count is under the
// threshold the filter extrapolates; on reaching it the count resets and
// nothing is emitted for the frame. The session is kept and its tracker is
// probed again on the next frame.
func (o *Orchestrator[F]) coast(s *session[F], res Result, cfg Config) (Result, error) {
	if _, wasTracking := o.state.(trackingState[F]); wasTracking {
		monitoring.Logf("session %s: target lost, coasting", s.id)
	}
	s.failCount++
	o.state = coastingState[F]{s: s}
	res.State = StateCoasting

	if s.failCount < cfg.FailThreshold {
		predicted, err := s.filter.Predict()
		if err != nil {
			return res, fmt.Errorf("session %s: predict: %w", s.id, err)
		}
		coastRegion := RegionAround(predicted, cfg.CoastRegionSize)
		res.Predicted = &predicted
		res.CoastRegion = &coastRegion
	} else {
		// The session is kept and the miss count restarts. Dropping the
		// session here instead is an open question; see DESIGN.md.
		monitoring.Logf("session %s: %d consecutive misses, resetting miss count", s.id, s.failCount)
		s.failCount = 0
	}

	res.FailCount = s.failCount
	return res, nil
}
