package tracking

import (
	"errors"
	"sync"
)

// ScriptStep is one scripted outcome of ScriptedTracker.Update.
type ScriptStep struct {
	Region Region
	Lost   bool
}

// Found scripts a successful update reporting r.
func Found(r Region) ScriptStep { return ScriptStep{Region: r} }

// Lost scripts a failed update.
func Lost() ScriptStep { return ScriptStep{Lost: true} }

// ScriptedTracker is a VisualTracker that replays a fixed list of outcomes,
// then repeats Default. It records calls so tests can assert on them.
type ScriptedTracker[F any] struct {
	InitErr    error
	InitRegion Region // Returned by Init instead of the requested region when valid
	Steps      []ScriptStep
	Default    ScriptStep

	mu      sync.Mutex
	inits   []Region
	updates int
	closed  bool
}

// Init records the region and returns InitErr, or InitRegion when set.
func (t *ScriptedTracker[F]) Init(frame F, region Region) (Region, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inits = append(t.inits, region)
	if t.InitErr != nil {
		return Region{}, t.InitErr
	}
	if t.InitRegion.Valid() {
		region = t.InitRegion
	}
	if !t.Default.Lost && !t.Default.Region.Valid() {
		t.Default = Found(region)
	}
	return region, nil
}

// Update replays the next scripted step.
func (t *ScriptedTracker[F]) Update(frame F) (Region, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	step := t.Default
	if t.updates < len(t.Steps) {
		step = t.Steps[t.updates]
	}
	t.updates++
	if step.Lost {
		return Region{}, false
	}
	return step.Region, true
}

// Close marks the tracker closed.
func (t *ScriptedTracker[F]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Inits returns the regions passed to Init.
func (t *ScriptedTracker[F]) Inits() []Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Region(nil), t.inits...)
}

// Updates returns the number of Update calls.
func (t *ScriptedTracker[F]) Updates() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updates
}

// Closed reports whether Close was called.
func (t *ScriptedTracker[F]) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// errFactoryExhausted is returned by SequenceFactory when it runs out.
var errFactoryExhausted = errors.New("tracking: scripted factory exhausted")

// SequenceFactory returns a TrackerFactory handing out trackers in order.
func SequenceFactory[F any](trackers ...*ScriptedTracker[F]) TrackerFactory[F] {
	var mu sync.Mutex
	next := 0
	return func() (VisualTracker[F], error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(trackers) {
			return nil, errFactoryExhausted
		}
		t := trackers[next]
		next++
		return t, nil
	}
}
