package tracking

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackcam/internal/config"
	"github.com/banshee-data/trackcam/internal/monitoring"
	"github.com/banshee-data/trackcam/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// frame is the frame type used by orchestrator tests; the orchestrator
// never looks inside frames.
type frame = int

func newTestOrchestrator(t *testing.T, cfg Config, trackers ...*ScriptedTracker[frame]) *Orchestrator[frame] {
	t.Helper()
	o := NewOrchestrator(SequenceFactory(trackers...), NewRegionRequests(DefaultClickRegionSize), cfg)
	n := 0
	o.newID = func() uuid.UUID {
		n++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(n)})
	}
	return o
}

func step(t *testing.T, o *Orchestrator[frame]) Result {
	t.Helper()
	res, err := o.Step(0)
	require.NoError(t, err)
	return res
}

func ptr[T any](v T) *T { return &v }

var region70 = Region{X: 70, Y: 70, Width: 60, Height: 60}

// ---------------------------------------------------------------------------
// NoTarget
// ---------------------------------------------------------------------------

func TestOrchestrator_StartsWithoutTarget(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig())

	res := step(t, o)
	want := Result{Frame: 1, State: StateNoTarget}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Step() mismatch (-want +got):\n%s", diff)
	}
	_, ok := o.Session()
	assert.False(t, ok)
}

func TestOrchestrator_ClickStartsSession(t *testing.T) {
	tr := &ScriptedTracker[frame]{}
	o := newTestOrchestrator(t, DefaultConfig(), tr)

	require.NoError(t, o.Requests().SubmitClick(100, 100))
	res := step(t, o)

	want := Result{
		Frame:     1,
		State:     StateTracking,
		Predicted: ptr(Point{X: 100, Y: 100}),
		Corrected: ptr(Point{X: 100, Y: 100}),
		Region:    ptr(region70),
		Restarted: true,
	}
	if diff := cmp.Diff(want, res, cmpopts.IgnoreFields(Result{}, "SessionID")); diff != "" {
		t.Errorf("Step() mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, []Region{region70}, tr.Inits())
	assert.Equal(t, 1, tr.Updates(), "new session is updated on the frame it starts")

	info, ok := o.Session()
	require.True(t, ok)
	assert.Equal(t, res.SessionID, info.ID)
	assert.Equal(t, 0, info.FailCount)
	assert.Equal(t, Point{}, info.Velocity)
}

func TestOrchestrator_FilterStartsAtTrackedRegion(t *testing.T) {
	clipped := Region{X: 0, Y: 0, Width: 40, Height: 40}
	tr := &ScriptedTracker[frame]{InitRegion: clipped}
	o := newTestOrchestrator(t, DefaultConfig(), tr)

	// A click near the top-left corner requests a box partly off-frame.
	require.NoError(t, o.Requests().SubmitClick(10, 10))
	res := step(t, o)

	require.Equal(t, StateTracking, res.State)
	assert.Equal(t, []Region{{X: -20, Y: -20, Width: 60, Height: 60}}, tr.Inits())
	assert.Equal(t, Point{X: 20, Y: 20}, *res.Predicted, "filter starts at the centre of the tracked box")
	assert.Equal(t, Point{X: 20, Y: 20}, *res.Corrected)

	info, ok := o.Session()
	require.True(t, ok)
	assert.Equal(t, clipped, info.Region)
}

func TestOrchestrator_InitFailureDiscardsRequest(t *testing.T) {
	tr := &ScriptedTracker[frame]{InitErr: errors.New("region outside frame")}
	o := newTestOrchestrator(t, DefaultConfig(), tr)

	require.NoError(t, o.Requests().Submit(region70))
	res := step(t, o)

	assert.Equal(t, StateNoTarget, res.State)
	assert.True(t, res.Restarted)
	assert.True(t, res.InitFailed)
	assert.Empty(t, res.SessionID)
	assert.True(t, tr.Closed(), "rejected tracker is released")
	assert.Equal(t, 0, tr.Updates())

	// The request was consumed: the next frame is a plain NoTarget frame.
	res = step(t, o)
	assert.Equal(t, StateNoTarget, res.State)
	assert.False(t, res.Restarted)
}

func TestOrchestrator_FactoryFailureIsSetupFailure(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig()) // no trackers available

	require.NoError(t, o.Requests().Submit(region70))
	res, err := o.Step(0)

	require.NoError(t, err)
	assert.True(t, res.InitFailed)
	assert.Equal(t, StateNoTarget, o.State())
}

// ---------------------------------------------------------------------------
// Tracking / Coasting
// ---------------------------------------------------------------------------

func TestOrchestrator_TrackingEmitsPreviousCorrected(t *testing.T) {
	moved := Region{X: 80, Y: 70, Width: 60, Height: 60}
	tr := &ScriptedTracker[frame]{Steps: []ScriptStep{Found(region70), Found(moved)}}
	o := newTestOrchestrator(t, DefaultConfig(), tr)
	require.NoError(t, o.Requests().Submit(region70))

	first := step(t, o)
	assert.Nil(t, first.PrevCorrected)

	second := step(t, o)
	require.NotNil(t, second.PrevCorrected)
	assert.Equal(t, *first.Corrected, *second.PrevCorrected)
	assert.Equal(t, moved, *second.Region)
	assert.Greater(t, second.Corrected.X, first.Corrected.X)
	assert.Equal(t, StateTracking, second.State)
}

func TestOrchestrator_LossCoastsOnPrediction(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	tr := &ScriptedTracker[frame]{Steps: []ScriptStep{Found(region70), Lost(), Lost()}}
	o := newTestOrchestrator(t, DefaultConfig(), tr)
	require.NoError(t, o.Requests().Submit(region70))
	step(t, o)

	res := step(t, o)
	assert.Equal(t, StateCoasting, res.State)
	assert.Equal(t, 1, res.FailCount)
	require.NotNil(t, res.Predicted)
	assert.Nil(t, res.Corrected)
	assert.Nil(t, res.Region)
	require.NotNil(t, res.CoastRegion)
	assert.Equal(t, RegionAround(*res.Predicted, 60), *res.CoastRegion)
	assert.True(t, logs.Contains("target lost, coasting"))

	res = step(t, o)
	assert.Equal(t, StateCoasting, res.State)
	assert.Equal(t, 2, res.FailCount)
	assert.Equal(t, 3, tr.Updates(), "the same tracker is probed every frame")
	assert.Len(t, tr.Inits(), 1, "the tracker is not re-initialised while coasting")
}

func TestOrchestrator_SuccessResetsFailCount(t *testing.T) {
	steps := []ScriptStep{Found(region70)}
	for i := 0; i < 7; i++ {
		steps = append(steps, Lost())
	}
	steps = append(steps, Found(region70))
	tr := &ScriptedTracker[frame]{Steps: steps}
	o := newTestOrchestrator(t, DefaultConfig(), tr)
	require.NoError(t, o.Requests().Submit(region70))

	var res Result
	for range steps {
		res = step(t, o)
	}

	assert.Equal(t, StateTracking, res.State)
	assert.Equal(t, 0, res.FailCount)
	info, ok := o.Session()
	require.True(t, ok)
	assert.Equal(t, 0, info.FailCount)
	assert.NotNil(t, res.Corrected)
}

func TestOrchestrator_FailThresholdResetsAndKeepsCoasting(t *testing.T) {
	tr := &ScriptedTracker[frame]{Steps: []ScriptStep{Found(region70)}, Default: Lost()}
	o := newTestOrchestrator(t, DefaultConfig(), tr)
	require.NoError(t, o.Requests().Submit(region70))
	step(t, o)

	var res Result
	for i := 1; i < 50; i++ {
		res = step(t, o)
		require.Equal(t, i, res.FailCount)
		require.NotNil(t, res.Predicted, "miss %d should still extrapolate", i)
	}

	// The 50th consecutive miss resets the counter and emits nothing.
	res = step(t, o)
	assert.Equal(t, StateCoasting, res.State)
	assert.Equal(t, 0, res.FailCount)
	assert.Nil(t, res.Predicted)
	assert.Nil(t, res.CoastRegion)
	assert.NotEmpty(t, res.SessionID, "the session survives the reset")

	// Coasting resumes with a fresh count.
	res = step(t, o)
	assert.Equal(t, StateCoasting, res.State)
	assert.Equal(t, 1, res.FailCount)
	assert.NotNil(t, res.Predicted)
}

func TestOrchestrator_UpdateConfigChangesThreshold(t *testing.T) {
	tr := &ScriptedTracker[frame]{Steps: []ScriptStep{Found(region70)}, Default: Lost()}
	o := newTestOrchestrator(t, DefaultConfig(), tr)
	o.UpdateConfig(func(c *Config) { c.FailThreshold = 3 })
	require.NoError(t, o.Requests().Submit(region70))
	step(t, o)

	assert.Equal(t, 1, step(t, o).FailCount)
	assert.Equal(t, 2, step(t, o).FailCount)
	res := step(t, o)
	assert.Equal(t, 0, res.FailCount)
	assert.Nil(t, res.Predicted)
	assert.Equal(t, 3, o.Config().FailThreshold)
}

// ---------------------------------------------------------------------------
// Restarts
// ---------------------------------------------------------------------------

func TestOrchestrator_NewRequestReplacesSession(t *testing.T) {
	for _, lostFirst := range []bool{false, true} {
		name := "while tracking"
		if lostFirst {
			name = "while coasting"
		}
		t.Run(name, func(t *testing.T) {
			oldSteps := []ScriptStep{Found(region70)}
			if lostFirst {
				oldSteps = append(oldSteps, Lost(), Lost())
			}
			old := &ScriptedTracker[frame]{Steps: oldSteps}
			newRegion := Region{X: 300, Y: 200, Width: 40, Height: 20}
			fresh := &ScriptedTracker[frame]{}
			o := newTestOrchestrator(t, DefaultConfig(), old, fresh)

			require.NoError(t, o.Requests().Submit(region70))
			first := step(t, o)
			for range oldSteps[1:] {
				step(t, o)
			}
			updatesBefore := old.Updates()

			require.NoError(t, o.Requests().Submit(newRegion))
			res := step(t, o)

			assert.True(t, res.Restarted)
			assert.Equal(t, StateTracking, res.State)
			assert.NotEqual(t, first.SessionID, res.SessionID)
			assert.Equal(t, 0, res.FailCount)
			assert.Nil(t, res.PrevCorrected, "history does not carry over")
			assert.Equal(t, newRegion.Center(), *res.Predicted)
			assert.True(t, old.Closed())
			assert.Equal(t, updatesBefore, old.Updates(), "request is consumed before any update")
			assert.Equal(t, []Region{newRegion}, fresh.Inits())

			info, ok := o.Session()
			require.True(t, ok)
			assert.Equal(t, res.SessionID, info.ID)
			assert.Equal(t, 0, info.FailCount)
			assert.Equal(t, res.Frame, info.StartedFrame)
		})
	}
}

func TestOrchestrator_FailedRestartDropsOldSession(t *testing.T) {
	old := &ScriptedTracker[frame]{}
	bad := &ScriptedTracker[frame]{InitErr: errors.New("no texture")}
	o := newTestOrchestrator(t, DefaultConfig(), old, bad)

	require.NoError(t, o.Requests().Submit(region70))
	step(t, o)
	require.Equal(t, StateTracking, o.State())

	require.NoError(t, o.Requests().Submit(region70))
	res := step(t, o)

	assert.True(t, res.InitFailed)
	assert.Equal(t, StateNoTarget, res.State)
	assert.True(t, old.Closed())
	_, ok := o.Session()
	assert.False(t, ok)
}

func TestOrchestrator_LatestRequestWins(t *testing.T) {
	tr := &ScriptedTracker[frame]{}
	o := newTestOrchestrator(t, DefaultConfig(), tr)

	require.NoError(t, o.Requests().SubmitClick(10, 10))
	require.NoError(t, o.Requests().SubmitClick(100, 100))
	step(t, o)

	assert.Equal(t, []Region{region70}, tr.Inits())
}

func TestOrchestrator_Reset(t *testing.T) {
	tr := &ScriptedTracker[frame]{}
	o := newTestOrchestrator(t, DefaultConfig(), tr)
	require.NoError(t, o.Requests().Submit(region70))
	step(t, o)

	o.Reset()
	assert.Equal(t, StateNoTarget, o.State())
	assert.True(t, tr.Closed())
	assert.Equal(t, StateNoTarget, step(t, o).State)
}

// ---------------------------------------------------------------------------
// Filter faults
// ---------------------------------------------------------------------------

func TestOrchestrator_FilterFaultPropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filter.ProcessNoisePos = math.NaN()
	o := newTestOrchestrator(t, cfg, &ScriptedTracker[frame]{})
	require.NoError(t, o.Requests().Submit(region70))

	_, err := o.Step(0)
	assert.ErrorIs(t, err, ErrNonFiniteState)
}

func TestConfigFromTuningDefaults(t *testing.T) {
	if diff := cmp.Diff(DefaultConfig(), ConfigFromTuning(config.EmptyTuningConfig())); diff != "" {
		t.Errorf("ConfigFromTuning(defaults) mismatch (-want +got):\n%s", diff)
	}
}
