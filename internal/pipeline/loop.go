// Package pipeline drives the per-frame loop: read a frame, step the
// tracking orchestrator, hand the result to the display and recorders.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/trackcam/internal/monitoring"
	"github.com/banshee-data/trackcam/internal/timeutil"
	"github.com/banshee-data/trackcam/internal/tracking"
)

// FrameSource yields frames in order. Read returns false at end of stream.
type FrameSource[F any] interface {
	Read() (F, bool)
}

// Display renders a frame with its tracking result and polls for input.
// Show returns true when the user asked to stop.
type Display[F any] interface {
	Show(frame F, res tracking.Result) (stop bool)
}

// ResultSink receives every per-frame result, e.g. for recording.
type ResultSink interface {
	Record(ctx context.Context, at time.Time, res tracking.Result) error
}

// Stepper advances tracking by one frame. *tracking.Orchestrator[F]
// satisfies it.
type Stepper[F any] interface {
	Step(frame F) (tracking.Result, error)
}

// StopReason describes why Run returned.
type StopReason string

const (
	StopEndOfStream StopReason = "end_of_stream"
	StopKey         StopReason = "stop_key"
	StopCancelled   StopReason = "cancelled"
	StopError       StopReason = "error"
)

// Stats summarises a run.
type Stats struct {
	Frames       int
	Tracking     int
	Coasting     int
	NoTarget     int
	Restarts     int
	InitFailures int
	SinkErrors   int
	Elapsed      time.Duration
	Reason       StopReason
}

// FPS returns the average frame rate over the run.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

func (s *Stats) add(res tracking.Result) {
	s.Frames++
	switch res.State {
	case tracking.StateTracking:
		s.Tracking++
	case tracking.StateCoasting:
		s.Coasting++
	default:
		s.NoTarget++
	}
	if res.Restarted {
		s.Restarts++
	}
	if res.InitFailed {
		s.InitFailures++
	}
}

// Config wires the loop's collaborators. Display, Sinks and Clock are
// optional.
type Config[F any] struct {
	Source      FrameSource[F]
	Stepper     Stepper[F]
	Display     Display[F]
	Sinks       []ResultSink
	Clock       timeutil.Clock
	LogInterval time.Duration // Period of progress log lines; 0 selects one minute
}

// Loop is the frame loop. It is single-threaded: frames are stepped and
// shown on the goroutine that calls Run.
type Loop[F any] struct {
	source      FrameSource[F]
	stepper     Stepper[F]
	display     Display[F]
	sinks       []ResultSink
	clock       timeutil.Clock
	logInterval time.Duration
}

// NewLoop creates a loop from cfg.
func NewLoop[F any](cfg Config[F]) *Loop[F] {
	display := cfg.Display
	if display == nil {
		display = headless[F]{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	logInterval := cfg.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &Loop[F]{
		source:      cfg.Source,
		stepper:     cfg.Stepper,
		display:     display,
		sinks:       cfg.Sinks,
		clock:       clock,
		logInterval: logInterval,
	}
}

// headless is the Display used when none is configured.
type headless[F any] struct{}

func (headless[F]) Show(F, tracking.Result) bool { return false }

// Run processes frames until the stream ends, the display asks to stop,
// or ctx is cancelled. Those are normal terminations and return a nil
// error. A stepping error ends the run and is returned; sink errors are
// logged and counted.
func (l *Loop[F]) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	start := l.clock.Now()
	lastLog := start

	finish := func(reason StopReason) Stats {
		stats.Reason = reason
		stats.Elapsed = l.clock.Since(start)
		monitoring.Logf("frame loop stopped (%s) after %d frames, %.1f fps", reason, stats.Frames, stats.FPS())
		return stats
	}

	for {
		select {
		case <-ctx.Done():
			return finish(StopCancelled), nil
		default:
		}

		frame, ok := l.source.Read()
		if !ok {
			return finish(StopEndOfStream), nil
		}
		at := l.clock.Now()

		res, err := l.stepper.Step(frame)
		if err != nil {
			s := finish(StopError)
			return s, fmt.Errorf("frame %d: %w", res.Frame, err)
		}
		stats.add(res)

		for _, sink := range l.sinks {
			if err := sink.Record(ctx, at, res); err != nil {
				stats.SinkErrors++
				monitoring.Logf("frame %d: record result: %v", res.Frame, err)
			}
		}

		if l.display.Show(frame, res) {
			return finish(StopKey), nil
		}

		if at.Sub(lastLog) >= l.logInterval {
			monitoring.Logf("frames=%d tracking=%d coasting=%d restarts=%d state=%s",
				stats.Frames, stats.Tracking, stats.Coasting, stats.Restarts, res.State)
			lastLog = at
		}
	}
}
