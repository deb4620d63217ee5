// Package report renders recorded track sessions as charts: an interactive
// HTML scatter (go-echarts) and a static PNG (gonum/plot).
package report

import (
	"errors"

	"github.com/banshee-data/trackcam/internal/tracklog"
	"github.com/banshee-data/trackcam/internal/tracking"
)

// ErrEmptyTrajectory is returned when there is nothing to plot.
var ErrEmptyTrajectory = errors.New("report: trajectory has no points")

// Trajectory splits a session's recorded frames into the positions drawn
// by a report.
type Trajectory struct {
	SessionID string
	Corrected []tracking.Point // Fused positions on tracked frames
	Coasted   []tracking.Point // Predicted positions on coasting frames
	Frames    int
}

// NewTrajectory builds a Trajectory from recorded points.
func NewTrajectory(sessionID string, points []tracklog.Point) Trajectory {
	tr := Trajectory{SessionID: sessionID, Frames: len(points)}
	for _, p := range points {
		switch {
		case p.State == tracking.StateTracking && p.Corrected != nil:
			tr.Corrected = append(tr.Corrected, *p.Corrected)
		case p.State == tracking.StateCoasting && p.Predicted != nil:
			tr.Coasted = append(tr.Coasted, *p.Predicted)
		}
	}
	return tr
}

// Empty reports whether there are no positions to plot.
func (t Trajectory) Empty() bool {
	return len(t.Corrected) == 0 && len(t.Coasted) == 0
}
