package video

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/banshee-data/trackcam/internal/config"
	"github.com/banshee-data/trackcam/internal/tracking"
)

// ErrUnknownTracker is returned by NewTrackerFactory for an unsupported kind.
var ErrUnknownTracker = errors.New("video: unknown tracker kind")

// cvTracker adapts a gocv.Tracker to tracking.VisualTracker.
type cvTracker struct {
	kind    string
	tracker gocv.Tracker
}

// Init clips region to the frame and returns the clipped region.
func (t *cvTracker) Init(frame gocv.Mat, region tracking.Region) (tracking.Region, error) {
	if frame.Empty() {
		return tracking.Region{}, errors.New("empty frame")
	}
	rect, err := clipToFrame(region, frame.Cols(), frame.Rows())
	if err != nil {
		return tracking.Region{}, err
	}
	if !t.tracker.Init(frame, rect) {
		return tracking.Region{}, fmt.Errorf("%s tracker rejected region %s", t.kind, region)
	}
	return tracking.RegionFromRect(rect), nil
}

func clipToFrame(region tracking.Region, cols, rows int) (image.Rectangle, error) {
	bounds := image.Rect(0, 0, cols, rows)
	rect := region.Rect().Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("region %s outside %dx%d frame", region, cols, rows)
	}
	return rect, nil
}

func (t *cvTracker) Update(frame gocv.Mat) (tracking.Region, bool) {
	rect, ok := t.tracker.Update(frame)
	if !ok || rect.Empty() {
		return tracking.Region{}, false
	}
	return tracking.RegionFromRect(rect), true
}

func (t *cvTracker) Close() error {
	return t.tracker.Close()
}

// NewTrackerFactory returns a factory creating OpenCV trackers of kind
// (csrt, kcf or mil). Each session gets a fresh tracker.
func NewTrackerFactory(kind string) (tracking.TrackerFactory[gocv.Mat], error) {
	var create func() gocv.Tracker
	switch kind {
	case config.TrackerCSRT, "":
		create = contrib.NewTrackerCSRT
	case config.TrackerKCF:
		create = contrib.NewTrackerKCF
	case config.TrackerMIL:
		create = gocv.NewTrackerMIL
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTracker, kind)
	}
	if kind == "" {
		kind = config.TrackerCSRT
	}
	return func() (tracking.VisualTracker[gocv.Mat], error) {
		return &cvTracker{kind: kind, tracker: create()}, nil
	}, nil
}
