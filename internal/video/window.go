package video

import (
	"gocv.io/x/gocv"

	"github.com/banshee-data/trackcam/internal/monitoring"
	"github.com/banshee-data/trackcam/internal/overlay"
	"github.com/banshee-data/trackcam/internal/tracking"
)

const (
	keyEscape    = 27
	mouseLButton = 1 // cv::EVENT_LBUTTONDOWN
)

// Window is the interactive preview. A left click submits a click region;
// 's' opens ROI selection for an explicit region; Escape stops the loop.
type Window struct {
	win      *gocv.Window
	requests *tracking.RegionRequests
	waitMs   int
}

// NewWindow opens a named window and routes pointer input to requests.
func NewWindow(name string, requests *tracking.RegionRequests, waitKeyMs int) *Window {
	w := &Window{
		win:      gocv.NewWindow(name),
		requests: requests,
		waitMs:   waitKeyMs,
	}
	w.win.SetMouseHandler(func(event, x, y, flags int, _ interface{}) {
		if event == mouseLButton {
			w.click(x, y)
		}
	}, nil)
	return w
}

func (w *Window) click(x, y int) {
	if err := w.requests.SubmitClick(x, y); err != nil {
		monitoring.Logf("click (%d,%d): %v", x, y, err)
		return
	}
	monitoring.Logf("click (%d,%d): new target requested", x, y)
}

// Show draws res over frame, displays it and polls the keyboard. It
// returns true when Escape was pressed.
func (w *Window) Show(frame gocv.Mat, res tracking.Result) bool {
	Draw(&frame, overlay.Build(res))
	w.win.IMShow(frame)

	switch key := w.win.WaitKey(w.waitMs); key {
	case keyEscape:
		return true
	case 's', 'S':
		region := tracking.RegionFromRect(w.win.SelectROI(frame))
		if err := w.requests.Submit(region); err != nil {
			monitoring.Logf("roi selection cancelled: %v", err)
		}
	}
	return false
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Draw renders shapes onto img.
func Draw(img *gocv.Mat, shapes []overlay.Shape) {
	for _, s := range shapes {
		switch s.Kind {
		case overlay.KindCircle:
			gocv.Circle(img, s.Center, s.Radius, s.Color, s.Thickness)
		case overlay.KindRect:
			gocv.Rectangle(img, s.Rect, s.Color, s.Thickness)
		case overlay.KindLine:
			gocv.Line(img, s.From, s.To, s.Color, s.Thickness)
		}
	}
}
