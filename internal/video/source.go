package video

import (
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

// ErrSourceNotOpened is returned when a capture device or file cannot be
// opened.
var ErrSourceNotOpened = errors.New("video: source could not be opened")

// Source reads frames from a camera or a video file. The Mat returned by
// Read is reused for every frame and stays valid until the next Read.
type Source struct {
	spec    string
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// OpenSource opens spec as a camera index when it is numeric, otherwise as
// a file path or stream URL.
func OpenSource(spec string) (*Source, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, convErr := strconv.Atoi(spec); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(id)
	} else {
		capture, err = gocv.VideoCaptureFile(spec)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceNotOpened, spec, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrSourceNotOpened, spec)
	}
	return &Source{spec: spec, capture: capture, frame: gocv.NewMat()}, nil
}

// Read grabs the next frame. It returns false at end of stream or when the
// device stops delivering frames.
func (s *Source) Read() (gocv.Mat, bool) {
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return s.frame, false
	}
	return s.frame, true
}

// FPS returns the frame rate reported by the device, or 0 when unknown.
func (s *Source) FPS() float64 {
	return s.capture.Get(gocv.VideoCaptureFPS)
}

func (s *Source) String() string {
	return s.spec
}

// Close releases the capture and the frame buffer.
func (s *Source) Close() error {
	s.frame.Close()
	return s.capture.Close()
}
