// Package video binds the tracking core to OpenCV through gocv: frame
// capture, the preview window with pointer and keyboard input, overlay
// drawing, and the OpenCV visual trackers.
package video
