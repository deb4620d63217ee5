package tracking

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// TrackState is the lifecycle state of the orchestrator.
type TrackState string

const (
	StateNoTarget TrackState = "no_target" // No session
	StateTracking TrackState = "tracking"  // Last visual update succeeded
	StateCoasting TrackState = "coasting"  // Visual tracker lost, extrapolating
)

// Point is a 2D position in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Region is an axis-aligned rectangle in integer pixel units.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Valid reports whether the region has a positive extent.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Center returns the region centre, halving width and height in integer
// arithmetic.
func (r Region) Center() Point {
	return Point{
		X: float64(r.X + r.Width/2),
		Y: float64(r.Y + r.Height/2),
	}
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// RegionFromRect converts an image.Rectangle to a Region.
func RegionFromRect(rect image.Rectangle) Region {
	rect = rect.Canon()
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}

// RegionAround returns a size×size region centred on p. Coordinates are
// truncated toward zero.
func RegionAround(p Point, size int) Region {
	half := size / 2
	return Region{X: int(p.X) - half, Y: int(p.Y) - half, Width: size, Height: size}
}

// RegionFromClick derives the selection region for a pointer click.
func RegionFromClick(x, y, size int) Region {
	return RegionAround(Point{X: float64(x), Y: float64(y)}, size)
}

// ParseRegion parses "x,y,w,h" into a valid Region.
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	r := Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if !r.Valid() {
		return Region{}, fmt.Errorf("region %q: %w", s, ErrInvalidRegion)
	}
	return r, nil
}
