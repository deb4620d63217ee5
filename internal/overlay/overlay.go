// Package overlay turns a tracking result into the primitives drawn over
// the video frame. It has no OpenCV dependency so the layout can be
// tested without a display.
package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/banshee-data/trackcam/internal/tracking"
)

// Kind is the drawing primitive of a Shape.
type Kind int

const (
	KindCircle Kind = iota
	KindRect
	KindLine
)

// Shape is one drawing primitive. Thickness < 0 means filled.
type Shape struct {
	Kind      Kind
	Center    image.Point // KindCircle
	Radius    int         // KindCircle
	Rect      image.Rectangle
	From, To  image.Point // KindLine
	Color     color.RGBA
	Thickness int
}

// Colours, as RGBA. OpenCV bindings convert these to BGR scalars.
var (
	ColorPredictedTracking = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	ColorPredictedCoasting = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	ColorCorrected         = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	ColorMotion            = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	ColorTrackedRegion     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	ColorCoastRegion       = color.RGBA{R: 0, G: 0, B: 0, A: 0}
)

const (
	pointRadius    = 5
	lineThickness  = 2
	arrowTipLength = 0.3
	filled         = -1
)

// Build returns the shapes for res in drawing order. It returns nil when
// there is nothing to draw.
func Build(res tracking.Result) []Shape {
	var shapes []Shape
	switch res.State {
	case tracking.StateTracking:
		if res.Predicted != nil {
			shapes = append(shapes, dot(*res.Predicted, ColorPredictedTracking))
		}
		if res.Corrected != nil {
			shapes = append(shapes, dot(*res.Corrected, ColorCorrected))
			if res.PrevCorrected != nil {
				shapes = append(shapes, Arrow(pixel(*res.PrevCorrected), pixel(*res.Corrected), arrowTipLength, ColorMotion)...)
			}
		}
		if res.Region != nil {
			shapes = append(shapes, Shape{Kind: KindRect, Rect: res.Region.Rect(), Color: ColorTrackedRegion, Thickness: lineThickness})
		}
	case tracking.StateCoasting:
		if res.Predicted != nil {
			shapes = append(shapes, dot(*res.Predicted, ColorPredictedCoasting))
		}
		if res.CoastRegion != nil {
			shapes = append(shapes, Shape{Kind: KindRect, Rect: res.CoastRegion.Rect(), Color: ColorCoastRegion, Thickness: lineThickness})
		}
	}
	return shapes
}

func dot(p tracking.Point, c color.RGBA) Shape {
	return Shape{Kind: KindCircle, Center: pixel(p), Radius: pointRadius, Color: c, Thickness: filled}
}

// pixel truncates p toward zero.
func pixel(p tracking.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

// Arrow returns the line segments of an arrow from -> to whose head
// strokes are tip times the shaft length, at 45° either side of the shaft.
// A zero-length arrow is drawn as its shaft only.
func Arrow(from, to image.Point, tip float64, c color.RGBA) []Shape {
	shapes := []Shape{{Kind: KindLine, From: from, To: to, Color: c, Thickness: lineThickness}}

	dx := float64(from.X - to.X)
	dy := float64(from.Y - to.Y)
	size := math.Hypot(dx, dy) * tip
	if size == 0 {
		return shapes
	}
	angle := math.Atan2(dy, dx)
	for _, side := range []float64{math.Pi / 4, -math.Pi / 4} {
		head := image.Pt(
			int(math.Round(float64(to.X)+size*math.Cos(angle+side))),
			int(math.Round(float64(to.Y)+size*math.Sin(angle+side))),
		)
		shapes = append(shapes, Shape{Kind: KindLine, From: head, To: to, Color: c, Thickness: lineThickness})
	}
	return shapes
}
