package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trackcam/internal/tracking"
)

func xys(points []tracking.Point) plotter.XYs {
	out := make(plotter.XYs, 0, len(points))
	for _, p := range points {
		out = append(out, plotter.XY{X: p.X, Y: p.Y})
	}
	return out
}

// SavePNG writes a static plot of tr to path. The format follows the file
// extension (.png, .svg, .pdf).
func SavePNG(path string, tr Trajectory) error {
	if tr.Empty() {
		return ErrEmptyTrajectory
	}

	p := plot.New()
	p.Title.Text = "Session " + tr.SessionID
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	p.Add(plotter.NewGrid())

	if len(tr.Corrected) > 0 {
		line, err := plotter.NewLine(xys(tr.Corrected))
		if err != nil {
			return fmt.Errorf("failed to create tracked line: %w", err)
		}
		line.Color = color.RGBA{R: 0, G: 200, B: 83, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("tracked", line)
	}
	if len(tr.Coasted) > 0 {
		pts, err := plotter.NewScatter(xys(tr.Coasted))
		if err != nil {
			return fmt.Errorf("failed to create coasting scatter: %w", err)
		}
		pts.GlyphStyle.Color = color.RGBA{R: 255, G: 82, B: 82, A: 255}
		pts.GlyphStyle.Radius = vg.Points(2)
		p.Add(pts)
		p.Legend.Add("coasting", pts)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
