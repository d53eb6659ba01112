package viz

import (
	"math"

	"github.com/san-kum/linesim/internal/sim"
	"github.com/san-kum/linesim/internal/track"
)

// Viewport maps world coordinates of a square map onto canvas dots. World
// y grows upward, dot rows grow downward.
type Viewport struct {
	Size          float64
	Width, Height int
}

func NewViewport(c *Canvas, size float64) Viewport {
	w, h := c.Dots()
	return Viewport{Size: size, Width: w, Height: h}
}

func (v Viewport) Project(x, y float64) (int, int) {
	if v.Size <= 0 {
		return -1, -1
	}
	px := int(math.Floor(x / v.Size * float64(v.Width)))
	py := int(math.Floor((v.Size - y) / v.Size * float64(v.Height)))
	return px, py
}

// DrawTrack sets a dot for every dot whose nearest bitmap pixel is black.
func DrawTrack(c *Canvas, b *track.Bitmap) {
	w, h := c.Dots()
	side := float64(max(b.Width(), b.Height()))
	for y := 0; y < h; y++ {
		py := int((float64(y) + 0.5) / float64(h) * side)
		for x := 0; x < w; x++ {
			px := int((float64(x) + 0.5) / float64(w) * side)
			if !b.Contains(px, py) {
				continue
			}
			white, err := b.Pixel(px, py)
			if err == nil && !white {
				c.Set(x, y)
			}
		}
	}
}

// DrawPath connects consecutive points with lines.
func DrawPath(c *Canvas, v Viewport, points []sim.Point) {
	for i := 1; i < len(points); i++ {
		x0, y0 := v.Project(points[i-1].X, points[i-1].Y)
		x1, y1 := v.Project(points[i].X, points[i].Y)
		c.DrawLine(x0, y0, x1, y1)
	}
}

// DrawRobot draws the robot body and a line to each sensor.
func DrawRobot(c *Canvas, v Viewport, s *sim.Simulator) {
	p := s.Pose()
	x, y := v.Project(p.X, p.Y)
	c.DrawBox(x, y, 1)
	for _, sp := range s.SensorPositions() {
		sx, sy := v.Project(sp.X, sp.Y)
		c.DrawLine(x, y, sx, sy)
	}
}
