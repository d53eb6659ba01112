package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/linesim/internal/sim"
	"github.com/san-kum/linesim/internal/track"
	"github.com/san-kum/linesim/internal/viz"
)

var palette = []string{"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4", "#42d4f4", "#f032e6", "#9a6324"}

// TrajectoriesSVG draws the track and one polyline per trajectory in world
// units. Black track pixels become horizontal runs of rects.
func TrajectoriesSVG(m *track.Map, trajectories []sim.Trajectory) (string, error) {
	if m == nil || m.Bitmap == nil {
		return "", track.ErrNoSource
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %g %g">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<g fill="#000000" shape-rendering="crispEdges">
`, m.Size, m.Size, m.Size, m.Size)

	if err := writeTrack(&sb, m); err != nil {
		return "", err
	}
	sb.WriteString("</g>\n")

	for i, t := range trajectories {
		points := t.RenderPoints(m.Size)
		if len(points) < 2 {
			continue
		}
		fmt.Fprintf(&sb, `<polyline id="robot-%d" fill="none" stroke="%s" stroke-width="1" points="`, t.Index, palette[i%len(palette)])
		for j, p := range points {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.2f,%.2f", p.X, p.Y)
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func writeTrack(sb *strings.Builder, m *track.Map) error {
	b, s := m.Bitmap, m.Scale
	for y := 0; y < b.Height(); y++ {
		start := -1
		for x := 0; x <= b.Width(); x++ {
			black := false
			if x < b.Width() {
				white, err := b.Pixel(x, y)
				if err != nil {
					return err
				}
				black = !white
			}
			switch {
			case black && start < 0:
				start = x
			case !black && start >= 0:
				fmt.Fprintf(sb, `<rect x="%g" y="%g" width="%g" height="%g"/>`+"\n",
					float64(start)*s, float64(y)*s, float64(x-start)*s, s)
				start = -1
			}
		}
	}
	return nil
}

// CanvasToSVG converts a braille canvas to SVG dots, one circle per set dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	w, h := canvas.Dots()
	width, height := float64(w)*scale, float64(h)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	r := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
