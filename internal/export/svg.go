package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/viz"
)

const (
	background   = "#0a0a0a"
	defaultColor = "#00ff00"
)

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2   // 2 sub-pixels per char
	height := float64(canvas.Height) * scale * 4 // 4 sub-pixels per char

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	// Braille dot-to-bit mapping
	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}

	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			fill := canvas.Color[row][col]
			if fill == "" {
				fill = defaultColor
			}

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, cx, cy, dotRadius, fill)
					}
				}
			}
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// FrameToSVG writes every particle of f as a circle, projected through cam
// with the frame's cloud rotation applied. colors and sizes are the buffer's
// per-particle attributes; sizes may be nil.
func FrameToSVG(w io.Writer, f *engine.Frame, cam *interact.Camera, colors, sizes []float32, width, height int) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill-opacity="0.85">
`, width, height, width, height, background)

	n := len(f.Positions) / 3
	for i := 0; i < n; i++ {
		local := mgl64.Vec3{float64(f.Positions[i*3]), float64(f.Positions[i*3+1]), float64(f.Positions[i*3+2])}
		ndc := cam.Project(mgl64.TransformCoordinate(local, f.Transform))
		if ndc.Z() < -1 || ndc.Z() > 1 {
			continue
		}
		x := (ndc.X() + 1) / 2 * float64(width)
		y := (1 - ndc.Y()) / 2 * float64(height)

		fill := defaultColor
		if len(colors) >= (i+1)*3 {
			fill = colorful.Color{R: float64(colors[i*3]), G: float64(colors[i*3+1]), B: float64(colors[i*3+2])}.Clamped().Hex()
		}
		r := 0.6
		if i < len(sizes) {
			r = float64(sizes[i]) * 0.6
		}
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.2f" fill="%s"/>
`, x, y, r, fill)
	}

	sb.WriteString("</g>\n</svg>")
	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesToSVG plots a recorded column against time as a polyline.
func SeriesToSVG(values, times []float64, width, height int, strokeColor string) string {
	n := min(len(values), len(times))
	if n < 2 {
		return ""
	}

	// Find bounds
	minX, maxX := times[0], times[0]
	minY, maxY := values[0], values[0]
	for i := 0; i < n; i++ {
		minX, maxX = min(minX, times[i]), max(maxX, times[i])
		minY, maxY = min(minY, values[i]), max(maxY, values[i])
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := 0; i < n; i++ {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)

		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
