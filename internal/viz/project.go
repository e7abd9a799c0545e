package viz

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/interact"
)

// maxDotsPerCell bounds how many particles are projected per braille cell;
// denser clouds are subsampled with a fixed stride.
const maxDotsPerCell = 6

// Projector draws frames onto a canvas through the engine's camera.
type Projector struct {
	Camera *interact.Camera
	hex    []string
}

// NewProjector caches each particle's colour once; colours never change
// after the buffer is created.
func NewProjector(cam *interact.Camera, colors []float32) *Projector {
	p := &Projector{Camera: cam, hex: make([]string, len(colors)/3)}
	for i := range p.hex {
		p.hex[i] = hexColor(colors[i*3], colors[i*3+1], colors[i*3+2])
	}
	return p
}

// ToDots maps a world point to canvas sub-pixels. ok is false when the point
// is behind the camera or outside the clip volume depth.
func (p *Projector) ToDots(c *Canvas, world mgl64.Vec3) (x, y int, ok bool) {
	ndc := p.Camera.Project(world)
	if ndc.Z() < -1 || ndc.Z() > 1 {
		return 0, 0, false
	}
	x = int((ndc.X() + 1) / 2 * float64(c.DotsWide()))
	y = int((1 - ndc.Y()) / 2 * float64(c.DotsHigh()))
	return x, y, true
}

// Draw clears c and plots the frame's particles with the cloud rotation
// applied, then marks the interaction point when it is active.
func (p *Projector) Draw(c *Canvas, f *engine.Frame, markerHex string) int {
	c.Clear()

	n := len(f.Positions) / 3
	stride := 1
	if budget := c.Width * c.Height * maxDotsPerCell; budget > 0 && n > budget {
		stride = (n + budget - 1) / budget
	}

	drawn := 0
	for i := 0; i < n; i += stride {
		local := mgl64.Vec3{float64(f.Positions[i*3]), float64(f.Positions[i*3+1]), float64(f.Positions[i*3+2])}
		world := mgl64.TransformCoordinate(local, f.Transform)
		x, y, ok := p.ToDots(c, world)
		if !ok {
			continue
		}
		hex := ""
		if i < len(p.hex) {
			hex = p.hex[i]
		}
		c.SetColor(x, y, hex)
		drawn++
	}

	if f.Interaction.Active {
		if x, y, ok := p.ToDots(c, f.Interaction.Point); ok {
			c.DrawLine(x-2, y, x+2, y, markerHex)
			c.DrawLine(x, y-2, x, y+2, markerHex)
		}
	}
	return drawn
}

func hexColor(r, g, b float32) string {
	return colorful.Color{R: float64(r), G: float64(g), B: float64(b)}.Clamped().Hex()
}
