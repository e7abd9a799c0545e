// Package particle holds the flat particle arrays shared by the generator,
// the integrator and the renderers.
package particle

import (
	"fmt"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultCount = 15000

	// initial scatter cube edge
	ScatterSize = 100.0

	MinSize = 0.3
	MaxSize = 0.8
)

// Buffer stores particles as parallel arrays. Index i addresses the same
// particle in every slice. Colors and Sizes are written once by New.
type Buffer struct {
	N         int
	Positions []float32
	Targets   []float32
	Colors    []float32
	Sizes     []float32
}

// Palette describes the hue sweep used to colour the cloud.
type Palette struct {
	HueStart   float64
	HueEnd     float64
	Saturation float64
	Value      float64
}

var DefaultPalette = Palette{HueStart: 190, HueEnd: 320, Saturation: 0.75, Value: 1.0}

func New(n int, rng *rand.Rand, palette Palette) (*Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("particle count must be positive, got %d", n)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	b := &Buffer{
		N:         n,
		Positions: make([]float32, n*3),
		Targets:   make([]float32, n*3),
		Colors:    make([]float32, n*3),
		Sizes:     make([]float32, n),
	}

	for i := 0; i < n; i++ {
		for a := 0; a < 3; a++ {
			b.Positions[i*3+a] = float32((rng.Float64() - 0.5) * ScatterSize)
		}
		copy(b.Targets[i*3:i*3+3], b.Positions[i*3:i*3+3])

		c := palette.At(float64(i)/float64(n), rng.Float64())
		b.Colors[i*3] = float32(c.R)
		b.Colors[i*3+1] = float32(c.G)
		b.Colors[i*3+2] = float32(c.B)

		b.Sizes[i] = float32(MinSize + rng.Float64()*(MaxSize-MinSize))
	}

	return b, nil
}

// At returns the palette colour at fraction f in [0,1]; shade in [0,1]
// darkens the value slightly so neighbouring particles are not identical.
func (p Palette) At(f, shade float64) colorful.Color {
	h := p.HueStart + (p.HueEnd-p.HueStart)*f
	v := p.Value * (0.85 + 0.15*shade)
	return colorful.Hsv(h, p.Saturation, v).Clamped()
}

// Position returns particle i's current position.
func (b *Buffer) Position(i int) (x, y, z float32) {
	return b.Positions[i*3], b.Positions[i*3+1], b.Positions[i*3+2]
}

// Target returns particle i's shape target.
func (b *Buffer) Target(i int) (x, y, z float32) {
	return b.Targets[i*3], b.Targets[i*3+1], b.Targets[i*3+2]
}

// Consistent reports whether every array matches N.
func (b *Buffer) Consistent() bool {
	return len(b.Positions) == b.N*3 && len(b.Targets) == b.N*3 &&
		len(b.Colors) == b.N*3 && len(b.Sizes) == b.N
}

// Hex returns particle i's colour as #rrggbb.
func (b *Buffer) Hex(i int) string {
	c := colorful.Color{R: float64(b.Colors[i*3]), G: float64(b.Colors[i*3+1]), B: float64(b.Colors[i*3+2])}
	return c.Hex()
}
