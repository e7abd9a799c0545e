package shape

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	SphereRadius = 25.0
	SphereJitter = 2.0

	HeartScale     = 1.5
	HeartThickness = 2.5

	FlowerPetals    = 4
	FlowerInner     = 15.0
	FlowerPetalLen  = 20.0
	FlowerThickness = 5.0

	SaturnRingChance = 0.7
	SaturnRingInner  = 35.0
	SaturnRingWidth  = 15.0
	SaturnRingHeight = 1.0
	SaturnBodyRadius = 12.0
	SaturnBodyJitter = 1.0
	SaturnTilt       = 0.4

	FireworksRadius = 50.0
)

// Generator samples target points. It is not safe for concurrent use; the
// random source belongs to the generator alone.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Generator{rng: rng}
}

// Generate overwrites every point of target (3 floats per particle) with a
// fresh sample of kind. It panics on a kind outside the enum, even when
// target holds no points.
func (g *Generator) Generate(kind Kind, target []float32) {
	if !kind.Valid() {
		panic(fmt.Sprintf("shape: unhandled kind %d", int(kind)))
	}
	n := len(target) / 3
	for i := 0; i < n; i++ {
		x, y, z := g.Point(kind)
		target[i*3] = float32(x)
		target[i*3+1] = float32(y)
		target[i*3+2] = float32(z)
	}
}

// Point draws a single sample of kind.
func (g *Generator) Point(kind Kind) (x, y, z float64) {
	switch kind {
	case Sphere:
		return g.sphere()
	case Heart:
		return g.heart()
	case Flower:
		return g.flower()
	case Saturn:
		return g.saturn()
	case Fireworks:
		return g.fireworks()
	default:
		panic(fmt.Sprintf("shape: unhandled kind %d", int(kind)))
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// angles returns an azimuth in [0, 2π) and a polar angle whose cosine is
// uniform in [-1, 1].
func (g *Generator) angles() (theta, phi float64) {
	theta = g.uniform(0, 2*math.Pi)
	phi = math.Acos(2*g.rng.Float64() - 1)
	return theta, phi
}

func (g *Generator) sphere() (float64, float64, float64) {
	r := SphereRadius + g.uniform(0, SphereJitter)
	theta, phi := g.angles()
	return SpherePoint(r, theta, phi)
}

func (g *Generator) heart() (float64, float64, float64) {
	x, y := HeartPoint(g.uniform(0, 2*math.Pi))
	return x, y, g.uniform(-HeartThickness, HeartThickness)
}

func (g *Generator) flower() (float64, float64, float64) {
	theta := g.uniform(0, 2*math.Pi)
	x, y := FlowerPoint(theta, 0.8+g.uniform(0, 0.4))
	return x, y, g.uniform(-FlowerThickness, FlowerThickness)
}

func (g *Generator) saturn() (float64, float64, float64) {
	var x, y, z float64
	if g.rng.Float64() < SaturnRingChance {
		angle := g.uniform(0, 2*math.Pi)
		dist := SaturnRingInner + g.uniform(0, SaturnRingWidth)
		x = dist * math.Cos(angle)
		z = dist * math.Sin(angle)
		y = g.uniform(-SaturnRingHeight, SaturnRingHeight)
	} else {
		r := SaturnBodyRadius + g.uniform(0, SaturnBodyJitter)
		theta, phi := g.angles()
		x, y, z = SpherePoint(r, theta, phi)
	}
	y, z = TiltX(y, z, SaturnTilt)
	return x, y, z
}

// fireworks draws the radius uniformly, so the burst is denser near the
// centre than a volume-uniform ball would be.
func (g *Generator) fireworks() (float64, float64, float64) {
	r := g.uniform(0, FireworksRadius)
	theta, phi := g.angles()
	return SpherePoint(r, theta, phi)
}

// SpherePoint converts spherical coordinates to cartesian.
func SpherePoint(r, theta, phi float64) (x, y, z float64) {
	sinPhi := math.Sin(phi)
	return r * sinPhi * math.Cos(theta), r * sinPhi * math.Sin(theta), r * math.Cos(phi)
}

// HeartPoint evaluates the scaled heart curve at t.
func HeartPoint(t float64) (x, y float64) {
	s := math.Sin(t)
	x = HeartScale * 16 * s * s * s
	y = HeartScale * (13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t))
	return x, y
}

// FlowerPoint evaluates the rose curve at theta with a radial spread factor.
func FlowerPoint(theta, spread float64) (x, y float64) {
	base := math.Cos(FlowerPetals * theta)
	r := (FlowerInner + math.Abs(base)*FlowerPetalLen) * spread
	return r * math.Cos(theta), r * math.Sin(theta)
}

// TiltX rotates (y, z) about the x axis by angle radians.
func TiltX(y, z, angle float64) (float64, float64) {
	c, s := math.Cos(angle), math.Sin(angle)
	return y*c - z*s, y*s + z*c
}
