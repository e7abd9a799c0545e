package shape

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const testParticles = 5000

func generate(t *testing.T, kind Kind, seed int64) []float32 {
	t.Helper()
	target := make([]float32, testParticles*3)
	NewGenerator(rand.New(rand.NewSource(seed))).Generate(kind, target)
	return target
}

func radii(target []float32) []float64 {
	r := make([]float64, len(target)/3)
	for i := range r {
		x, y, z := float64(target[i*3]), float64(target[i*3+1]), float64(target[i*3+2])
		r[i] = math.Sqrt(x*x + y*y + z*z)
	}
	return r
}

func TestRadiusBounds(t *testing.T) {
	const eps = 1e-3
	tests := []struct {
		kind     Kind
		min, max float64
	}{
		{Sphere, SphereRadius, SphereRadius + SphereJitter},
		{Fireworks, 0, FireworksRadius},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			for i, r := range radii(generate(t, tt.kind, 7)) {
				if r < tt.min-eps || r > tt.max+eps {
					t.Fatalf("particle %d: radius %.4f outside [%.1f, %.1f]", i, r, tt.min, tt.max)
				}
			}
		})
	}
}

func TestHeartRegressionPoint(t *testing.T) {
	x, y := HeartPoint(0)
	if x != 0 {
		t.Errorf("expected x=0 at t=0, got %f", x)
	}
	if y != 7.5 {
		t.Errorf("expected y=7.5 at t=0, got %f", y)
	}
}

func TestHeartBounds(t *testing.T) {
	target := generate(t, Heart, 3)
	for i := 0; i < testParticles; i++ {
		x, z := float64(target[i*3]), float64(target[i*3+2])
		if math.Abs(x) > HeartScale*16+1e-3 {
			t.Fatalf("particle %d: x=%.3f outside heart width", i, x)
		}
		if math.Abs(z) > HeartThickness+1e-3 {
			t.Fatalf("particle %d: z=%.3f outside thickness", i, z)
		}
	}
}

func TestFlowerBounds(t *testing.T) {
	target := generate(t, Flower, 11)
	lo := FlowerInner * 0.8
	hi := (FlowerInner + FlowerPetalLen) * 1.2
	for i := 0; i < testParticles; i++ {
		x, y, z := float64(target[i*3]), float64(target[i*3+1]), float64(target[i*3+2])
		r := math.Hypot(x, y)
		if r < lo-1e-3 || r > hi+1e-3 {
			t.Fatalf("particle %d: planar radius %.3f outside [%.1f, %.1f]", i, r, lo, hi)
		}
		if math.Abs(z) > FlowerThickness+1e-3 {
			t.Fatalf("particle %d: z=%.3f outside thickness", i, z)
		}
	}
}

func TestSaturnRingAndBody(t *testing.T) {
	target := generate(t, Saturn, 5)
	ring := 0
	for i := 0; i < testParticles; i++ {
		x := float64(target[i*3])
		// undo the tilt to recover the untilted sample
		y, z := TiltX(float64(target[i*3+1]), float64(target[i*3+2]), -SaturnTilt)

		r := math.Sqrt(x*x + y*y + z*z)
		planar := math.Hypot(x, z)
		switch {
		case planar >= SaturnRingInner-1e-2 && math.Abs(y) <= SaturnRingHeight+1e-2:
			ring++
		case r >= SaturnBodyRadius-1e-2 && r <= SaturnBodyRadius+SaturnBodyJitter+1e-2:
		default:
			t.Fatalf("particle %d (%.2f, %.2f, %.2f) is neither ring nor body", i, x, y, z)
		}
	}

	share := float64(ring) / testParticles
	if math.Abs(share-SaturnRingChance) > 0.03 {
		t.Errorf("expected ring share ~%.2f, got %.3f", SaturnRingChance, share)
	}
}

func TestFireworksKeepsCentreBias(t *testing.T) {
	mean, _ := stat.MeanStdDev(radii(generate(t, Fireworks, 9)), nil)

	// uniform radius gives mean R/2; a volume-uniform ball would give 3R/4
	if math.Abs(mean-FireworksRadius/2) > 1.5 {
		t.Errorf("expected mean radius ~%.1f, got %.2f", FireworksRadius/2, mean)
	}
}

func TestSphereIsAngularlyUniform(t *testing.T) {
	target := generate(t, Sphere, 13)
	zs := make([]float64, testParticles)
	for i := range zs {
		x, y, z := float64(target[i*3]), float64(target[i*3+1]), float64(target[i*3+2])
		zs[i] = z / math.Sqrt(x*x+y*y+z*z)
	}

	// cos(phi) uniform in [-1,1]: mean 0, variance 1/3
	mean, std := stat.MeanStdDev(zs, nil)
	if math.Abs(mean) > 0.05 {
		t.Errorf("expected mean cos(phi) ~0, got %.3f", mean)
	}
	if math.Abs(std*std-1.0/3) > 0.03 {
		t.Errorf("expected variance ~0.333, got %.3f", std*std)
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	a := generate(t, Flower, 42)
	b := generate(t, Flower, 42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestGenerateOverwritesTarget(t *testing.T) {
	target := make([]float32, 30)
	for i := range target {
		target[i] = 1000
	}
	NewGenerator(rand.New(rand.NewSource(1))).Generate(Sphere, target)
	for i, v := range target {
		if v == 1000 {
			t.Fatalf("index %d was not overwritten", i)
		}
	}
}

func TestGenerateUnknownKindPanics(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		target []float32
	}{
		{"one point", Kind(99), make([]float32, 3)},
		{"empty target", Kind(99), nil},
		{"partial point", Kind(-1), make([]float32, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic for unknown kind")
				}
			}()
			NewGenerator(nil).Generate(tt.kind, tt.target)
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range All() {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("parse %s: %v", k, err)
		}
		if got != k {
			t.Errorf("expected %s, got %s", k, got)
		}
	}

	if _, err := ParseKind("cube"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestKindNextWraps(t *testing.T) {
	if Fireworks.Next() != Sphere {
		t.Errorf("expected fireworks to wrap to sphere, got %s", Fireworks.Next())
	}
	if Sphere.Next() != Heart {
		t.Errorf("expected heart after sphere, got %s", Sphere.Next())
	}
}
