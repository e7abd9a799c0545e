// Package interact turns pointer and hand input into a world-space
// interaction point.
package interact

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDepth is the z coordinate given to every interaction point.
const DefaultDepth = 30.0

// rays closer than this to parallel with the z=0 plane are ignored
const parallelEpsilon = 1e-9

type Locator struct {
	Camera *Camera
	Depth  float64

	last mgl64.Vec3
}

func NewLocator(cam *Camera) *Locator {
	return &Locator{Camera: cam, Depth: DefaultDepth, last: mgl64.Vec3{0, 0, DefaultDepth}}
}

// Locate resolves one frame of input for mode. A nil sample for the
// selected mode yields an inactive state.
func (l *Locator) Locate(mode Mode, pointer *PointerSample, hand *HandSample) State {
	st := State{Mode: mode, Point: l.last}

	switch mode {
	case Pointer:
		if pointer == nil {
			return st
		}
		if p, ok := l.pointerPoint(pointer.NDC); ok {
			st.Point = p
		}
		st.Active = true
		st.Attracting = pointer.Pressed
	case Hand:
		if hand == nil || !hand.Detected {
			return st
		}
		st.Point = l.handPoint(hand.NormalizedPosition)
		st.Active = true
		st.Attracting = hand.IsPinching
	}

	l.last = st.Point
	return st
}

// pointerPoint casts a ray through ndc and intersects it with z=0.
func (l *Locator) pointerPoint(ndc [2]float64) (mgl64.Vec3, bool) {
	origin := l.Camera.Position
	through := l.Camera.Unproject(mgl64.Vec3{ndc[0], ndc[1], 0.5})
	dir := through.Sub(origin).Normalize()
	if math.Abs(dir.Z()) < parallelEpsilon {
		return mgl64.Vec3{}, false
	}

	dist := -origin.Z() / dir.Z()
	hit := origin.Add(dir.Mul(dist))
	return mgl64.Vec3{hit.X(), hit.Y(), l.Depth}, true
}

// handPoint scales a normalised image position to the visible extents.
func (l *Locator) handPoint(norm [2]float64) mgl64.Vec3 {
	w, h := l.Camera.VisibleExtents()
	x := (norm[0] - 0.5) * w
	y := -(norm[1] - 0.5) * h
	return mgl64.Vec3{x, y, l.Depth}
}
