package interact

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera looking at the world origin.
type Camera struct {
	Position mgl64.Vec3
	Up       mgl64.Vec3
	FOV      float64 // vertical, degrees
	Aspect   float64
	Near     float64
	Far      float64
}

func NewCamera(distance, fov, aspect float64) *Camera {
	return &Camera{
		Position: mgl64.Vec3{0, 0, distance},
		Up:       mgl64.Vec3{0, 1, 0},
		FOV:      fov,
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
	}
}

func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position, mgl64.Vec3{}, c.Up)
}

func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Resize keeps the aspect ratio in sync with the viewport.
func (c *Camera) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float64(width) / float64(height)
}

// Distance is the camera's distance from the origin along the view axis.
func (c *Camera) Distance() float64 { return c.Position.Z() }

// VisibleExtents returns the world-space width and height visible at the
// origin plane.
func (c *Camera) VisibleExtents() (width, height float64) {
	height = 2 * math.Tan(mgl64.DegToRad(c.FOV)/2) * c.Distance()
	return height * c.Aspect, height
}

// Unproject maps a normalised device coordinate back to world space.
func (c *Camera) Unproject(ndc mgl64.Vec3) mgl64.Vec3 {
	inv := c.Projection().Mul4(c.View()).Inv()
	return mgl64.TransformCoordinate(ndc, inv)
}

// Project maps a world point to normalised device coordinates.
func (c *Camera) Project(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, c.Projection().Mul4(c.View()))
}
