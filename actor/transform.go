package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a placement in 2D space: a translation and a rotation
type Transform struct {
	Position mgl64.Vec2
	Rotation mgl64.Mat2
}

// NewTransform creates a transform from a position and an angle in radians
func NewTransform(position mgl64.Vec2, angle float64) Transform {
	return Transform{
		Position: position,
		Rotation: mgl64.Rotate2D(angle),
	}
}

// IdentityTransform places a shape at the origin with no rotation
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.Ident2()}
}

// Apply maps a local point to world space
func (t Transform) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Mul2x1(v).Add(t.Position)
}

// ApplyInverse maps a world point to local space
func (t Transform) ApplyInverse(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Transpose().Mul2x1(v.Sub(t.Position))
}

// Rotate rotates a local direction into world space
func (t Transform) Rotate(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Mul2x1(v)
}

// InverseRotate rotates a world direction into local space
func (t Transform) InverseRotate(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Transpose().Mul2x1(v)
}

// Angle extracts the rotation angle in radians
func (t Transform) Angle() float64 {
	// Column-major: the first column is (cos, sin).
	return math.Atan2(t.Rotation[1], t.Rotation[0])
}
