package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// CrossVS returns a x s, the vector a rotated clockwise and scaled by s.
func CrossVS(a mgl64.Vec2, s float64) mgl64.Vec2 {
	return mgl64.Vec2{s * a.Y(), -s * a.X()}
}

// CrossSV returns s x a, the vector a rotated counter-clockwise and scaled by s.
func CrossSV(s float64, a mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * a.Y(), s * a.X()}
}

func MinVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Min(a.X(), b.X()), math.Min(a.Y(), b.Y())}
}

func MaxVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Max(a.X(), b.X()), math.Max(a.Y(), b.Y())}
}

func AbsVec(a mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Abs(a.X()), math.Abs(a.Y())}
}

// Normalize returns the unit vector of v and its original length.
// A near-zero vector is returned unchanged with length 0.
func Normalize(v mgl64.Vec2) (mgl64.Vec2, float64) {
	length := v.Len()
	if length < 1e-12 {
		return v, 0
	}
	return v.Mul(1.0 / length), length
}

// DistanceSquared between two points.
func DistanceSquared(a, b mgl64.Vec2) float64 {
	return a.Sub(b).LenSqr()
}
