package actor

import "github.com/go-gl/mathgl/mgl64"

// RayCastInput describes the segment P1 + t*(P2-P1), t in [0, MaxFraction].
type RayCastInput struct {
	P1, P2      mgl64.Vec2
	MaxFraction float64
}

// RayCastOutput holds the world normal and the fraction of the hit along the ray.
type RayCastOutput struct {
	Normal   mgl64.Vec2
	Fraction float64
}
