package actor

import (
	"math"

	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Sweep describes the motion of a body over a step for continuous collision.
// The center and angle are linearly interpolated between the start values
// (C0, A0) reached at time T0 and the end values (C, A) reached at time 1.
// The body origin does not follow the true curved path, which keeps the
// surrogate conservative.
type Sweep struct {
	LocalCenter mgl64.Vec2 // center of mass, local to the body
	C0, C       mgl64.Vec2 // center of mass at T0 and at the end of the step
	A0, A       float64    // angle at T0 and at the end of the step
	T0          float64    // time already reached, normally 0
}

// Transform returns the interpolated placement at time t in [T0, 1].
func (s Sweep) Transform(t float64) Transform {
	c := s.C
	a := s.A
	if 1.0-s.T0 > settings.Epsilon {
		alpha := (t - s.T0) / (1.0 - s.T0)
		c = s.C0.Mul(1.0 - alpha).Add(s.C.Mul(alpha))
		a = (1.0-alpha)*s.A0 + alpha*s.A
	}

	xf := NewTransform(c, a)
	// Shift to the body origin.
	xf.Position = c.Sub(xf.Rotation.Mul2x1(s.LocalCenter))

	return xf
}

// Advance moves the start of the sweep forward to time t, leaving the end unchanged.
func (s *Sweep) Advance(t float64) {
	if s.T0 < t && 1.0-s.T0 > settings.Epsilon {
		alpha := (t - s.T0) / (1.0 - s.T0)
		s.C0 = s.C0.Mul(1.0 - alpha).Add(s.C.Mul(alpha))
		s.A0 = (1.0-alpha)*s.A0 + alpha*s.A
		s.T0 = t
	}
}

// Normalize wraps A0 into [-pi, pi] and shifts A by the same amount.
func (s *Sweep) Normalize() {
	twoPi := 2.0 * math.Pi
	d := twoPi * math.Floor((s.A0+math.Pi)/twoPi)
	s.A0 -= d
	s.A -= d
}
