package controller

import (
	"math"

	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// TensorDryFriction opposes the motion of its bodies along their local
// axes. The counter impulse is T times the local momentum, clamped per axis
// to MaxCounterForce*dt.
//
// Some useful tensors, as (row1; row2):
//
//	(-a 0; 0 -a)  isotropic dry friction of strength a
//	(0 a; -a 0)   force at right angles to the velocity
//	(-a 0; 0 -b)  different x and y friction, e.g. top-down wheels
type TensorDryFriction struct {
	BodyList

	T               mgl64.Mat2
	MaxCounterForce mgl64.Vec2
}

func NewTensorDryFriction(t mgl64.Mat2, maxCounterForce mgl64.Vec2) *TensorDryFriction {
	return &TensorDryFriction{T: t, MaxCounterForce: maxCounterForce}
}

// SetAxisFrictionForce resists the whole local momentum, capped to fx along
// the local x axis and fy along the local y axis.
func (c *TensorDryFriction) SetAxisFrictionForce(fx, fy float64) {
	c.T = mgl64.Ident2().Mul(-1)
	c.MaxCounterForce = mgl64.Vec2{fx, fy}
}

func (c *TensorDryFriction) Step(dt float64) {
	if dt <= 0 {
		return
	}

	for _, body := range c.Bodies {
		if body.IsStatic() || body.IsSleeping || body.InverseMass == 0 {
			continue
		}

		localVelocity := body.Transform.InverseRotate(body.LinearVelocity)
		momentum := localVelocity.Mul(body.Mass)
		impulse := c.T.Mul2x1(momentum)

		limit := c.MaxCounterForce.Mul(dt)
		impulse = mgl64.Vec2{
			clampAbs(impulse.X(), math.Abs(limit.X())),
			clampAbs(impulse.Y(), math.Abs(limit.Y())),
		}

		body.LinearVelocity = body.LinearVelocity.Add(body.Transform.Rotate(impulse.Mul(body.InverseMass)))
	}
}

func clampAbs(v, limit float64) float64 {
	return settings.Clamp(v, -limit, limit)
}

var _ Controller = (*TensorDryFriction)(nil)
