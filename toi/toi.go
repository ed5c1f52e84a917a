// Package toi computes the time of impact between two moving convex shapes
// by conservative advancement over their sweeps.
package toi

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/gjk"
	"github.com/akmonengine/impact/settings"
)

// Input describes two shapes moving along their sweeps over the same time
// interval. Tolerance is the target separation; zero uses settings.TOISlop.
type Input struct {
	ShapeA actor.ShapeInterface
	SweepA actor.Sweep
	ShapeB actor.ShapeInterface
	SweepB actor.Sweep

	Tolerance float64
}

// Statistics accumulate over calls; they are only read for debug logging.
// Each world owns its own instance.
type Statistics struct {
	Calls         int
	Iterations    int
	MaxIterations int
}

// Reset clears the counters
func (s *Statistics) Reset() {
	*s = Statistics{}
}

func (s *Statistics) record(iterations int) {
	if s == nil {
		return
	}
	s.Calls++
	s.Iterations += iterations
	s.MaxIterations = max(s.MaxIterations, iterations)
}

// TimeOfImpact is Compute without statistics
func TimeOfImpact(input Input) float64 {
	return Compute(input, nil)
}

// Compute returns the fraction alpha in [0, 1] of the remaining sweep
// interval at which the shapes first come within tolerance of each other.
// A result of 1 means no impact was found before the end of the sweeps.
// Both sweeps must share the same T0.
func Compute(input Input, stats *Statistics) float64 {
	sweepA := input.SweepA
	sweepB := input.SweepB

	settings.Assert(sweepA.T0 == sweepB.T0, "sweeps start at different times: %v and %v", sweepA.T0, sweepB.T0)
	settings.Assert(1.0-sweepA.T0 > settings.Epsilon, "sweep already reached the end of the step")

	tolerance := input.Tolerance
	if tolerance <= 0 {
		tolerance = settings.TOISlop
	}

	rA := input.ShapeA.ComputeSweepRadius(sweepA.LocalCenter)
	rB := input.ShapeB.ComputeSweepRadius(sweepB.LocalCenter)

	proxyA := gjk.NewDistanceProxy(input.ShapeA)
	proxyB := gjk.NewDistanceProxy(input.ShapeB)

	var cache gjk.SimplexCache
	distanceInput := gjk.DistanceInput{
		ProxyA:   proxyA,
		ProxyB:   proxyB,
		UseRadii: true,
	}

	alpha := 0.0
	target := 0.0
	iter := 0

	for iter < settings.MaxTOIIterations {
		t := (1.0-alpha)*sweepA.T0 + alpha
		xfA := sweepA.Transform(t)
		xfB := sweepB.Transform(t)

		distanceInput.TransformA = xfA
		distanceInput.TransformB = xfB
		output := gjk.Distance(&cache, distanceInput)

		if iter == 0 {
			// Pick a target that leaves a buffer and never drives to zero.
			if output.Distance > 2.0*tolerance {
				target = 1.5 * tolerance
			} else {
				target = math.Max(0.05*tolerance, output.Distance-0.5*tolerance)
			}
		}

		if output.Distance-target < 0.5*tolerance {
			iter++
			break
		}

		normal, _ := actor.Normalize(output.PointB.Sub(output.PointA))

		// Upper bound of the approach speed along the normal.
		approachVelocity := normal.Dot(sweepA.C.Sub(sweepA.C0).Sub(sweepB.C.Sub(sweepB.C0))) +
			math.Abs(sweepA.A-sweepA.A0)*rA + math.Abs(sweepB.A-sweepB.A0)*rB

		if math.Abs(approachVelocity) < settings.Epsilon {
			alpha = 1.0
			iter++
			break
		}

		newAlpha := alpha + (output.Distance-target)/approachVelocity

		if newAlpha < 0.0 || 1.0 < newAlpha {
			alpha = 1.0
			iter++
			break
		}

		if newAlpha < (1.0+100.0*settings.Epsilon)*alpha {
			iter++
			break
		}

		alpha = newAlpha
		iter++
	}

	stats.record(iter)

	return alpha
}
