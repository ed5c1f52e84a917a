// Package settings holds the tunable constants shared by the collision packages.
//
// Lengths are in meters. The values are tuned for moving objects between
// 0.1 and 10 meters; static geometry may be far larger.
package settings

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	// LinearSlop is the collision and constraint tolerance. It is chosen to be
	// numerically significant but visually insignificant.
	LinearSlop = 0.005
	// TOISlop is the separation target used by continuous collision.
	TOISlop = 8.0 * LinearSlop
)

const (
	// AABBExtension fattens proxy AABBs so small motions do not touch the tree.
	AABBExtension = 0.1
	// AABBMultiplier scales the displacement used to predictively extend a moved proxy.
	AABBMultiplier = 2.0
)

const (
	MaxManifoldPoints  = 2
	MaxPolygonVertices = 8
	// MaxTOIIterations bounds conservative advancement.
	MaxTOIIterations = 1000
	// MaxDistanceIterations bounds the simplex refinement of the distance query.
	MaxDistanceIterations = 20
	// MaxTOIContacts bounds the number of impacts resolved in a single step.
	MaxTOIContacts = 32
)

const (
	TimeToSleep           = 0.5
	LinearSleepTolerance  = 0.01
	AngularSleepTolerance = 2.0 / 180.0 * math.Pi
)

// Epsilon is the float64 machine epsilon.
const Epsilon = 2.220446049250313e-16

// Assert panics when cond is false. It flags caller defects such as stale
// proxy ids, never recoverable conditions.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("impact: assertion failed: "+format, args...))
	}
}

// Clamp bounds v to [lo, hi]
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
