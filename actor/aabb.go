package actor

import (
	"math"

	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// IsValid reports whether the bounds are sorted and finite
func (a AABB) IsValid() bool {
	d := a.Max.Sub(a.Min)
	if d.X() < 0 || d.Y() < 0 {
		return false
	}
	for _, v := range [4]float64{a.Min.X(), a.Min.Y(), a.Max.X(), a.Max.Y()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (a AABB) Center() mgl64.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half-widths
func (a AABB) Extents() mgl64.Vec2 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Perimeter is the surface cost metric used by the dynamic tree
func (a AABB) Perimeter() float64 {
	wx := a.Max.X() - a.Min.X()
	wy := a.Max.Y() - a.Min.Y()
	return 2.0 * (wx + wy)
}

// Combine returns the union of two AABBs
func (a AABB) Combine(other AABB) AABB {
	return AABB{Min: MinVec(a.Min, other.Min), Max: MaxVec(a.Max, other.Max)}
}

// Contains checks if other is fully inside the AABB
func (a AABB) Contains(other AABB) bool {
	return a.Min.X() <= other.Min.X() && a.Min.Y() <= other.Min.Y() &&
		other.Max.X() <= a.Max.X() && other.Max.Y() <= a.Max.Y()
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec2) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y()
}

// Overlaps checks if two AABBs overlap, touching boxes included
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y()
}

// Fatten grows the box by margin on every side
func (a AABB) Fatten(margin float64) AABB {
	r := mgl64.Vec2{margin, margin}
	return AABB{Min: a.Min.Sub(r), Max: a.Max.Add(r)}
}

// RayCast clips the ray against the box slabs. The normal is the face normal
// at the entry point.
func (a AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -math.MaxFloat64
	tmax := math.MaxFloat64

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := AbsVec(d)

	var normal mgl64.Vec2

	for i := 0; i < 2; i++ {
		if absD[i] < settings.Epsilon {
			// Parallel.
			if p[i] < a.Min[i] || a.Max[i] < p[i] {
				return RayCastOutput{}, false
			}
			continue
		}

		inv := 1.0 / d[i]
		t1 := (a.Min[i] - p[i]) * inv
		t2 := (a.Max[i] - p[i]) * inv

		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		if t1 > tmin {
			normal = mgl64.Vec2{}
			normal[i] = s
			tmin = t1
		}
		tmax = math.Min(tmax, t2)

		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	// Starting inside the box or hitting beyond the max fraction is a miss.
	if tmin < 0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}

	return RayCastOutput{Fraction: tmin, Normal: normal}, true
}
