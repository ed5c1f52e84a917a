// Package manifold describes how two shapes touch and computes it for each
// supported shape pair.
//
// A manifold stores its points in local coordinates so it stays meaningful
// while the bodies move: solvers rebuild world points every iteration from
// the current transforms with WorldManifold. Each point carries an ID built
// from the features (vertex or face) that produced it, which is what lets
// accumulated impulses survive from one step to the next.
package manifold

import (
	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Type selects how LocalNormal and LocalPoint are interpreted
type Type uint8

const (
	// Circles: LocalPoint is the center of the first circle, the point is
	// the center of the second one. LocalNormal is unused.
	Circles Type = iota
	// FaceA: the reference face lies on shape A. LocalNormal and LocalPoint
	// are expressed in A's frame, the points in B's frame.
	FaceA
	// FaceB mirrors FaceA with the reference face on shape B.
	FaceB
)

func (t Type) String() string {
	switch t {
	case Circles:
		return "circles"
	case FaceA:
		return "faceA"
	case FaceB:
		return "faceB"
	}
	return "unknown"
}

// FeatureType tells whether a feature index refers to a vertex or a face
type FeatureType uint8

const (
	FeatureVertex FeatureType = iota
	FeatureFace
)

// ID identifies a contact point by the features of both shapes that
// generated it.
type ID struct {
	IndexA uint8
	IndexB uint8
	TypeA  FeatureType
	TypeB  FeatureType
}

// Key packs the ID into a single comparable value
func (id ID) Key() uint32 {
	return uint32(id.IndexA) | uint32(id.IndexB)<<8 | uint32(id.TypeA)<<16 | uint32(id.TypeB)<<24
}

// swap exchanges the A and B features, for manifolds computed with the shapes flipped
func (id ID) swap() ID {
	return ID{IndexA: id.IndexB, IndexB: id.IndexA, TypeA: id.TypeB, TypeB: id.TypeA}
}

// Point is a single contact point
type Point struct {
	// LocalPoint depends on the manifold type:
	//   - Circles: the center of circle B, local to B
	//   - FaceA: the clip point, local to B
	//   - FaceB: the clip point, local to A
	LocalPoint mgl64.Vec2

	// Accumulated impulses, read and written by the solver for warm starting
	NormalImpulse  float64
	TangentImpulse float64

	ID ID
}

// Manifold holds up to MaxManifoldPoints contact points sharing one normal
type Manifold struct {
	Points      [settings.MaxManifoldPoints]Point
	LocalNormal mgl64.Vec2
	LocalPoint  mgl64.Vec2
	Type        Type
	PointCount  int
}

// Reset drops all points
func (m *Manifold) Reset() {
	*m = Manifold{}
}

// WorldManifold is a manifold evaluated at specific transforms
type WorldManifold struct {
	// Normal points from A to B
	Normal      mgl64.Vec2
	Points      [settings.MaxManifoldPoints]mgl64.Vec2
	Separations [settings.MaxManifoldPoints]float64
}

// Initialize computes the world normal and points. Each point sits halfway
// between the two surfaces; a negative separation means penetration.
func (wm *WorldManifold) Initialize(m *Manifold, xfA actor.Transform, radiusA float64, xfB actor.Transform, radiusB float64) {
	if m.PointCount == 0 {
		return
	}

	switch m.Type {
	case Circles:
		wm.Normal = mgl64.Vec2{1, 0}
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if actor.DistanceSquared(pointA, pointB) > settings.Epsilon*settings.Epsilon {
			wm.Normal, _ = actor.Normalize(pointB.Sub(pointA))
		}

		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case FaceA:
		wm.Normal = xfA.Rotate(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)

		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case FaceB:
		wm.Normal = xfB.Rotate(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)

		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}

		// Ensure the normal points from A to B.
		wm.Normal = wm.Normal.Mul(-1)
	}
}

// PointState is the fate of a point between two manifolds
type PointState uint8

const (
	// NullState: the point does not exist
	NullState PointState = iota
	// AddState: the point appeared in the new manifold
	AddState
	// PersistState: the point exists in both manifolds
	PersistState
	// RemoveState: the point disappeared from the old manifold
	RemoveState
)

// GetPointStates compares the point ids of an old and a new manifold.
// state1 describes the old manifold points, state2 the new ones.
func GetPointStates(old, current *Manifold) (state1, state2 [settings.MaxManifoldPoints]PointState) {
	for i := 0; i < old.PointCount; i++ {
		key := old.Points[i].ID.Key()
		state1[i] = RemoveState

		for j := 0; j < current.PointCount; j++ {
			if current.Points[j].ID.Key() == key {
				state1[i] = PersistState
				break
			}
		}
	}

	for i := 0; i < current.PointCount; i++ {
		key := current.Points[i].ID.Key()
		state2[i] = AddState

		for j := 0; j < old.PointCount; j++ {
			if old.Points[j].ID.Key() == key {
				state2[i] = PersistState
				break
			}
		}
	}

	return state1, state2
}
