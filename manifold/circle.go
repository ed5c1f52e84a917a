package manifold

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// CollideCircles produces at most one point when the circles overlap
func CollideCircles(m *Manifold, circleA *actor.Circle, xfA actor.Transform, circleB *actor.Circle, xfB actor.Transform) {
	m.PointCount = 0

	pA := xfA.Apply(circleA.Position)
	pB := xfB.Apply(circleB.Position)

	radius := circleA.Radius + circleB.Radius
	if actor.DistanceSquared(pA, pB) > radius*radius {
		return
	}

	m.Type = Circles
	m.LocalPoint = circleA.Position
	m.LocalNormal = mgl64.Vec2{}
	m.PointCount = 1

	m.Points[0] = Point{LocalPoint: circleB.Position}
}

// CollidePolygonAndCircle finds the polygon face or vertex closest to the
// circle center. The point id names that feature on the polygon side.
func CollidePolygonAndCircle(m *Manifold, polygonA *actor.Polygon, xfA actor.Transform, circleB *actor.Circle, xfB actor.Transform) {
	m.PointCount = 0

	// Circle position in the polygon frame.
	c := xfB.Apply(circleB.Position)
	cLocal := xfA.ApplyInverse(c)

	// Find the face of maximum separation.
	normalIndex := 0
	separation := -math.MaxFloat64
	radius := polygonA.GetRadius() + circleB.Radius
	vertexCount := len(polygonA.Vertices)

	for i := 0; i < vertexCount; i++ {
		s := polygonA.Normals[i].Dot(cLocal.Sub(polygonA.Vertices[i]))
		if s > radius {
			// Early out.
			return
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	vertIndex1 := normalIndex
	vertIndex2 := (vertIndex1 + 1) % vertexCount
	v1 := polygonA.Vertices[vertIndex1]
	v2 := polygonA.Vertices[vertIndex2]

	// Center inside the polygon.
	if separation < 1e-12 {
		m.PointCount = 1
		m.Type = FaceA
		m.LocalNormal = polygonA.Normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Mul(0.5)
		m.Points[0] = Point{
			LocalPoint: circleB.Position,
			ID:         ID{IndexA: uint8(normalIndex), TypeA: FeatureFace},
		}
		return
	}

	// Voronoi regions of the reference face.
	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))

	switch {
	case u1 <= 0:
		if actor.DistanceSquared(cLocal, v1) > radius*radius {
			return
		}
		m.PointCount = 1
		m.Type = FaceA
		m.LocalNormal, _ = actor.Normalize(cLocal.Sub(v1))
		m.LocalPoint = v1
		m.Points[0] = Point{
			LocalPoint: circleB.Position,
			ID:         ID{IndexA: uint8(vertIndex1), TypeA: FeatureVertex},
		}

	case u2 <= 0:
		if actor.DistanceSquared(cLocal, v2) > radius*radius {
			return
		}
		m.PointCount = 1
		m.Type = FaceA
		m.LocalNormal, _ = actor.Normalize(cLocal.Sub(v2))
		m.LocalPoint = v2
		m.Points[0] = Point{
			LocalPoint: circleB.Position,
			ID:         ID{IndexA: uint8(vertIndex2), TypeA: FeatureVertex},
		}

	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		if cLocal.Sub(faceCenter).Dot(polygonA.Normals[vertIndex1]) > radius {
			return
		}
		m.PointCount = 1
		m.Type = FaceA
		m.LocalNormal = polygonA.Normals[vertIndex1]
		m.LocalPoint = faceCenter
		m.Points[0] = Point{
			LocalPoint: circleB.Position,
			ID:         ID{IndexA: uint8(vertIndex1), TypeA: FeatureFace},
		}
	}
}

// CollideEdgeAndCircle handles the two vertex regions and the interior of
// the segment. The edge is two-sided: the face normal always faces the circle.
func CollideEdgeAndCircle(m *Manifold, edgeA *actor.Edge, xfA actor.Transform, circleB *actor.Circle, xfB actor.Transform) {
	m.PointCount = 0

	// Circle center in the edge frame.
	q := xfA.ApplyInverse(xfB.Apply(circleB.Position))

	a := edgeA.Vertex1
	b := edgeA.Vertex2
	e := b.Sub(a)

	// Barycentric coordinates
	u := e.Dot(b.Sub(q))
	v := e.Dot(q.Sub(a))

	radius := edgeA.GetRadius() + circleB.Radius

	vertexRegion := func(p mgl64.Vec2, index uint8) {
		if actor.DistanceSquared(q, p) > radius*radius {
			return
		}
		m.PointCount = 1
		m.Type = Circles
		m.LocalNormal = mgl64.Vec2{}
		m.LocalPoint = p
		m.Points[0] = Point{
			LocalPoint: circleB.Position,
			ID:         ID{IndexA: index, TypeA: FeatureVertex},
		}
	}

	switch {
	case v <= 0:
		vertexRegion(a, 0)
	case u <= 0:
		vertexRegion(b, 1)
	default:
		den := e.Dot(e)
		p := a.Mul(u).Add(b.Mul(v)).Mul(1.0 / den)
		if actor.DistanceSquared(q, p) > radius*radius {
			return
		}

		// Face 0 is the left side of a->b, face 1 the right side.
		n := actor.CrossSV(1.0, e)
		face := uint8(0)
		if n.Dot(q.Sub(a)) < 0 {
			n = n.Mul(-1)
			face = 1
		}
		n, _ = actor.Normalize(n)

		m.PointCount = 1
		m.Type = FaceA
		m.LocalNormal = n
		m.LocalPoint = a
		m.Points[0] = Point{
			LocalPoint: circleB.Position,
			ID:         ID{IndexA: face, TypeA: FeatureFace},
		}
	}
}
