package manifold

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// convex is the common view of polygons and edges used by the separating
// axis test. An edge is seen as a two-sided polygon with two vertices and
// two opposite normals.
type convex struct {
	vertices []mgl64.Vec2
	normals  []mgl64.Vec2
	radius   float64
}

func polygonView(p *actor.Polygon) convex {
	return convex{vertices: p.Vertices, normals: p.Normals, radius: p.GetRadius()}
}

func edgeView(e *actor.Edge) convex {
	return convex{
		vertices: []mgl64.Vec2{e.Vertex1, e.Vertex2},
		normals:  []mgl64.Vec2{e.Normal, e.Normal.Mul(-1)},
		radius:   e.GetRadius(),
	}
}

// CollidePolygons finds the axis of least penetration among the face normals
// of both polygons, takes the most anti-parallel face of the other polygon as
// incident edge and clips it against the side planes of the reference face.
//
// Algorithm:
//  1. Find the face of A with maximum separation against B, and vice versa
//  2. Choose the reference face, preferring A unless B is clearly better
//  3. Find the incident edge on the other polygon
//  4. Clip the incident edge against both reference side planes
//  5. Keep the clipped points below the reference face
func CollidePolygons(m *Manifold, polygonA *actor.Polygon, xfA actor.Transform, polygonB *actor.Polygon, xfB actor.Transform) {
	collideConvex(m, polygonView(polygonA), xfA, polygonView(polygonB), xfB)
}

// CollidePolygonAndEdge treats the edge as a degenerate two-sided polygon
func CollidePolygonAndEdge(m *Manifold, polygonA *actor.Polygon, xfA actor.Transform, edgeB *actor.Edge, xfB actor.Transform) {
	collideConvex(m, polygonView(polygonA), xfA, edgeView(edgeB), xfB)
}

func collideConvex(m *Manifold, polyA convex, xfA actor.Transform, polyB convex, xfB actor.Transform) {
	m.PointCount = 0
	totalRadius := polyA.radius + polyB.radius

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return
	}

	var poly1, poly2 convex
	var xf1, xf2 actor.Transform
	var edge1 int
	flip := false

	// Favor A as the reference so the choice is stable frame to frame.
	const tolerance = 0.1 * settings.LinearSlop
	if separationB > separationA+tolerance {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = FaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = FaceA
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	count1 := len(poly1.vertices)
	iv1 := edge1
	iv2 := (edge1 + 1) % count1

	v11 := poly1.vertices[iv1]
	v12 := poly1.vertices[iv2]

	localTangent, _ := actor.Normalize(v12.Sub(v11))
	localNormal := actor.CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Rotate(localTangent)
	normal := actor.CrossVS(tangent, 1.0)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	// Face offset
	frontOffset := normal.Dot(v11)

	// Side offsets, extended by the polygon skins
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	clipPoints1, count := clipSegmentToLine(incidentEdge, tangent.Mul(-1), sideOffset1, iv1)
	if count < 2 {
		return
	}

	clipPoints2, count := clipSegmentToLine(clipPoints1, tangent, sideOffset2, iv2)
	if count < 2 {
		return
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < settings.MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].v) - frontOffset
		if separation > totalRadius {
			continue
		}

		cp := &m.Points[pointCount]
		cp.LocalPoint = xf2.ApplyInverse(clipPoints2[i].v)
		cp.NormalImpulse = 0
		cp.TangentImpulse = 0
		cp.ID = clipPoints2[i].id
		if flip {
			cp.ID = cp.ID.swap()
		}
		pointCount++
	}

	m.PointCount = pointCount
}

// findMaxSeparation returns the face of poly1 whose normal separates the
// shapes the most, and that separation.
func findMaxSeparation(poly1 convex, xf1 actor.Transform, poly2 convex, xf2 actor.Transform) (int, float64) {
	bestIndex := 0
	maxSeparation := -math.MaxFloat64

	for i := range poly1.vertices {
		// Face of poly1 in the frame of poly2
		n := xf2.InverseRotate(xf1.Rotate(poly1.normals[i]))
		v1 := xf2.ApplyInverse(xf1.Apply(poly1.vertices[i]))

		// Deepest point of poly2 along -n
		si := math.MaxFloat64
		for _, v2 := range poly2.vertices {
			si = math.Min(si, n.Dot(v2.Sub(v1)))
		}

		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}

	return bestIndex, maxSeparation
}

// findIncidentEdge returns the edge of poly2 most anti-parallel to the
// reference normal, in world space.
func findIncidentEdge(poly1 convex, xf1 actor.Transform, edge1 int, poly2 convex, xf2 actor.Transform) [2]clipVertex {
	// Reference normal in the frame of poly2
	normal1 := xf2.InverseRotate(xf1.Rotate(poly1.normals[edge1]))

	index := 0
	minDot := math.MaxFloat64
	for i, n := range poly2.normals {
		if dot := normal1.Dot(n); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (i1 + 1) % len(poly2.vertices)

	return [2]clipVertex{
		{
			v:  xf2.Apply(poly2.vertices[i1]),
			id: ID{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
		{
			v:  xf2.Apply(poly2.vertices[i2]),
			id: ID{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
	}
}
