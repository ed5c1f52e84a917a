// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance query for 2D convex shapes.
//
// The query works on the Minkowski difference B - A. It keeps a simplex of up
// to three support points and repeatedly replaces it with the sub-simplex
// closest to the origin, searching for new support points toward the origin.
// When the origin lies inside a triangle the shapes overlap and the distance
// is zero. Otherwise the barycentric coordinates of the closest point give
// the witness points on each shape.
//
// A SimplexCache carries the final support indices to the next query on the
// same pair. Seeding the simplex with them usually converges in one iteration
// when the shapes have moved only slightly.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Ericson: "Real-Time Collision Detection" (2004), chapter 9
package gjk

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceProxy is the vertex set and rounding radius of a convex shape, in
// the shape's local frame.
type DistanceProxy struct {
	Vertices []mgl64.Vec2
	Radius   float64
	Type     actor.ShapeType
}

// NewDistanceProxy extracts the support geometry of a shape
func NewDistanceProxy(shape actor.ShapeInterface) DistanceProxy {
	switch s := shape.(type) {
	case *actor.Circle:
		return DistanceProxy{Vertices: []mgl64.Vec2{s.Position}, Radius: s.Radius, Type: actor.ShapeTypeCircle}
	case *actor.Polygon:
		return DistanceProxy{Vertices: s.Vertices, Radius: s.GetRadius(), Type: actor.ShapeTypePolygon}
	case *actor.Edge:
		return DistanceProxy{Vertices: []mgl64.Vec2{s.Vertex1, s.Vertex2}, Radius: s.GetRadius(), Type: actor.ShapeTypeEdge}
	}
	panic("impact: assertion failed: unknown shape type")
}

func (p *DistanceProxy) VertexCount() int {
	return len(p.Vertices)
}

func (p *DistanceProxy) Vertex(index int) mgl64.Vec2 {
	settings.Assert(0 <= index && index < len(p.Vertices), "proxy vertex %d out of range", index)
	return p.Vertices[index]
}

// Support returns the index of the vertex furthest along direction
func (p *DistanceProxy) Support(direction mgl64.Vec2) int {
	bestIndex := 0
	bestValue := p.Vertices[0].Dot(direction)
	for i := 1; i < len(p.Vertices); i++ {
		if value := p.Vertices[i].Dot(direction); value > bestValue {
			bestIndex = i
			bestValue = value
		}
	}
	return bestIndex
}

// SimplexCache records the closest features of a previous query. It is only
// a hint: entries that no longer match the shapes are discarded.
type SimplexCache struct {
	Metric float64 // length of the cached segment
	Count  int
	IndexA [2]int
	IndexB [2]int
	TypeA  actor.ShapeType
	TypeB  actor.ShapeType
}

// Reset empties the cache
func (c *SimplexCache) Reset() {
	c.Count = 0
	c.Metric = 0
}

type DistanceInput struct {
	ProxyA     DistanceProxy
	ProxyB     DistanceProxy
	TransformA actor.Transform
	TransformB actor.Transform
	// UseRadii measures between the rounded surfaces instead of the cores
	UseRadii bool
}

type DistanceOutput struct {
	PointA     mgl64.Vec2 // closest point on A, world space
	PointB     mgl64.Vec2 // closest point on B, world space
	Distance   float64
	Iterations int
}

type simplexVertex struct {
	wA     mgl64.Vec2 // support point in A
	wB     mgl64.Vec2 // support point in B
	w      mgl64.Vec2 // wB - wA
	a      float64    // barycentric coordinate of the closest point
	indexA int
	indexB int
}

// Simplex represents a set of 1-3 points in the Minkowski difference space.
type Simplex struct {
	vertices [3]simplexVertex
	Count    int
}

func (s *Simplex) readCache(cache *SimplexCache, input *DistanceInput) {
	proxyA, proxyB := &input.ProxyA, &input.ProxyB

	s.Count = 0
	if cache != nil && 0 < cache.Count && cache.Count <= len(cache.IndexA) &&
		cache.TypeA == proxyA.Type && cache.TypeB == proxyB.Type {
		valid := true
		for i := 0; i < cache.Count; i++ {
			indexA, indexB := cache.IndexA[i], cache.IndexB[i]
			if indexA < 0 || indexA >= proxyA.VertexCount() || indexB < 0 || indexB >= proxyB.VertexCount() {
				valid = false
				break
			}
		}

		if valid {
			s.Count = cache.Count
			for i := 0; i < s.Count; i++ {
				s.setVertex(i, cache.IndexA[i], cache.IndexB[i], input)
			}

			// Flush the cache if the segment changed a lot since it was written.
			if s.Count > 1 {
				metric1 := cache.Metric
				metric2 := s.metric()
				if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < settings.Epsilon {
					s.Count = 0
				}
			}
		}
	}

	if s.Count == 0 {
		s.setVertex(0, 0, 0, input)
		s.vertices[0].a = 1.0
		s.Count = 1
	}
}

func (s *Simplex) setVertex(i, indexA, indexB int, input *DistanceInput) {
	v := &s.vertices[i]
	v.indexA = indexA
	v.indexB = indexB
	v.wA = input.TransformA.Apply(input.ProxyA.Vertex(indexA))
	v.wB = input.TransformB.Apply(input.ProxyB.Vertex(indexB))
	v.w = v.wB.Sub(v.wA)
	v.a = 0
}

// writeCache stores the closest feature pair. An overlapping triangle is not
// cached: the next query starts fresh.
func (s *Simplex) writeCache(cache *SimplexCache, input *DistanceInput) {
	if cache == nil {
		return
	}

	cache.TypeA = input.ProxyA.Type
	cache.TypeB = input.ProxyB.Type
	if s.Count > 2 {
		cache.Reset()
		return
	}

	cache.Metric = s.metric()
	cache.Count = s.Count
	for i := 0; i < s.Count; i++ {
		cache.IndexA[i] = s.vertices[i].indexA
		cache.IndexB[i] = s.vertices[i].indexB
	}
}

func (s *Simplex) searchDirection() mgl64.Vec2 {
	switch s.Count {
	case 1:
		return s.vertices[0].w.Mul(-1)
	case 2:
		e12 := s.vertices[1].w.Sub(s.vertices[0].w)
		sgn := actor.Cross(e12, s.vertices[0].w.Mul(-1))
		if sgn > 0 {
			// Origin is left of e12.
			return actor.CrossSV(1.0, e12)
		}
		return actor.CrossVS(e12, 1.0)
	}
	panic("impact: assertion failed: invalid simplex")
}

func (s *Simplex) closestPoint() mgl64.Vec2 {
	switch s.Count {
	case 1:
		return s.vertices[0].w
	case 2:
		return s.vertices[0].w.Mul(s.vertices[0].a).Add(s.vertices[1].w.Mul(s.vertices[1].a))
	case 3:
		return mgl64.Vec2{}
	}
	panic("impact: assertion failed: invalid simplex")
}

func (s *Simplex) witnessPoints() (mgl64.Vec2, mgl64.Vec2) {
	v := &s.vertices
	switch s.Count {
	case 1:
		return v[0].wA, v[0].wB
	case 2:
		pA := v[0].wA.Mul(v[0].a).Add(v[1].wA.Mul(v[1].a))
		pB := v[0].wB.Mul(v[0].a).Add(v[1].wB.Mul(v[1].a))
		return pA, pB
	case 3:
		pA := v[0].wA.Mul(v[0].a).Add(v[1].wA.Mul(v[1].a)).Add(v[2].wA.Mul(v[2].a))
		return pA, pA
	}
	panic("impact: assertion failed: invalid simplex")
}

func (s *Simplex) metric() float64 {
	v := &s.vertices
	switch s.Count {
	case 1:
		return 0
	case 2:
		return v[0].w.Sub(v[1].w).Len()
	case 3:
		return actor.Cross(v[1].w.Sub(v[0].w), v[2].w.Sub(v[0].w))
	}
	panic("impact: assertion failed: invalid simplex")
}

// solve2 reduces a segment to the closest feature to the origin using
// unnormalized barycentric coordinates.
//
// Voronoi regions:
//   - w1 alone: the origin is behind w1
//   - w2 alone: the origin is beyond w2
//   - the segment: otherwise
func (s *Simplex) solve2() {
	w1 := s.vertices[0].w
	w2 := s.vertices[1].w
	e12 := w2.Sub(w1)

	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0 {
		s.vertices[0].a = 1.0
		s.Count = 1
		return
	}

	d12n1 := w2.Dot(e12)
	if d12n1 <= 0 {
		s.vertices[1].a = 1.0
		s.Count = 1
		s.vertices[0] = s.vertices[1]
		return
	}

	inv := 1.0 / (d12n1 + d12n2)
	s.vertices[0].a = d12n1 * inv
	s.vertices[1].a = d12n2 * inv
	s.Count = 2
}

// solve3 reduces a triangle to the closest vertex, edge or the triangle itself.
// The triangle survives only when it contains the origin.
func (s *Simplex) solve3() {
	w1 := s.vertices[0].w
	w2 := s.vertices[1].w
	w3 := s.vertices[2].w

	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	n123 := actor.Cross(e12, e13)
	d123n1 := n123 * actor.Cross(w2, w3)
	d123n2 := n123 * actor.Cross(w3, w1)
	d123n3 := n123 * actor.Cross(w1, w2)

	// w1 region
	if d12n2 <= 0 && d13n2 <= 0 {
		s.vertices[0].a = 1.0
		s.Count = 1
		return
	}

	// e12
	if d12n1 > 0 && d12n2 > 0 && d123n3 <= 0 {
		inv := 1.0 / (d12n1 + d12n2)
		s.vertices[0].a = d12n1 * inv
		s.vertices[1].a = d12n2 * inv
		s.Count = 2
		return
	}

	// e13
	if d13n1 > 0 && d13n2 > 0 && d123n2 <= 0 {
		inv := 1.0 / (d13n1 + d13n2)
		s.vertices[0].a = d13n1 * inv
		s.vertices[2].a = d13n2 * inv
		s.Count = 2
		s.vertices[1] = s.vertices[2]
		return
	}

	// w2 region
	if d12n1 <= 0 && d23n2 <= 0 {
		s.vertices[1].a = 1.0
		s.Count = 1
		s.vertices[0] = s.vertices[1]
		return
	}

	// w3 region
	if d13n1 <= 0 && d23n1 <= 0 {
		s.vertices[2].a = 1.0
		s.Count = 1
		s.vertices[0] = s.vertices[2]
		return
	}

	// e23
	if d23n1 > 0 && d23n2 > 0 && d123n1 <= 0 {
		inv := 1.0 / (d23n1 + d23n2)
		s.vertices[1].a = d23n1 * inv
		s.vertices[2].a = d23n2 * inv
		s.Count = 2
		s.vertices[0] = s.vertices[2]
		return
	}

	// Inside the triangle.
	inv := 1.0 / (d123n1 + d123n2 + d123n3)
	s.vertices[0].a = d123n1 * inv
	s.vertices[1].a = d123n2 * inv
	s.vertices[2].a = d123n3 * inv
	s.Count = 3
}

// Distance computes the closest points between two convex shapes.
//
// The cache may be nil. When present it seeds the simplex and receives the
// final feature pair. The result does not depend on the cache beyond floating
// point rounding.
//
// Termination:
//   - the origin is inside the simplex (overlap, distance 0)
//   - a support point repeats a simplex vertex (converged)
//   - the squared distance stops decreasing (numerical floor)
//   - the iteration budget is exhausted
func Distance(cache *SimplexCache, input DistanceInput) DistanceOutput {
	var simplex Simplex
	simplex.readCache(cache, &input)

	vertices := &simplex.vertices
	var saveA, saveB [3]int

	distanceSqr1 := math.MaxFloat64
	iter := 0

	for iter < settings.MaxDistanceIterations {
		saveCount := simplex.Count
		for i := 0; i < saveCount; i++ {
			saveA[i] = vertices[i].indexA
			saveB[i] = vertices[i].indexB
		}

		switch simplex.Count {
		case 2:
			simplex.solve2()
		case 3:
			simplex.solve3()
		}

		// The origin is inside the triangle: overlap.
		if simplex.Count == 3 {
			break
		}

		distanceSqr2 := simplex.closestPoint().LenSqr()
		if distanceSqr2 >= distanceSqr1 {
			break
		}
		distanceSqr1 = distanceSqr2

		d := simplex.searchDirection()
		// The origin is on the simplex boundary.
		if d.LenSqr() < settings.Epsilon*settings.Epsilon {
			break
		}

		vertex := &vertices[simplex.Count]
		vertex.indexA = input.ProxyA.Support(input.TransformA.InverseRotate(d.Mul(-1)))
		vertex.wA = input.TransformA.Apply(input.ProxyA.Vertex(vertex.indexA))
		vertex.indexB = input.ProxyB.Support(input.TransformB.InverseRotate(d))
		vertex.wB = input.TransformB.Apply(input.ProxyB.Vertex(vertex.indexB))
		vertex.w = vertex.wB.Sub(vertex.wA)

		iter++

		// A repeated support point means no further progress is possible.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.indexA == saveA[i] && vertex.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		simplex.Count++
	}

	var output DistanceOutput
	output.PointA, output.PointB = simplex.witnessPoints()
	output.Distance = output.PointB.Sub(output.PointA).Len()
	output.Iterations = iter

	simplex.writeCache(cache, &input)

	if input.UseRadii {
		rA := input.ProxyA.Radius
		rB := input.ProxyB.Radius

		if output.Distance > rA+rB && output.Distance > settings.Epsilon {
			// Shapes are still not overlapped: move the witness points to the surfaces.
			output.Distance -= rA + rB
			normal, _ := actor.Normalize(output.PointB.Sub(output.PointA))
			output.PointA = output.PointA.Add(normal.Mul(rA))
			output.PointB = output.PointB.Sub(normal.Mul(rB))
		} else {
			// Shapes are overlapped when radii are considered: use the midpoint.
			p := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA = p
			output.PointB = p
			output.Distance = 0
		}
	}

	return output
}

// ShapeDistance is a convenience wrapper building the proxies from shapes,
// with radii applied.
func ShapeDistance(cache *SimplexCache, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform) DistanceOutput {
	return Distance(cache, DistanceInput{
		ProxyA:     NewDistanceProxy(shapeA),
		ProxyB:     NewDistanceProxy(shapeB),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	})
}
