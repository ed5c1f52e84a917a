package actor

import (
	"math"

	"github.com/akmonengine/impact/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType uint8

const (
	ShapeTypeCircle ShapeType = iota
	ShapeTypePolygon
	ShapeTypeEdge

	// ShapeTypeCount is the number of shape types, used to size dispatch tables
	ShapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeCircle:
		return "circle"
	case ShapeTypePolygon:
		return "polygon"
	case ShapeTypeEdge:
		return "edge"
	}
	return "unknown"
}

// MassData holds the mass properties of a shape. Inertia is about the shape origin.
type MassData struct {
	Mass    float64
	Center  mgl64.Vec2
	Inertia float64
}

// ShapeInterface is the closed set of convex collision shapes: Circle, Polygon and Edge.
// Geometry is expressed in the local frame of the owning body.
type ShapeInterface interface {
	Type() ShapeType
	// GetRadius is the rounding radius around the vertex set
	GetRadius() float64
	VertexCount() int
	Vertex(index int) mgl64.Vec2
	// Support returns the index of the vertex furthest along the local direction
	Support(direction mgl64.Vec2) int
	ComputeAABB(transform Transform) AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) MassData
	// ComputeSweepRadius is the max distance of any point of the core shape from pivot
	ComputeSweepRadius(pivot mgl64.Vec2) float64
	TestPoint(transform Transform, point mgl64.Vec2) bool
	RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool)

	sealed()
}

// Circle represents a disk collision shape
type Circle struct {
	Position mgl64.Vec2
	Radius   float64
}

func NewCircle(position mgl64.Vec2, radius float64) *Circle {
	settings.Assert(radius > 0, "circle radius %v must be positive", radius)
	return &Circle{Position: position, Radius: radius}
}

func (c *Circle) sealed() {}

func (c *Circle) Type() ShapeType { return ShapeTypeCircle }

func (c *Circle) GetRadius() float64 { return c.Radius }

func (c *Circle) VertexCount() int { return 1 }

func (c *Circle) Vertex(index int) mgl64.Vec2 {
	settings.Assert(index == 0, "circle vertex %d out of range", index)
	return c.Position
}

func (c *Circle) Support(direction mgl64.Vec2) int { return 0 }

// ComputeAABB calculates the axis-aligned bounding box for the circle
func (c *Circle) ComputeAABB(transform Transform) AABB {
	p := transform.Apply(c.Position)
	r := mgl64.Vec2{c.Radius, c.Radius}
	return AABB{Min: p.Sub(r), Max: p.Add(r)}
}

func (c *Circle) ComputeMass(density float64) MassData {
	mass := density * math.Pi * c.Radius * c.Radius
	return MassData{
		Mass:   mass,
		Center: c.Position,
		// Inertia about the local origin.
		Inertia: mass * (0.5*c.Radius*c.Radius + c.Position.Dot(c.Position)),
	}
}

// ComputeSweepRadius ignores the radius: a disk rotating about its own center
// does not move its surface.
func (c *Circle) ComputeSweepRadius(pivot mgl64.Vec2) float64 {
	return c.Position.Sub(pivot).Len()
}

func (c *Circle) TestPoint(transform Transform, point mgl64.Vec2) bool {
	center := transform.Apply(c.Position)
	return point.Sub(center).LenSqr() <= c.Radius*c.Radius
}

// RayCast solves |p1 + t*d - center| = r for the smallest t in range.
func (c *Circle) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	position := transform.Apply(c.Position)
	s := input.P1.Sub(position)
	b := s.LenSqr() - c.Radius*c.Radius

	d := input.P2.Sub(input.P1)
	cc := s.Dot(d)
	rr := d.LenSqr()
	sigma := cc*cc - rr*b

	if sigma < 0 || rr < settings.Epsilon {
		return RayCastOutput{}, false
	}

	a := -(cc + math.Sqrt(sigma))
	if 0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		normal, _ := Normalize(s.Add(d.Mul(a)))
		return RayCastOutput{Fraction: a, Normal: normal}, true
	}

	return RayCastOutput{}, false
}

// Polygon is a convex polygon with counter-clockwise winding
type Polygon struct {
	Vertices []mgl64.Vec2
	Normals  []mgl64.Vec2
	Centroid mgl64.Vec2
}

// NewPolygon builds a convex polygon from counter-clockwise vertices.
// It panics on fewer than 3 or more than MaxPolygonVertices points, on
// degenerate edges, and on non-convex or clockwise input.
func NewPolygon(vertices []mgl64.Vec2) *Polygon {
	count := len(vertices)
	settings.Assert(3 <= count && count <= settings.MaxPolygonVertices,
		"polygon vertex count %d out of [3, %d]", count, settings.MaxPolygonVertices)

	p := &Polygon{
		Vertices: make([]mgl64.Vec2, count),
		Normals:  make([]mgl64.Vec2, count),
	}
	copy(p.Vertices, vertices)

	for i := range count {
		edge := p.Vertices[(i+1)%count].Sub(p.Vertices[i])
		settings.Assert(edge.LenSqr() > settings.Epsilon*settings.Epsilon, "polygon edge %d is degenerate", i)

		normal, _ := Normalize(CrossVS(edge, 1.0))
		p.Normals[i] = normal
	}

	for i := range count {
		i2 := (i + 1) % count
		edge := p.Vertices[i2].Sub(p.Vertices[i])
		for j := range count {
			if j == i || j == i2 {
				continue
			}
			settings.Assert(Cross(edge, p.Vertices[j].Sub(p.Vertices[i])) > 0,
				"polygon must be convex and counter-clockwise (edge %d, vertex %d)", i, j)
		}
	}

	p.Centroid = p.ComputeMass(1.0).Center

	return p
}

// NewBox builds an axis-aligned box centered on the local origin
func NewBox(halfWidth, halfHeight float64) *Polygon {
	return NewPolygon([]mgl64.Vec2{
		{-halfWidth, -halfHeight},
		{halfWidth, -halfHeight},
		{halfWidth, halfHeight},
		{-halfWidth, halfHeight},
	})
}

// NewOrientedBox builds a box centered on center and rotated by angle
func NewOrientedBox(halfWidth, halfHeight float64, center mgl64.Vec2, angle float64) *Polygon {
	xf := NewTransform(center, angle)
	box := NewBox(halfWidth, halfHeight)
	for i := range box.Vertices {
		box.Vertices[i] = xf.Apply(box.Vertices[i])
		box.Normals[i] = xf.Rotate(box.Normals[i])
	}
	box.Centroid = center

	return box
}

func (p *Polygon) sealed() {}

func (p *Polygon) Type() ShapeType { return ShapeTypePolygon }

func (p *Polygon) GetRadius() float64 { return 0 }

func (p *Polygon) VertexCount() int { return len(p.Vertices) }

func (p *Polygon) Vertex(index int) mgl64.Vec2 {
	settings.Assert(0 <= index && index < len(p.Vertices), "polygon vertex %d out of range", index)
	return p.Vertices[index]
}

func (p *Polygon) Support(direction mgl64.Vec2) int {
	best := 0
	bestValue := p.Vertices[0].Dot(direction)
	for i := 1; i < len(p.Vertices); i++ {
		if value := p.Vertices[i].Dot(direction); value > bestValue {
			best = i
			bestValue = value
		}
	}
	return best
}

func (p *Polygon) ComputeAABB(transform Transform) AABB {
	lower := transform.Apply(p.Vertices[0])
	upper := lower

	for i := 1; i < len(p.Vertices); i++ {
		v := transform.Apply(p.Vertices[i])
		lower = MinVec(lower, v)
		upper = MaxVec(upper, v)
	}

	return AABB{Min: lower, Max: upper}
}

// ComputeMass integrates the polygon as a fan of triangles around its first
// vertex, which keeps the sums well conditioned far from the origin.
func (p *Polygon) ComputeMass(density float64) MassData {
	count := len(p.Vertices)
	s := p.Vertices[0]

	var center mgl64.Vec2
	area := 0.0
	inertia := 0.0
	const inv3 = 1.0 / 3.0

	for i := range count {
		e1 := p.Vertices[i].Sub(s)
		e2 := p.Vertices[(i+1)%count].Sub(s)

		d := Cross(e1, e2)
		triangleArea := 0.5 * d
		area += triangleArea

		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		ex1, ey1 := e1.X(), e1.Y()
		ex2, ey2 := e2.X(), e2.Y()
		intx2 := ex1*ex1 + ex2*ex1 + ex2*ex2
		inty2 := ey1*ey1 + ey2*ey1 + ey2*ey2
		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	settings.Assert(area > settings.Epsilon, "polygon area %v is degenerate", area)

	mass := density * area
	center = center.Mul(1.0 / area)
	massCenter := center.Add(s)

	// Shift the inertia from the reference vertex to the local origin.
	inertia = density*inertia + mass*(massCenter.Dot(massCenter)-center.Dot(center))

	return MassData{Mass: mass, Center: massCenter, Inertia: inertia}
}

func (p *Polygon) ComputeSweepRadius(pivot mgl64.Vec2) float64 {
	radius := 0.0
	for _, v := range p.Vertices {
		radius = math.Max(radius, v.Sub(pivot).Len())
	}
	return radius
}

func (p *Polygon) TestPoint(transform Transform, point mgl64.Vec2) bool {
	local := transform.ApplyInverse(point)
	for i, n := range p.Normals {
		if n.Dot(local.Sub(p.Vertices[i])) > 0 {
			return false
		}
	}
	return true
}

// RayCast clips the ray in local space against each edge half-plane.
func (p *Polygon) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	p1 := transform.ApplyInverse(input.P1)
	p2 := transform.ApplyInverse(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i, n := range p.Normals {
		numerator := n.Dot(p.Vertices[i].Sub(p1))
		denominator := n.Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return RayCastOutput{}, false
			}
		} else if denominator < 0 && numerator < lower*denominator {
			// Entering this half-plane.
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			// Leaving this half-plane.
			upper = numerator / denominator
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return RayCastOutput{Fraction: lower, Normal: transform.Rotate(p.Normals[index])}, true
	}

	return RayCastOutput{}, false
}

// Edge is a line segment, typically used for static terrain
type Edge struct {
	Vertex1 mgl64.Vec2
	Vertex2 mgl64.Vec2
	// Normal is the right-hand normal of Vertex1 -> Vertex2
	Normal mgl64.Vec2
}

func NewEdge(v1, v2 mgl64.Vec2) *Edge {
	settings.Assert(v2.Sub(v1).LenSqr() > settings.Epsilon*settings.Epsilon, "edge is degenerate")
	normal, _ := Normalize(CrossVS(v2.Sub(v1), 1.0))
	return &Edge{Vertex1: v1, Vertex2: v2, Normal: normal}
}

func (e *Edge) sealed() {}

func (e *Edge) Type() ShapeType { return ShapeTypeEdge }

func (e *Edge) GetRadius() float64 { return 0 }

func (e *Edge) VertexCount() int { return 2 }

func (e *Edge) Vertex(index int) mgl64.Vec2 {
	settings.Assert(index == 0 || index == 1, "edge vertex %d out of range", index)
	if index == 0 {
		return e.Vertex1
	}
	return e.Vertex2
}

func (e *Edge) Support(direction mgl64.Vec2) int {
	if e.Vertex2.Dot(direction) > e.Vertex1.Dot(direction) {
		return 1
	}
	return 0
}

func (e *Edge) ComputeAABB(transform Transform) AABB {
	v1 := transform.Apply(e.Vertex1)
	v2 := transform.Apply(e.Vertex2)
	return AABB{Min: MinVec(v1, v2), Max: MaxVec(v1, v2)}
}

// ComputeMass returns zero mass: edges have no area
func (e *Edge) ComputeMass(density float64) MassData {
	return MassData{Center: e.Vertex1.Add(e.Vertex2).Mul(0.5)}
}

func (e *Edge) ComputeSweepRadius(pivot mgl64.Vec2) float64 {
	return math.Max(e.Vertex1.Sub(pivot).Len(), e.Vertex2.Sub(pivot).Len())
}

func (e *Edge) TestPoint(transform Transform, point mgl64.Vec2) bool {
	return false
}

// RayCast intersects the ray with the segment from either side.
func (e *Edge) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	p1 := transform.ApplyInverse(input.P1)
	p2 := transform.ApplyInverse(input.P2)
	d := p2.Sub(p1)

	numerator := e.Normal.Dot(e.Vertex1.Sub(p1))
	denominator := e.Normal.Dot(d)
	if denominator == 0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Mul(t))
	r := e.Vertex2.Sub(e.Vertex1)
	s := q.Sub(e.Vertex1).Dot(r) / r.LenSqr()
	if s < 0 || 1 < s {
		return RayCastOutput{}, false
	}

	normal := e.Normal
	if numerator > 0 {
		normal = normal.Mul(-1)
	}

	return RayCastOutput{Fraction: t, Normal: transform.Rotate(normal)}, true
}
