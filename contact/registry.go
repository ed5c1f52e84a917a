package contact

import (
	"sync"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/manifold"
	"github.com/akmonengine/impact/settings"
)

// Evaluator recomputes a manifold for two shapes at the given transforms.
// The shapes are passed in the order of the registration.
type Evaluator func(m *manifold.Manifold, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform)

// Registration binds an evaluator to an ordered pair of shape types. The
// reversed pair is served by the same evaluator with the fixtures swapped.
type Registration struct {
	TypeA    actor.ShapeType
	TypeB    actor.ShapeType
	Evaluate Evaluator
}

type registryEntry struct {
	evaluate Evaluator
	pool     *sync.Pool
	// primary is false for the mirrored orientation of a registration
	primary bool
}

// Registry is the dispatch table from shape type pairs to evaluators. It is
// immutable once built and may be shared by several managers.
type Registry struct {
	table [actor.ShapeTypeCount][actor.ShapeTypeCount]registryEntry
}

// DefaultRegistrations covers every pair the manifold package can evaluate.
// Edge against edge has no evaluator: edges never collide with each other.
func DefaultRegistrations() []Registration {
	return []Registration{
		{TypeA: actor.ShapeTypeCircle, TypeB: actor.ShapeTypeCircle, Evaluate: evaluateCircles},
		{TypeA: actor.ShapeTypePolygon, TypeB: actor.ShapeTypeCircle, Evaluate: evaluatePolygonAndCircle},
		{TypeA: actor.ShapeTypePolygon, TypeB: actor.ShapeTypePolygon, Evaluate: evaluatePolygons},
		{TypeA: actor.ShapeTypeEdge, TypeB: actor.ShapeTypeCircle, Evaluate: evaluateEdgeAndCircle},
		{TypeA: actor.ShapeTypePolygon, TypeB: actor.ShapeTypeEdge, Evaluate: evaluatePolygonAndEdge},
	}
}

// NewRegistry builds the table of DefaultRegistrations
func NewRegistry() *Registry {
	return NewRegistryWith(DefaultRegistrations()...)
}

// NewRegistryWith builds a table from custom registrations. A later
// registration of the same pair replaces an earlier one.
func NewRegistryWith(registrations ...Registration) *Registry {
	r := &Registry{}

	for _, reg := range registrations {
		settings.Assert(reg.TypeA < actor.ShapeTypeCount && reg.TypeB < actor.ShapeTypeCount,
			"registration for unknown shape types %d, %d", reg.TypeA, reg.TypeB)
		settings.Assert(reg.Evaluate != nil, "registration %s-%s has no evaluator", reg.TypeA, reg.TypeB)

		pool := &sync.Pool{New: func() any { return new(Contact) }}

		r.table[reg.TypeA][reg.TypeB] = registryEntry{evaluate: reg.Evaluate, pool: pool, primary: true}
		if reg.TypeA != reg.TypeB {
			r.table[reg.TypeB][reg.TypeA] = registryEntry{evaluate: reg.Evaluate, pool: pool, primary: false}
		}
	}

	return r
}

// Supports reports whether a contact can be created for the two shape types
func (r *Registry) Supports(typeA, typeB actor.ShapeType) bool {
	return r.table[typeA][typeB].evaluate != nil
}

// Create returns a new contact for the pair, or nil when no evaluator is
// registered for their shape types. For a mirrored registration the
// fixtures are swapped so the evaluator always sees its own orientation.
func (r *Registry) Create(fixtureA, fixtureB *actor.Fixture) *Contact {
	typeA := fixtureA.Shape.Type()
	typeB := fixtureB.Shape.Type()
	settings.Assert(typeA < actor.ShapeTypeCount && typeB < actor.ShapeTypeCount,
		"unknown shape types %d, %d", typeA, typeB)

	entry := r.table[typeA][typeB]
	if entry.evaluate == nil {
		return nil
	}

	if !entry.primary {
		fixtureA, fixtureB = fixtureB, fixtureA
	}

	c := entry.pool.Get().(*Contact)
	c.init(fixtureA, fixtureB, entry.evaluate)

	return c
}

// Destroy returns the contact to the pool of its shape pair. The contact
// must not be used afterwards.
func (r *Registry) Destroy(c *Contact) {
	typeA := c.fixtureA.Shape.Type()
	typeB := c.fixtureB.Shape.Type()

	entry := r.table[typeA][typeB]
	settings.Assert(entry.evaluate != nil && entry.primary, "contact %s-%s was not created by this registry", typeA, typeB)

	*c = Contact{}
	entry.pool.Put(c)
}

func evaluateCircles(m *manifold.Manifold, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform) {
	manifold.CollideCircles(m, shapeA.(*actor.Circle), xfA, shapeB.(*actor.Circle), xfB)
}

func evaluatePolygonAndCircle(m *manifold.Manifold, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform) {
	manifold.CollidePolygonAndCircle(m, shapeA.(*actor.Polygon), xfA, shapeB.(*actor.Circle), xfB)
}

func evaluatePolygons(m *manifold.Manifold, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform) {
	manifold.CollidePolygons(m, shapeA.(*actor.Polygon), xfA, shapeB.(*actor.Polygon), xfB)
}

func evaluateEdgeAndCircle(m *manifold.Manifold, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform) {
	manifold.CollideEdgeAndCircle(m, shapeA.(*actor.Edge), xfA, shapeB.(*actor.Circle), xfB)
}

func evaluatePolygonAndEdge(m *manifold.Manifold, shapeA actor.ShapeInterface, xfA actor.Transform, shapeB actor.ShapeInterface, xfB actor.Transform) {
	manifold.CollidePolygonAndEdge(m, shapeA.(*actor.Polygon), xfA, shapeB.(*actor.Edge), xfB)
}
