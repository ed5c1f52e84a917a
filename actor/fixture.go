package actor

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// NullProxy marks a fixture that has no broad-phase proxy
const NullProxy = -1

// Filter holds the collision filtering data of a fixture
type Filter struct {
	// CategoryBits is the category this fixture belongs to
	CategoryBits uint16
	// MaskBits selects the categories this fixture accepts
	MaskBits uint16
	// GroupIndex overrides the mask: equal positive groups always collide,
	// equal negative groups never do
	GroupIndex int16
}

func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF}
}

// ShouldCollide applies the group, category and mask rules
func (f Filter) ShouldCollide(other Filter) bool {
	if f.GroupIndex == other.GroupIndex && f.GroupIndex != 0 {
		return f.GroupIndex > 0
	}
	return f.MaskBits&other.CategoryBits != 0 && f.CategoryBits&other.MaskBits != 0
}

// Fixture binds a shape to a body with material and filtering data
type Fixture struct {
	ID    uuid.UUID
	Body  *RigidBody
	Shape ShapeInterface

	Density     float64
	Friction    float64
	Restitution float64 // 0 = no rebound, 1 = perfect restitution
	// IsSensor fixtures report contacts but never produce a response
	IsSensor bool
	Filter   Filter

	ProxyID  int
	UserData any
}

// NewFixture creates an unattached fixture with the default filter
func NewFixture(shape ShapeInterface, density float64) *Fixture {
	return &Fixture{
		ID:       uuid.New(),
		Shape:    shape,
		Density:  density,
		Friction: 0.2,
		Filter:   DefaultFilter(),
		ProxyID:  NullProxy,
	}
}

// ComputeAABB returns the tight box of the shape at the body placement
func (f *Fixture) ComputeAABB() AABB {
	return f.Shape.ComputeAABB(f.Body.Transform)
}

// SweptAABB bounds the shape at both ends of the body sweep
func (f *Fixture) SweptAABB() AABB {
	start := f.Shape.ComputeAABB(f.Body.StartTransform())
	return start.Combine(f.Shape.ComputeAABB(f.Body.Transform))
}

func (f *Fixture) TestPoint(point mgl64.Vec2) bool {
	return f.Shape.TestPoint(f.Body.Transform, point)
}

func (f *Fixture) RayCast(input RayCastInput) (RayCastOutput, bool) {
	return f.Shape.RayCast(input, f.Body.Transform)
}
