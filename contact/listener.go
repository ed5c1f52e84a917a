package contact

import (
	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/manifold"
)

// Listener receives contact notifications during Manager.Collide and
// Manager.Destroy. Implementations must not create or destroy bodies,
// fixtures or contacts from a callback.
type Listener interface {
	// BeginContact is called when two fixtures start touching
	BeginContact(c *Contact)
	// EndContact is called when two fixtures stop touching, or when a
	// touching contact is destroyed
	EndContact(c *Contact)
	// PreSolve is called for solid contacts after the manifold update.
	// oldManifold is the manifold from the previous update. Zeroing
	// c.Manifold().PointCount or calling c.SetEnabled(false) drops the
	// contact for the current step.
	PreSolve(c *Contact, oldManifold *manifold.Manifold)
}

// NopListener ignores every notification
type NopListener struct{}

func (NopListener) BeginContact(*Contact)                 {}
func (NopListener) EndContact(*Contact)                   {}
func (NopListener) PreSolve(*Contact, *manifold.Manifold) {}

// ContactFilter decides whether two fixtures may create a contact
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *actor.Fixture) bool
}

// DefaultFilter applies the fixtures' category, mask and group rules
type DefaultFilter struct{}

func (DefaultFilter) ShouldCollide(fixtureA, fixtureB *actor.Fixture) bool {
	return fixtureA.Filter.ShouldCollide(fixtureB.Filter)
}
